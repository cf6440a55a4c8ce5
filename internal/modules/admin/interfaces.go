package admin

import (
	"context"
	"time"

	"vabboost/internal/domain"
	"vabboost/internal/repository"
)

type adminRepo interface {
	GetByUsername(ctx context.Context, username string) (*domain.Admin, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

type orderRepo interface {
	GetByRef(ctx context.Context, ref string) (*domain.Order, error)
	List(ctx context.Context, f repository.OrderFilter) ([]domain.Order, int64, error)
	History(ctx context.Context, orderID int64) ([]domain.OrderStatusHistory, error)
	AdminSetStatus(ctx context.Context, id int64, status domain.OrderStatus, changedBy, comment string) (*domain.Order, error)
	UpdateNotes(ctx context.Context, id int64, notes, changedBy string) (*domain.Order, error)
	Stats(ctx context.Context, now time.Time) (*repository.OrderStats, error)
	RevenueStats(ctx context.Context, q repository.RevenueQuery) (*repository.RevenueStats, error)
	ServiceStats(ctx context.Context, minProgression int) (*repository.ServiceStats, error)
}

type tokenIssuer interface {
	GenerateToken(adminID int64, username, role string) (string, error)
	TTL() time.Duration
}
