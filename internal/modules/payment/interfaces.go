package payment

import (
	"context"

	"vabboost/internal/domain"
	"vabboost/internal/repository"
)

type paymentRepo interface {
	GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error)
	ApplyStatus(ctx context.Context, paymentID int64, status domain.PaymentStatus, rawEvent string) (*repository.ApplyResult, error)
}

type notifier interface {
	PaymentSucceeded(ctx context.Context, o *domain.Order) error
}
