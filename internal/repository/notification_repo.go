package repository

import (
	"context"

	"gorm.io/gorm"

	"vabboost/internal/domain"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) ListByOrder(ctx context.Context, orderID int64) ([]domain.Notification, error) {
	var out []domain.Notification
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&out).Error
	return out, err
}
