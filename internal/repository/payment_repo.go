package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"vabboost/internal/domain"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&p).Error; err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

type ApplyResult struct {
	PaymentChanged bool
	OrderChanged   bool
	// Order is the order after the transition, loaded only when it changed.
	Order *domain.Order
}

// ApplyStatus records a gateway status for the payment and moves the linked
// order accordingly, in one transaction. Terminal payments are never rewritten.
// A status outside the known set leaves the payment row as it is and maps the
// order to awaiting_payment.
func (r *PaymentRepository) ApplyStatus(ctx context.Context, paymentID int64, status domain.PaymentStatus, rawEvent string) (*ApplyResult, error) {
	res := &ApplyResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p domain.Payment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, paymentID).Error; err != nil {
			return notFound(err)
		}
		if p.Status.IsTerminal() {
			return nil
		}

		if status.Valid() && p.Status != status {
			upd := tx.Model(&domain.Payment{}).
				Where("id = ? AND status NOT IN ?", p.ID, domain.TerminalPaymentStatuses).
				Updates(map[string]interface{}{
					"status":       status,
					"gateway_data": rawEvent,
					"updated_at":   time.Now().UTC(),
				})
			if upd.Error != nil {
				return upd.Error
			}
			if upd.RowsAffected == 0 {
				return nil
			}
			res.PaymentChanged = true
		}

		changed, err := updateOrderStatusTx(tx, p.OrderID, domain.OrderStatusFor(status), ChangedByWebhook, "payment "+string(status))
		if err != nil {
			return err
		}
		if changed {
			var o domain.Order
			if err := tx.First(&o, p.OrderID).Error; err != nil {
				return err
			}
			res.OrderChanged = true
			res.Order = &o
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
