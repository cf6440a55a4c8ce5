package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"vabboost/internal/domain"
	"vabboost/internal/pkg/logger"
	"vabboost/internal/pkg/validator"
	"vabboost/internal/pkg/yookassa"
	"vabboost/internal/repository"
)

type Service struct {
	payments paymentRepo
	notifier notifier
}

func NewService(payments paymentRepo, notifier notifier) *Service {
	return &Service{payments: payments, notifier: notifier}
}

type Result struct {
	PaymentID   string
	OrderID     int64
	Changed     bool
	OrderStatus domain.OrderStatus
}

// HandleWebhook reconciles one gateway notification. Duplicate and stale
// deliveries succeed without touching state so the gateway stops retrying.
func (s *Service) HandleWebhook(ctx context.Context, raw []byte) (*Result, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		errs := &validator.Errors{}
		errs.Add("body", "malformed JSON")
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, errs)
	}

	errs := &validator.Errors{}
	ev.Object.ID = strings.TrimSpace(ev.Object.ID)
	ev.Object.Status = strings.TrimSpace(ev.Object.Status)
	if ev.Object.ID == "" {
		errs.Add("object.id", "is required")
	}
	if ev.Object.Status == "" {
		errs.Add("object.status", "is required")
	}
	orderID, ok := ev.Object.OrderID()
	if !ok {
		errs.Add("object.metadata.order_id", "is required")
	}
	if err := errs.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	log := logger.Logger.With().
		Str("payment_id", ev.Object.ID).
		Str("event", ev.Event).
		Str("gateway_status", ev.Object.Status).
		Int64("order_id", orderID).
		Logger()

	p, err := s.payments.GetByExternalID(ctx, ev.Object.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn().Msg("webhook for unknown payment")
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("load payment: %w", err)
	}
	if p.OrderID != orderID {
		log.Warn().Int64("payment_order_id", p.OrderID).Msg("webhook order id does not match payment")
		return nil, ErrOrderMismatch
	}
	if ev.Object.Amount != nil && !amountEqual(ev.Object.Amount.Value, yookassa.FormatAmount(p.Amount)) {
		log.Warn().Str("amount", ev.Object.Amount.Value).Float64("expected", p.Amount).Msg("webhook amount mismatch")
		return nil, ErrAmountMismatch
	}

	res := &Result{PaymentID: p.ExternalID, OrderID: p.OrderID}
	status := domain.PaymentStatus(ev.Object.Status)
	if !status.Valid() {
		log.Warn().Msg("unrecognised gateway status, order treated as awaiting payment")
	}
	if p.Status.IsTerminal() {
		log.Info().Str("stored_status", string(p.Status)).Msg("payment already final, webhook ignored")
		return res, nil
	}

	applied, err := s.payments.ApplyStatus(ctx, p.ID, status, string(raw))
	if err != nil {
		log.Error().Err(err).Str("op", "apply_payment_status").Msg("webhook reconciliation failed")
		return nil, fmt.Errorf("apply payment status: %w", err)
	}
	res.Changed = applied.PaymentChanged || applied.OrderChanged
	if applied.Order != nil {
		res.OrderStatus = applied.Order.Status
	}
	log.Info().
		Bool("payment_changed", applied.PaymentChanged).
		Bool("order_changed", applied.OrderChanged).
		Str("order_status", string(res.OrderStatus)).
		Msg("webhook processed")

	if applied.OrderChanged && applied.Order.Status == domain.OrderPaid && s.notifier != nil {
		if err := s.notifier.PaymentSucceeded(ctx, applied.Order); err != nil {
			log.Error().Err(err).Msg("payment success notification failed")
		}
	}
	return res, nil
}

func amountEqual(a, b string) bool {
	ar, ok := new(big.Rat).SetString(strings.TrimSpace(a))
	if !ok {
		return false
	}
	br, ok := new(big.Rat).SetString(strings.TrimSpace(b))
	if !ok {
		return false
	}
	return ar.Cmp(br) == 0
}
