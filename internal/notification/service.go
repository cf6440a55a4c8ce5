// Package notification queues customer messages for the order's contact channel.
package notification

import (
	"context"
	"fmt"

	"vabboost/internal/domain"
	"vabboost/internal/pkg/logger"
)

type store interface {
	Create(ctx context.Context, n *domain.Notification) error
}

type Message struct {
	OrderID int64
	Channel domain.ContactType
	Address string
	Subject string
	Body    string
}

type Service struct {
	store store
}

func NewService(store store) *Service {
	return &Service{store: store}
}

// Enqueue stores a message in the outbox. Delivery belongs to whatever
// worker drains the notifications table.
func (s *Service) Enqueue(ctx context.Context, m Message) error {
	if m.Address == "" || m.Channel == "" {
		return fmt.Errorf("notification for order %d has no contact", m.OrderID)
	}
	n := &domain.Notification{
		OrderID: m.OrderID,
		Channel: m.Channel,
		Address: m.Address,
		Subject: m.Subject,
		Message: m.Body,
		Status:  domain.NotificationQueued,
	}
	if err := s.store.Create(ctx, n); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	logger.Logger.Info().
		Int64("order_id", m.OrderID).
		Str("channel", string(m.Channel)).
		Str("subject", m.Subject).
		Msg("notification queued")
	return nil
}

func (s *Service) OrderAccepted(ctx context.Context, o *domain.Order) error {
	return s.Enqueue(ctx, Message{
		OrderID: o.ID,
		Channel: o.ContactType,
		Address: o.Contact,
		Subject: "Order " + o.OrderNumber + " accepted",
		Body:    fmt.Sprintf("Your order %s for %.2f %s is waiting for payment.", o.OrderNumber, o.Amount, o.Currency),
	})
}

func (s *Service) PaymentSucceeded(ctx context.Context, o *domain.Order) error {
	return s.Enqueue(ctx, Message{
		OrderID: o.ID,
		Channel: o.ContactType,
		Address: o.Contact,
		Subject: "Order " + o.OrderNumber + " paid",
		Body:    fmt.Sprintf("Payment for order %s received. We will contact you shortly to start.", o.OrderNumber),
	})
}
