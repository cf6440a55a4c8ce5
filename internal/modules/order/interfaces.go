package order

import (
	"context"

	"vabboost/internal/domain"
	"vabboost/internal/modules/pricing"
	"vabboost/internal/pkg/yookassa"
	"vabboost/internal/repository"
)

type orderRepo interface {
	CreateWithPayment(ctx context.Context, o *domain.Order, createPayment repository.PaymentCreator) error
	CreateCancelled(ctx context.Context, o *domain.Order, reason string) error
	GetByRef(ctx context.Context, ref string) (*domain.Order, error)
	GetStatus(ctx context.Context, ref string) (*repository.OrderStatusView, error)
}

type paymentGateway interface {
	CreatePayment(ctx context.Context, req yookassa.CreatePaymentRequest) (*yookassa.Payment, error)
}

type quoter interface {
	Calculate(service domain.ServiceType, p pricing.Params) (*pricing.Quote, error)
}

type notifier interface {
	OrderAccepted(ctx context.Context, o *domain.Order) error
}
