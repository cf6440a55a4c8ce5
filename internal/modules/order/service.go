package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"vabboost/internal/domain"
	"vabboost/internal/modules/pricing"
	"vabboost/internal/pkg/logger"
	"vabboost/internal/pkg/validator"
	"vabboost/internal/pkg/yookassa"
	"vabboost/internal/repository"
)

// A concurrent insert can win the order number race before any remote call is
// made, so the whole creation is retried a few times.
const maxCreateAttempts = 3

type Config struct {
	Currency  string
	MaxAmount float64
	ReturnURL string
}

// PaymentFailedError reports a gateway failure. The order was persisted as
// cancelled under OrderNumber and the customer may resubmit.
type PaymentFailedError struct {
	OrderNumber string
	Cause       error
}

func (e *PaymentFailedError) Error() string {
	return fmt.Sprintf("payment creation failed for order %s: %v", e.OrderNumber, e.Cause)
}

func (e *PaymentFailedError) Unwrap() []error { return []error{ErrPaymentCreationFailed, e.Cause} }

type Service struct {
	orders   orderRepo
	gateway  paymentGateway
	pricing  quoter
	notifier notifier
	cfg      Config
}

func NewService(orders orderRepo, gateway paymentGateway, pricing quoter, notifier notifier, cfg Config) *Service {
	return &Service{orders: orders, gateway: gateway, pricing: pricing, notifier: notifier, cfg: cfg}
}

func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest, meta RequestMeta) (*CreateOrderResponse, error) {
	o, err := s.buildOrder(req, meta)
	if err != nil {
		return nil, err
	}

	var remote *yookassa.Payment
	createPayment := func(ctx context.Context, o *domain.Order) (*domain.Payment, error) {
		gp, err := s.gateway.CreatePayment(ctx, s.paymentRequest(o))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrPaymentCreationFailed, err)
		}
		remote = gp
		status := domain.PaymentStatus(gp.Status)
		if status == "" {
			status = domain.PaymentPending
		}
		return &domain.Payment{
			ExternalID:      gp.ID,
			IdempotencyKey:  gp.IdempotencyKey,
			Amount:          o.Amount,
			Currency:        o.Currency,
			Status:          status,
			ConfirmationURL: gp.ConfirmationURL,
			GatewayData:     string(gp.Raw),
		}, nil
	}

	for attempt := 1; ; attempt++ {
		o.ID, o.OrderNumber, o.PaymentID, o.Payment = 0, "", nil, nil
		remote = nil
		err = s.orders.CreateWithPayment(ctx, o, createPayment)
		if err == nil || !repository.IsOrderNumberConflict(err) || attempt >= maxCreateAttempts {
			break
		}
		logger.Logger.Warn().Err(err).Int("attempt", attempt).Msg("order number conflict, retrying creation")
	}

	if err != nil {
		if errors.Is(err, ErrPaymentCreationFailed) {
			return nil, s.cancelAfterGatewayFailure(ctx, o, err)
		}
		ev := logger.Logger.Error().Err(err).Str("op", "create_order").Str("order_number", o.OrderNumber)
		if remote != nil {
			// The remote payment exists but nothing references it locally.
			ev = ev.Str("payment_id", remote.ID).Str("idempotence_key", remote.IdempotencyKey)
		}
		ev.Msg("order creation failed")
		return nil, fmt.Errorf("create order: %w", err)
	}

	logger.Logger.Info().
		Int64("order_id", o.ID).
		Str("order_number", o.OrderNumber).
		Str("payment_id", o.Payment.ExternalID).
		Float64("amount", o.Amount).
		Msg("order created")

	if o.ContactType == domain.ContactEmail && s.notifier != nil {
		if nerr := s.notifier.OrderAccepted(ctx, o); nerr != nil {
			logger.Logger.Error().Err(nerr).Int64("order_id", o.ID).Msg("order accepted notification failed")
		}
	}

	return &CreateOrderResponse{
		Order: OrderSummary{
			ID:          o.ID,
			OrderNumber: o.OrderNumber,
			Amount:      o.Amount,
			Currency:    o.Currency,
			Status:      o.Status,
		},
		Payment: PaymentSummary{
			ID:              o.Payment.ExternalID,
			Status:          o.Payment.Status,
			ConfirmationURL: o.Payment.ConfirmationURL,
		},
	}, nil
}

func (s *Service) cancelAfterGatewayFailure(ctx context.Context, o *domain.Order, cause error) error {
	attempted := o.OrderNumber
	logger.Logger.Error().
		Err(cause).
		Str("op", "create_payment").
		Str("order_number", attempted).
		Float64("amount", o.Amount).
		Msg("payment gateway failed, cancelling order")

	err := s.orders.CreateCancelled(ctx, o, "payment creation failed")
	if repository.IsOrderNumberConflict(err) {
		o.OrderNumber = ""
		err = s.orders.CreateCancelled(ctx, o, "payment creation failed")
	}
	if err != nil {
		logger.Logger.Error().Err(err).Str("order_number", attempted).Msg("failed to record cancelled order")
		return &PaymentFailedError{Cause: cause}
	}
	return &PaymentFailedError{OrderNumber: o.OrderNumber, Cause: cause}
}

func (s *Service) paymentRequest(o *domain.Order) yookassa.CreatePaymentRequest {
	req := yookassa.CreatePaymentRequest{
		Amount:      o.Amount,
		Currency:    o.Currency,
		Description: fmt.Sprintf("Order %s: %s", o.OrderNumber, strings.ReplaceAll(string(o.ServiceType), "_", " ")),
		ReturnURL:   s.returnURL(o.OrderNumber),
		Metadata: map[string]string{
			"order_id":     strconv.FormatInt(o.ID, 10),
			"order_number": o.OrderNumber,
		},
	}
	if o.ContactType == domain.ContactEmail {
		req.ReceiptEmail = o.Contact
	}
	return req
}

func (s *Service) returnURL(orderNumber string) string {
	u, err := url.Parse(s.cfg.ReturnURL)
	if err != nil {
		return s.cfg.ReturnURL
	}
	q := u.Query()
	q.Set("order", orderNumber)
	u.RawQuery = q.Encode()
	return u.String()
}

// buildOrder validates the request and prices it. Every problem is reported
// in one *validator.Errors.
func (s *Service) buildOrder(req CreateOrderRequest, meta RequestMeta) (*domain.Order, error) {
	req.Contact = strings.TrimSpace(req.Contact)
	errs := validator.Struct(req)
	if req.ContactType == string(domain.ContactEmail) && req.Contact != "" {
		errs.Var("contact", req.Contact, "email")
	}

	amountOK := true
	if req.Amount != nil {
		amountOK = s.checkAmount(errs, *req.Amount)
	}

	service := domain.ServiceType(req.ServiceType)
	var amount float64
	switch {
	case errs.Has("service_type"):
	case service == domain.ServiceCustom:
		if req.Amount == nil {
			errs.Add("amount", "is required for custom orders")
		} else {
			amount = *req.Amount
		}
	default:
		q, err := s.pricing.Calculate(service, pricing.Params{
			CurrentRank: req.CurrentRank,
			TargetRank:  req.TargetRank,
			Wins:        req.Wins,
			Hours:       req.Hours,
			Region:      req.Region,
		})
		var verrs *validator.Errors
		switch {
		case errors.As(err, &verrs):
			errs.Merge(err)
		case err != nil:
			errs.Add("service_type", err.Error())
		default:
			amount = float64(q.Price)
			if req.Amount != nil && amountOK && math.Abs(*req.Amount-amount) >= 0.005 {
				errs.Add("amount", fmt.Sprintf("does not match quoted price %d", q.Price))
			} else if req.Amount == nil {
				s.checkAmount(errs, amount)
			}
		}
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}

	return &domain.Order{
		ServiceType: service,
		CurrentRank: strings.ToLower(strings.TrimSpace(req.CurrentRank)),
		TargetRank:  strings.ToLower(strings.TrimSpace(req.TargetRank)),
		Wins:        req.Wins,
		Hours:       req.Hours,
		Region:      strings.ToUpper(strings.TrimSpace(req.Region)),
		ContactType: domain.ContactType(req.ContactType),
		Contact:     req.Contact,
		Amount:      amount,
		Currency:    s.cfg.Currency,
		Notes:       strings.TrimSpace(req.Notes),
		IPAddress:   meta.IP,
		UserAgent:   meta.UserAgent,
	}, nil
}

func (s *Service) checkAmount(errs *validator.Errors, amount float64) bool {
	switch {
	case amount <= 0:
		errs.Add("amount", "must be greater than 0")
	case amount > s.cfg.MaxAmount:
		errs.Add("amount", fmt.Sprintf("must not exceed %.0f", s.cfg.MaxAmount))
	case math.Abs(amount*100-math.Round(amount*100)) > 1e-6:
		errs.Add("amount", "must have at most 2 decimal places")
	default:
		return true
	}
	return false
}

func (s *Service) GetOrder(ctx context.Context, ref string) (*OrderView, error) {
	o, err := s.orders.GetByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	v := NewOrderView(o)
	return &v, nil
}

func (s *Service) GetStatus(ctx context.Context, ref string) (*repository.OrderStatusView, error) {
	v, err := s.orders.GetStatus(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return v, nil
}
