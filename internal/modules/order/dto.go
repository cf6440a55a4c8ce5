package order

import (
	"time"

	"vabboost/internal/domain"
)

type CreateOrderRequest struct {
	ServiceType string   `json:"service_type" validate:"required,oneof=rank_boost wins_boost placement coaching custom" example:"wins_boost"`
	CurrentRank string   `json:"current_rank" validate:"omitempty,max=32" example:"gold"`
	TargetRank  string   `json:"target_rank" validate:"omitempty,max=32" example:"diamond"`
	Wins        *int     `json:"wins" validate:"omitempty,max=100" example:"10"`
	Hours       *int     `json:"hours" validate:"omitempty,max=24" example:"2"`
	Region      string   `json:"region" validate:"omitempty,max=16" example:"RU"`
	ContactType string   `json:"contact_type" validate:"required,oneof=telegram discord email" example:"telegram"`
	Contact     string   `json:"contact" validate:"required,max=255" example:"@player"`
	Amount      *float64 `json:"amount" example:"2541"`
	Notes       string   `json:"notes" validate:"max=2000"`
}

// RequestMeta carries audit data taken from the HTTP request.
type RequestMeta struct {
	IP        string
	UserAgent string
}

type OrderSummary struct {
	ID          int64              `json:"id"`
	OrderNumber string             `json:"order_number"`
	Amount      float64            `json:"amount"`
	Currency    string             `json:"currency"`
	Status      domain.OrderStatus `json:"status"`
}

type PaymentSummary struct {
	ID              string               `json:"id"`
	Status          domain.PaymentStatus `json:"status"`
	ConfirmationURL string               `json:"confirmation_url"`
}

type CreateOrderResponse struct {
	Order   OrderSummary   `json:"order"`
	Payment PaymentSummary `json:"payment"`
}

// OrderView is the public projection of an order. It never includes audit
// fields or the raw gateway payload.
type OrderView struct {
	ID            int64                 `json:"id"`
	OrderNumber   string                `json:"order_number"`
	ServiceType   domain.ServiceType    `json:"service_type"`
	CurrentRank   string                `json:"current_rank,omitempty"`
	TargetRank    string                `json:"target_rank,omitempty"`
	Wins          *int                  `json:"wins,omitempty"`
	Hours         *int                  `json:"hours,omitempty"`
	Region        string                `json:"region"`
	Amount        float64               `json:"amount"`
	Currency      string                `json:"currency"`
	Status        domain.OrderStatus    `json:"status"`
	PaymentStatus *domain.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

func NewOrderView(o *domain.Order) OrderView {
	v := OrderView{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		ServiceType: o.ServiceType,
		CurrentRank: o.CurrentRank,
		TargetRank:  o.TargetRank,
		Wins:        o.Wins,
		Hours:       o.Hours,
		Region:      o.Region,
		Amount:      o.Amount,
		Currency:    o.Currency,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Payment != nil {
		st := o.Payment.Status
		v.PaymentStatus = &st
	}
	return v
}
