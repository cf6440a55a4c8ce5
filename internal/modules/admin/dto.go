package admin

import (
	"encoding/json"
	"time"

	"vabboost/internal/domain"
	"vabboost/internal/repository"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64" example:"root"`
	Password string `json:"password" validate:"required,max=128" example:"secret"`
}

type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type" example:"Bearer"`
	ExpiresAt   time.Time `json:"expires_at"`
	Username    string    `json:"username"`
}

// ListOrdersQuery mirrors the query string of GET /admin/orders.
type ListOrdersQuery struct {
	Status   string
	DateFrom string
	DateTo   string
	Search   string
	Sort     string
	Order    string
	Page     int
	PerPage  int
}

type OrderListItem struct {
	ID            int64                 `json:"id"`
	OrderNumber   string                `json:"order_number"`
	ServiceType   domain.ServiceType    `json:"service_type"`
	ContactType   domain.ContactType    `json:"contact_type"`
	Contact       string                `json:"contact"`
	Amount        float64               `json:"amount"`
	Currency      string                `json:"currency"`
	Status        domain.OrderStatus    `json:"status"`
	PaymentStatus *domain.PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time             `json:"created_at"`
}

type Pagination struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type OrderListResponse struct {
	Orders     []OrderListItem `json:"orders"`
	Pagination Pagination      `json:"pagination"`
}

type PaymentDetails struct {
	ID              int64                `json:"id"`
	ExternalID      string               `json:"external_id"`
	Amount          float64              `json:"amount"`
	Currency        string               `json:"currency"`
	Status          domain.PaymentStatus `json:"status"`
	ConfirmationURL string               `json:"confirmation_url,omitempty"`
	GatewayData     json.RawMessage      `json:"gateway_data,omitempty" swaggertype:"object"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// OrderDetails is the full operator view, audit fields included.
type OrderDetails struct {
	ID          int64                       `json:"id"`
	OrderNumber string                      `json:"order_number"`
	ServiceType domain.ServiceType          `json:"service_type"`
	CurrentRank string                      `json:"current_rank,omitempty"`
	TargetRank  string                      `json:"target_rank,omitempty"`
	Wins        *int                        `json:"wins,omitempty"`
	Hours       *int                        `json:"hours,omitempty"`
	Region      string                      `json:"region"`
	ContactType domain.ContactType          `json:"contact_type"`
	Contact     string                      `json:"contact"`
	Amount      float64                     `json:"amount"`
	Currency    string                      `json:"currency"`
	Notes       string                      `json:"notes,omitempty"`
	Status      domain.OrderStatus          `json:"status"`
	IPAddress   string                      `json:"ip_address"`
	UserAgent   string                      `json:"user_agent"`
	Payment     *PaymentDetails             `json:"payment"`
	History     []domain.OrderStatusHistory `json:"history"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

type UpdateStatusRequest struct {
	Status  string `json:"status" validate:"required,oneof=pending awaiting_payment awaiting_confirmation paid processing completed cancelled refunded" example:"processing"`
	Comment string `json:"comment" validate:"max=500"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=2000" example:"booster assigned"`
}

type RevenueQuery struct {
	Period    string
	StartDate string
	EndDate   string
}

type RevenueResponse struct {
	Period    string    `json:"period"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	StartDate string    `json:"start_date,omitempty"`
	EndDate   string    `json:"end_date,omitempty"`
	*repository.RevenueStats
}

func newListItem(o *domain.Order) OrderListItem {
	item := OrderListItem{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		ServiceType: o.ServiceType,
		ContactType: o.ContactType,
		Contact:     o.Contact,
		Amount:      o.Amount,
		Currency:    o.Currency,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
	if o.Payment != nil {
		ps := o.Payment.Status
		item.PaymentStatus = &ps
	}
	return item
}

func newOrderDetails(o *domain.Order, history []domain.OrderStatusHistory) *OrderDetails {
	d := &OrderDetails{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		ServiceType: o.ServiceType,
		CurrentRank: o.CurrentRank,
		TargetRank:  o.TargetRank,
		Wins:        o.Wins,
		Hours:       o.Hours,
		Region:      o.Region,
		ContactType: o.ContactType,
		Contact:     o.Contact,
		Amount:      o.Amount,
		Currency:    o.Currency,
		Notes:       o.Notes,
		Status:      o.Status,
		IPAddress:   o.IPAddress,
		UserAgent:   o.UserAgent,
		History:     history,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if d.History == nil {
		d.History = []domain.OrderStatusHistory{}
	}
	if p := o.Payment; p != nil {
		d.Payment = &PaymentDetails{
			ID:              p.ID,
			ExternalID:      p.ExternalID,
			Amount:          p.Amount,
			Currency:        p.Currency,
			Status:          p.Status,
			ConfirmationURL: p.ConfirmationURL,
			CreatedAt:       p.CreatedAt,
			UpdatedAt:       p.UpdatedAt,
		}
		if p.GatewayData != "" && json.Valid([]byte(p.GatewayData)) {
			d.Payment.GatewayData = json.RawMessage(p.GatewayData)
		}
	}
	return d
}
