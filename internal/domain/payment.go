package domain

import "time"

// PaymentStatus follows the YooKassa vocabulary.
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentWaitingForCapture PaymentStatus = "waiting_for_capture"
	PaymentSucceeded         PaymentStatus = "succeeded"
	PaymentCanceled          PaymentStatus = "canceled"
)

var TerminalPaymentStatuses = []PaymentStatus{PaymentSucceeded, PaymentCanceled}

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentWaitingForCapture, PaymentSucceeded, PaymentCanceled:
		return true
	}
	return false
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentSucceeded || s == PaymentCanceled
}

// OrderStatusFor maps a gateway payment status onto the order lifecycle.
func OrderStatusFor(s PaymentStatus) OrderStatus {
	switch s {
	case PaymentSucceeded:
		return OrderPaid
	case PaymentCanceled:
		return OrderCancelled
	case PaymentWaitingForCapture:
		return OrderAwaitingConfirmation
	default:
		return OrderAwaitingPayment
	}
}

type Payment struct {
	ID              int64         `gorm:"primaryKey" json:"id"`
	OrderID         int64         `gorm:"index;not null" json:"order_id"`
	ExternalID      string        `gorm:"type:varchar(64);uniqueIndex;not null" json:"external_id"`
	IdempotencyKey  string        `gorm:"type:varchar(64)" json:"-"`
	Amount          float64       `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency        string        `gorm:"type:varchar(3);not null" json:"currency"`
	Status          PaymentStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	ConfirmationURL string        `gorm:"type:text" json:"confirmation_url,omitempty"`
	GatewayData     string        `gorm:"type:text" json:"-"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
