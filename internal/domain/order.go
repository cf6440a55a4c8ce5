package domain

import "time"

type ServiceType string

const (
	ServiceRankBoost ServiceType = "rank_boost"
	ServiceWinsBoost ServiceType = "wins_boost"
	ServicePlacement ServiceType = "placement"
	ServiceCoaching  ServiceType = "coaching"
	ServiceCustom    ServiceType = "custom"
)

type ContactType string

const (
	ContactTelegram ContactType = "telegram"
	ContactDiscord  ContactType = "discord"
	ContactEmail    ContactType = "email"
)

type OrderStatus string

const (
	OrderPending              OrderStatus = "pending"
	OrderAwaitingPayment      OrderStatus = "awaiting_payment"
	OrderAwaitingConfirmation OrderStatus = "awaiting_confirmation"
	OrderPaid                 OrderStatus = "paid"
	OrderProcessing           OrderStatus = "processing"
	OrderCompleted            OrderStatus = "completed"
	OrderCancelled            OrderStatus = "cancelled"
	OrderRefunded             OrderStatus = "refunded"
)

// PreTerminalOrderStatuses are the statuses a payment notification may still move.
var PreTerminalOrderStatuses = []OrderStatus{
	OrderPending,
	OrderAwaitingPayment,
	OrderAwaitingConfirmation,
}

var orderStatusRank = map[OrderStatus]int{
	OrderPending:              0,
	OrderAwaitingPayment:      1,
	OrderAwaitingConfirmation: 2,
	OrderPaid:                 3,
	OrderProcessing:           4,
	OrderCompleted:            5,
	OrderRefunded:             6,
}

func (s OrderStatus) Valid() bool {
	_, ok := orderStatusRank[s]
	return ok || s == OrderCancelled
}

func (s OrderStatus) IsPreTerminal() bool {
	for _, st := range PreTerminalOrderStatuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanAutoTransition reports whether a gateway-driven change from -> to is allowed.
// Only pre-terminal orders move, and only forward or into cancelled.
func CanAutoTransition(from, to OrderStatus) bool {
	if !from.IsPreTerminal() || from == to || !to.Valid() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return orderStatusRank[to] > orderStatusRank[from]
}

// CanAdminTransition reports whether an operator may move an order from -> to.
// Manual cancellation is the only backward move and is refused once the order
// is completed, refunded or already cancelled.
func CanAdminTransition(from, to OrderStatus) bool {
	if from == to || !to.Valid() {
		return false
	}
	if from == OrderCancelled || from == OrderRefunded {
		return false
	}
	if to == OrderCancelled {
		return from != OrderCompleted
	}
	if to == OrderRefunded && orderStatusRank[from] < orderStatusRank[OrderPaid] {
		return false
	}
	return orderStatusRank[to] > orderStatusRank[from]
}

type Order struct {
	ID          int64       `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`
	ServiceType ServiceType `gorm:"type:varchar(20);not null;index" json:"service_type"`
	CurrentRank string      `gorm:"type:varchar(32)" json:"current_rank,omitempty"`
	TargetRank  string      `gorm:"type:varchar(32)" json:"target_rank,omitempty"`
	Wins        *int        `json:"wins,omitempty"`
	Hours       *int        `json:"hours,omitempty"`
	Region      string      `gorm:"type:varchar(16)" json:"region"`
	ContactType ContactType `gorm:"type:varchar(16);not null" json:"contact_type"`
	Contact     string      `gorm:"type:varchar(255);not null" json:"contact"`
	Amount      float64     `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency    string      `gorm:"type:varchar(3);not null" json:"currency"`
	Notes       string      `gorm:"type:text" json:"notes,omitempty"`
	Status      OrderStatus `gorm:"type:varchar(32);not null;index" json:"status"`
	PaymentID   *int64      `gorm:"index" json:"payment_id,omitempty"`

	// Audit only, never serialized to public callers.
	IPAddress string `gorm:"type:varchar(64)" json:"-"`
	UserAgent string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Payment *Payment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

func (Order) TableName() string { return "orders" }

type OrderStatusHistory struct {
	ID        int64       `gorm:"primaryKey" json:"id"`
	OrderID   int64       `gorm:"index;not null" json:"order_id"`
	OldStatus OrderStatus `gorm:"type:varchar(32)" json:"old_status"`
	NewStatus OrderStatus `gorm:"type:varchar(32);not null" json:"new_status"`
	ChangedBy string      `gorm:"type:varchar(64);not null" json:"changed_by"`
	Comment   string      `gorm:"type:text" json:"comment,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
