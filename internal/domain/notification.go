package domain

import "time"

type NotificationStatus string

const (
	NotificationQueued NotificationStatus = "queued"
	NotificationSent   NotificationStatus = "sent"
	NotificationFailed NotificationStatus = "failed"
)

// Notification is an outbox row; delivery to the contact channel happens elsewhere.
type Notification struct {
	ID        int64              `gorm:"primaryKey" json:"id"`
	OrderID   int64              `gorm:"index;not null" json:"order_id"`
	Channel   ContactType        `gorm:"type:varchar(16);not null" json:"channel"`
	Address   string             `gorm:"type:varchar(255);not null" json:"address"`
	Subject   string             `gorm:"type:varchar(255)" json:"subject"`
	Message   string             `gorm:"type:text;not null" json:"message"`
	Status    NotificationStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	CreatedAt time.Time          `json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
