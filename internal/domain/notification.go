package domain

import "time"

type NotificationType string

const (
	NotificationTypeMoneySent         NotificationType = "MONEY_SENT"
	NotificationTypeMoneyReceived     NotificationType = "MONEY_RECEIVED"
	NotificationTypeTransferCompleted NotificationType = "TRANSFER_COMPLETED"
	NotificationTypeTransferFailed    NotificationType = "TRANSFER_FAILED"
	NotificationTypeBankLoginRequired NotificationType = "BANK_LOGIN_REQUIRED"
	NotificationTypeBankDisconnected  NotificationType = "BANK_DISCONNECTED"
)

type NotificationChannel string

const (
	NotificationChannelInApp NotificationChannel = "IN_APP"
	NotificationChannelEmail NotificationChannel = "EMAIL"
)

type Notification struct {
	ID                   string           `json:"id"`
	UserID               string           `json:"user_id"`
	Type                 NotificationType `json:"type"`
	Title                string           `json:"title"`
	Message              string           `json:"message"`
	RelatedTransactionID *string          `json:"related_transaction_id,omitempty"`
	ActionURL            *string          `json:"action_url,omitempty"`
	IsRead               bool             `json:"is_read"`
	CreatedAt            time.Time        `json:"created_at"`
}

// NotificationPreference holds per-channel opt-ins for one (user, type) pair.
// A missing row means both channels are enabled.
type NotificationPreference struct {
	UserID string           `json:"user_id"`
	Type   NotificationType `json:"type"`
	InApp  bool             `json:"in_app"`
	Email  bool             `json:"email"`
}

// Allows reports whether the preference permits delivery on channel.
func (p *NotificationPreference) Allows(channel NotificationChannel) bool {
	if p == nil {
		return true
	}
	switch channel {
	case NotificationChannelInApp:
		return p.InApp
	case NotificationChannelEmail:
		return p.Email
	default:
		return false
	}
}
