package service

import (
	"context"

	"github.com/shopspring/decimal"

	"moneylink-backend/internal/domain"
)

type LimitValidator interface {
	CheckAmount(amount decimal.Decimal) *LimitResult
	Validate(ctx context.Context, senderID string, amount decimal.Decimal) (*LimitResult, error)
}

type TransferService interface {
	CreateP2PTransfer(ctx context.Context, req P2PTransferRequest) (*P2PTransferResult, error)
	CreateBankTransfer(ctx context.Context, req BankTransferRequest) (*domain.Transaction, error)
	CancelTransfer(ctx context.Context, userID, transactionID string) (*domain.Transaction, error)
}

type WebhookService interface {
	// HandleRailEvent authenticates, deduplicates and dispatches one rail delivery.
	// Only authentication, malformed envelopes and storage failures before the
	// idempotency record is written are reported; later failures are logged.
	HandleRailEvent(ctx context.Context, rawBody []byte, signature string) error
	HandleAggregatorEvent(ctx context.Context, rawBody []byte) error
}

type ReconciliationService interface {
	Reconcile(ctx context.Context, resourceID, topic string) error
}

type BankHealthService interface {
	HandleItemEvent(ctx context.Context, event domain.AggregatorEvent) error
	HandleFundingSourceRemoved(ctx context.Context, fundingSourceRef string) error
}

type NotificationService interface {
	Create(ctx context.Context, input NotificationInput) error
	ShouldNotify(ctx context.Context, userID string, notificationType domain.NotificationType, channel domain.NotificationChannel) (bool, error)
	GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, notificationID string) error
}

type EmailService interface {
	SendEmail(ctx context.Context, toEmail, toName, subject, plainText string) error
}

// PushSender delivers a notification to the user's devices.
type PushSender interface {
	Push(ctx context.Context, n *domain.Notification) error
}

type LimitResult struct {
	Valid     bool
	Reason    string
	Remaining decimal.Decimal
}

type P2PTransferRequest struct {
	SenderID     string
	RecipientID  string
	SenderBankID string
	Amount       decimal.Decimal
	Note         *string
}

type P2PTransferResult struct {
	SenderLeg    *domain.Transaction
	RecipientLeg *domain.Transaction
	TransferRef  string
}

type BankTransferRequest struct {
	UserID            string
	SourceBankID      string
	DestinationBankID string
	Amount            decimal.Decimal
	Note              *string
}

type NotificationInput struct {
	UserID               string
	Type                 domain.NotificationType
	Title                string
	Message              string
	RelatedTransactionID *string
	ActionURL            *string
}
