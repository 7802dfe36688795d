package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"moneylink-backend/internal/domain"
)

// TxManager runs fn inside one database transaction. Repository calls made with
// the ctx passed to fn join that transaction.
type TxManager interface {
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	// CreateMany inserts all entries in a single statement.
	CreateMany(ctx context.Context, txs []*domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	// SumP2PSentSince returns the absolute total of the sender's P2P_SENT entries
	// dated at or after since, excluding FAILED entries.
	SumP2PSentSince(ctx context.Context, senderUserID string, since time.Time) (decimal.Decimal, error)
	// TransitionPendingByRef moves every PENDING entry whose reference is in refs to
	// status in one statement and returns the rows it changed.
	TransitionPendingByRef(ctx context.Context, refs []string, status domain.TransactionStatus) ([]domain.Transaction, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error)
}

type BankRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Bank, error)
	GetByItemID(ctx context.Context, itemID string) (*domain.Bank, error)
	GetByFundingSourceRef(ctx context.Context, ref string) (*domain.Bank, error)
	// GetFirstTransferable returns the user's oldest bank that has a funding source.
	GetFirstTransferable(ctx context.Context, userID string) (*domain.Bank, error)
	UpdateStatus(ctx context.Context, id string, status domain.BankStatus) error
	ClearFundingSource(ctx context.Context, id string) error
}

type WebhookEventRepository interface {
	// Insert records the event and reports false when the id was already recorded.
	Insert(ctx context.Context, event *domain.WebhookEvent) (bool, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID string) error
}

type PreferenceRepository interface {
	// Get returns nil without error when the user has no stored preference.
	Get(ctx context.Context, userID string, notificationType domain.NotificationType) (*domain.NotificationPreference, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
