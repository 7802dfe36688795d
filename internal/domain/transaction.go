package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusSuccess   TransactionStatus = "SUCCESS"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReturned  TransactionStatus = "RETURNED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s TransactionStatus) IsTerminal() bool {
	return s != TransactionStatusPending
}

type TransactionType string

const (
	TransactionTypeInternal    TransactionType = "INTERNAL"
	TransactionTypeP2PSent     TransactionType = "P2P_SENT"
	TransactionTypeP2PReceived TransactionType = "P2P_RECEIVED"
	TransactionTypeDeposit     TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal  TransactionType = "WITHDRAWAL"
)

// RecipientLegSuffix is appended to the rail reference on the credit leg of a P2P
// transfer so one webhook can match both legs.
const RecipientLegSuffix = "-recipient"

// RecipientLegRef returns the reference stored on the credit leg of a P2P pair.
func RecipientLegRef(ref string) string {
	return ref + RecipientLegSuffix
}

// MatchingRefs returns every reference a rail event for ref must update.
func MatchingRefs(ref string) []string {
	return []string{ref, RecipientLegRef(ref)}
}

// Transaction is one ledger entry: a signed monetary effect on one bank account.
type Transaction struct {
	ID              string            `json:"id"`
	BankID          string            `json:"bank_id"`
	Amount          decimal.Decimal   `json:"amount"` // positive for credit, negative for debit
	Name            string            `json:"name"`   // counterparty display name
	Date            time.Time         `json:"date"`
	Status          TransactionStatus `json:"status"`
	Pending         bool              `json:"pending"`
	Type            TransactionType   `json:"type"`
	SenderUserID    *string           `json:"sender_user_id,omitempty"`
	RecipientUserID *string           `json:"recipient_user_id,omitempty"`
	TransferRef     string            `json:"transfer_ref"`
	Note            *string           `json:"note,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// IsP2P reports whether the entry is one leg of a person-to-person pair.
func (t *Transaction) IsP2P() bool {
	return t.SenderUserID != nil || t.RecipientUserID != nil
}
