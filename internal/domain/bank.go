package domain

import "time"

type BankStatus string

const (
	BankStatusActive        BankStatus = "ACTIVE"
	BankStatusLoginRequired BankStatus = "LOGIN_REQUIRED"
)

// Bank is a user's linked bank account. FundingSourceRef is set once the account
// is registered with the payment rail; transfers require it.
type Bank struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	InstitutionID    string     `json:"institution_id"`
	InstitutionName  string     `json:"institution_name"`
	ItemID           string     `json:"-"` // aggregator item id
	Mask             string     `json:"mask"`
	Status           BankStatus `json:"status"`
	FundingSourceRef *string    `json:"-"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// CanTransfer reports whether the bank is registered with the payment rail.
func (b *Bank) CanTransfer() bool {
	return b.FundingSourceRef != nil && *b.FundingSourceRef != ""
}

// DisplayName is used as the counterparty name on ledger entries.
func (b *Bank) DisplayName() string {
	if b.Mask == "" {
		return b.InstitutionName
	}
	return b.InstitutionName + " ••" + b.Mask
}
