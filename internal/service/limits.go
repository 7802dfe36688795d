package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/metrics"
	"moneylink-backend/internal/repository"
)

// weeklyWindow is a fixed duration, not seven calendar days, so DST changes
// never shift it.
const weeklyWindow = 7 * 24 * time.Hour

// Limits are inclusive upper bounds on P2P sends. Day boundaries are computed in
// Location.
type Limits struct {
	PerTransaction decimal.Decimal
	Daily          decimal.Decimal
	Weekly         decimal.Decimal
	Location       *time.Location
}

type limitValidator struct {
	txRepo repository.TransactionRepository
	limits Limits
	now    func() time.Time
}

func NewLimitValidator(txRepo repository.TransactionRepository, limits Limits) LimitValidator {
	if limits.Location == nil {
		limits.Location = time.UTC
	}
	return &limitValidator{txRepo: txRepo, limits: limits, now: time.Now}
}

// CheckAmount applies the rules that do not depend on the sender's history.
func (v *limitValidator) CheckAmount(amount decimal.Decimal) *LimitResult {
	if !amount.IsPositive() {
		metrics.LimitRejections.WithLabelValues("invalid_amount").Inc()
		return &LimitResult{Reason: "Amount must be greater than zero"}
	}
	if amount.GreaterThan(v.limits.PerTransaction) {
		metrics.LimitRejections.WithLabelValues("per_transaction").Inc()
		return &LimitResult{
			Reason: fmt.Sprintf("Amount exceeds the per-transaction limit of %s", formatMoney(v.limits.PerTransaction)),
		}
	}
	return &LimitResult{Valid: true}
}

func (v *limitValidator) Validate(ctx context.Context, senderID string, amount decimal.Decimal) (*LimitResult, error) {
	if check := v.CheckAmount(amount); !check.Valid {
		return check, nil
	}

	now := v.now().In(v.limits.Location)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, v.limits.Location)

	windows := []struct {
		rule  string
		label string
		since time.Time
		limit decimal.Decimal
	}{
		{rule: "daily", label: "Daily", since: dayStart, limit: v.limits.Daily},
		{rule: "weekly", label: "Weekly", since: now.Add(-weeklyWindow), limit: v.limits.Weekly},
	}

	for _, w := range windows {
		sent, err := v.txRepo.SumP2PSentSince(ctx, senderID, w.since)
		if err != nil {
			return nil, fmt.Errorf("sum %s p2p volume: %w", w.rule, err)
		}
		if sent.Add(amount).LessThanOrEqual(w.limit) {
			continue
		}

		remaining := w.limit.Sub(sent)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		metrics.LimitRejections.WithLabelValues(w.rule).Inc()
		logger.Info("P2P limit exceeded", "senderID", senderID, "rule", w.rule, "sent", sent.StringFixed(2), "amount", amount.StringFixed(2))
		return &LimitResult{
			Reason:    fmt.Sprintf("%s transfer limit exceeded. Remaining: %s", w.label, formatMoney(remaining)),
			Remaining: remaining.Round(2),
		}, nil
	}

	return &LimitResult{Valid: true}, nil
}

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
