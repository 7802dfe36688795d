package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
)

// ReportStalePending lists transfers still PENDING well past normal ACH settlement.
// Their webhook was most likely lost; an operator has to reconcile them with the rail.
func (jr *JobRunner) ReportStalePending() error {
	return jr.runWithRecovery(JobStalePendingReport, func() error {
		ctx := context.Background()
		cfg := jr.config.Scheduler

		cutoff := jr.now().Add(-time.Duration(cfg.StalePendingAfterHours) * time.Hour)
		stale, err := jr.txRepo.ListStalePending(ctx, cutoff, cfg.StalePendingBatchSize)
		if err != nil {
			return fmt.Errorf("list stale pending transactions: %w", err)
		}

		if len(stale) == 0 {
			logger.Info("No stale pending transactions", "cutoff", cutoff)
			return nil
		}

		for _, tx := range stale {
			logger.Warn("Transaction pending past settlement window",
				"transaction_id", tx.ID,
				"transfer_ref", tx.TransferRef,
				"type", tx.Type,
				"amount", tx.Amount.StringFixed(2),
				"created_at", tx.CreatedAt)
		}

		if cfg.OperatorEmail == "" {
			return nil
		}
		subject := fmt.Sprintf("%d transfers pending for more than %d hours", len(stale), cfg.StalePendingAfterHours)
		if err := jr.email.SendEmail(ctx, cfg.OperatorEmail, "Operations", subject, staleReportBody(stale, cutoff)); err != nil {
			return fmt.Errorf("send stale pending report: %w", err)
		}
		logger.Info("Stale pending report sent", "count", len(stale), "to", cfg.OperatorEmail)
		return nil
	})
}

func staleReportBody(stale []domain.Transaction, cutoff time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The following transfers were created before %s and are still PENDING.\n", cutoff.UTC().Format(time.RFC3339))
	b.WriteString("Check their status with the payment rail and replay the missing webhooks.\n\n")
	for _, tx := range stale {
		fmt.Fprintf(&b, "- %s  ref=%s  type=%s  amount=%s  created=%s\n",
			tx.ID, tx.TransferRef, tx.Type, tx.Amount.StringFixed(2), tx.CreatedAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
