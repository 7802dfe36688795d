package service

import (
	"context"
	"fmt"
	"strings"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/metrics"
	"moneylink-backend/internal/repository"
)

var completedTopics = map[string]bool{
	"transfer_completed":               true,
	"customer_transfer_completed":      true,
	"bank_transfer_completed":          true,
	"customer_bank_transfer_completed": true,
}

// statusForTopic maps a rail transfer topic to the ledger status it settles to.
func statusForTopic(topic string) (domain.TransactionStatus, bool) {
	switch {
	case completedTopics[topic]:
		return domain.TransactionStatusSuccess, true
	case !strings.Contains(topic, "transfer"):
		return "", false
	case strings.HasSuffix(topic, "_failed"), strings.HasSuffix(topic, "_cancelled"):
		return domain.TransactionStatusFailed, true
	case strings.HasSuffix(topic, "_returned"):
		return domain.TransactionStatusReturned, true
	default:
		return "", false
	}
}

type reconciliationService struct {
	txRepo   repository.TransactionRepository
	bankRepo repository.BankRepository
	userRepo repository.UserRepository
	alerts   *alerter
}

func NewReconciliationService(
	txRepo repository.TransactionRepository,
	bankRepo repository.BankRepository,
	userRepo repository.UserRepository,
	notes NotificationService,
	email EmailService,
) ReconciliationService {
	return &reconciliationService{
		txRepo:   txRepo,
		bankRepo: bankRepo,
		userRepo: userRepo,
		alerts:   &alerter{notes: notes, email: email},
	}
}

func (s *reconciliationService) Reconcile(ctx context.Context, resourceID, topic string) error {
	logger.EnterMethod("reconciliationService.Reconcile", "resourceID", resourceID, "topic", topic)

	status, ok := statusForTopic(topic)
	if !ok {
		logger.InfoContext(ctx, "Ignoring unrecognized transfer topic", "topic", topic, "resourceID", resourceID)
		return nil
	}

	updated, err := s.txRepo.TransitionPendingByRef(ctx, domain.MatchingRefs(resourceID), status)
	if err != nil {
		logger.ExitMethodWithError("reconciliationService.Reconcile", err, "resourceID", resourceID)
		return fmt.Errorf("transition transfer %s to %s: %w", resourceID, status, err)
	}
	if len(updated) == 0 {
		logger.WarnContext(ctx, "No pending transactions matched", "resourceID", resourceID, "topic", topic)
		return nil
	}
	metrics.Reconciliations.WithLabelValues(string(status)).Add(float64(len(updated)))

	for i := range updated {
		tx := &updated[i]
		if tx.IsP2P() {
			// P2P parties were alerted when the transfer was created; there is no
			// settlement alert for them.
			logger.InfoContext(ctx, "Skipping settlement alert for P2P leg", "transactionID", tx.ID, "status", status)
			continue
		}
		if err := s.alertOwner(ctx, tx); err != nil {
			logger.WarnContext(ctx, "Settlement alert failed", "transactionID", tx.ID, "error", err)
		}
	}

	logger.ExitMethod("reconciliationService.Reconcile", "resourceID", resourceID, "status", status, "updated", len(updated))
	return nil
}

func (s *reconciliationService) alertOwner(ctx context.Context, tx *domain.Transaction) error {
	bank, err := s.bankRepo.GetByID(ctx, tx.BankID)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(ctx, bank.UserID)
	if err != nil {
		return err
	}

	amount := formatMoney(tx.Amount.Abs())
	input := NotificationInput{RelatedTransactionID: &tx.ID}
	switch tx.Status {
	case domain.TransactionStatusSuccess:
		input.Type = domain.NotificationTypeTransferCompleted
		input.Title = "Transfer complete"
		input.Message = fmt.Sprintf("Your %s transfer (%s) has completed.", amount, tx.Name)
	case domain.TransactionStatusReturned:
		input.Type = domain.NotificationTypeTransferFailed
		input.Title = "Transfer returned"
		input.Message = fmt.Sprintf("Your %s transfer (%s) was returned by the bank.", amount, tx.Name)
	default:
		input.Type = domain.NotificationTypeTransferFailed
		input.Title = "Transfer failed"
		input.Message = fmt.Sprintf("Your %s transfer (%s) could not be completed.", amount, tx.Name)
	}
	return s.alerts.alert(ctx, user, input)
}
