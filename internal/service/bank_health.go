package service

import (
	"context"
	"errors"
	"fmt"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/repository"
)

// Aggregator item webhook codes.
const (
	itemWebhookType           = "ITEM"
	codeError                 = "ERROR"
	codeLoginRequired         = "ITEM_LOGIN_REQUIRED"
	codePermissionRevoked     = "USER_PERMISSION_REVOKED"
	codePendingExpiration     = "PENDING_EXPIRATION"
	codeLoginRepaired         = "LOGIN_REPAIRED"
	reconnectActionURLPattern = "/banks/%s/reconnect"
)

type bankHealthService struct {
	bankRepo repository.BankRepository
	userRepo repository.UserRepository
	alerts   *alerter
}

func NewBankHealthService(
	bankRepo repository.BankRepository,
	userRepo repository.UserRepository,
	notes NotificationService,
	email EmailService,
) BankHealthService {
	return &bankHealthService{
		bankRepo: bankRepo,
		userRepo: userRepo,
		alerts:   &alerter{notes: notes, email: email},
	}
}

// itemStatus returns the bank status an item event implies.
func itemStatus(event domain.AggregatorEvent) (domain.BankStatus, bool) {
	if event.WebhookType != itemWebhookType {
		return "", false
	}
	switch event.WebhookCode {
	case codeError:
		if event.Error != nil && event.Error.ErrorCode == codeLoginRequired {
			return domain.BankStatusLoginRequired, true
		}
	case codePermissionRevoked, codePendingExpiration:
		return domain.BankStatusLoginRequired, true
	case codeLoginRepaired:
		return domain.BankStatusActive, true
	}
	return "", false
}

func (s *bankHealthService) HandleItemEvent(ctx context.Context, event domain.AggregatorEvent) error {
	logger.EnterMethod("bankHealthService.HandleItemEvent", "itemID", event.ItemID, "type", event.WebhookType, "code", event.WebhookCode)

	status, ok := itemStatus(event)
	if !ok {
		logger.DebugContext(ctx, "Ignoring aggregator event", "type", event.WebhookType, "code", event.WebhookCode)
		return nil
	}

	bank, err := s.bankRepo.GetByItemID(ctx, event.ItemID)
	if errors.Is(err, domain.ErrNotFound) {
		logger.InfoContext(ctx, "No bank for aggregator item", "itemID", event.ItemID)
		return nil
	}
	if err != nil {
		return err
	}

	if bank.Status != status {
		if err := s.bankRepo.UpdateStatus(ctx, bank.ID, status); err != nil {
			return fmt.Errorf("update bank %s status: %w", bank.ID, err)
		}
		logger.InfoContext(ctx, "Bank status changed", "bankID", bank.ID, "from", bank.Status, "to", status)
	}

	if status != domain.BankStatusLoginRequired {
		logger.ExitMethod("bankHealthService.HandleItemEvent", "bankID", bank.ID, "status", status)
		return nil
	}

	// Every delivery alerts, even when the status was already LOGIN_REQUIRED.
	actionURL := fmt.Sprintf(reconnectActionURLPattern, bank.ID)
	err = s.alertOwner(ctx, bank, NotificationInput{
		Type:      domain.NotificationTypeBankLoginRequired,
		Title:     "Reconnect your bank",
		Message:   fmt.Sprintf("We lost access to %s. Sign in again to keep sending and receiving money.", bank.DisplayName()),
		ActionURL: &actionURL,
	})
	if err != nil {
		logger.WarnContext(ctx, "Bank login alert failed", "bankID", bank.ID, "error", err)
	}

	logger.ExitMethod("bankHealthService.HandleItemEvent", "bankID", bank.ID, "status", status)
	return nil
}

func (s *bankHealthService) HandleFundingSourceRemoved(ctx context.Context, fundingSourceRef string) error {
	logger.EnterMethod("bankHealthService.HandleFundingSourceRemoved", "fundingSourceRef", fundingSourceRef)

	bank, err := s.bankRepo.GetByFundingSourceRef(ctx, fundingSourceRef)
	if errors.Is(err, domain.ErrNotFound) {
		logger.InfoContext(ctx, "No bank for funding source", "fundingSourceRef", fundingSourceRef)
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.bankRepo.ClearFundingSource(ctx, bank.ID); err != nil {
		return fmt.Errorf("clear funding source on bank %s: %w", bank.ID, err)
	}

	err = s.alertOwner(ctx, bank, NotificationInput{
		Type:    domain.NotificationTypeBankDisconnected,
		Title:   "Bank disconnected",
		Message: fmt.Sprintf("%s was removed from the payment network and can no longer be used for transfers.", bank.DisplayName()),
	})
	if err != nil {
		logger.WarnContext(ctx, "Bank disconnected alert failed", "bankID", bank.ID, "error", err)
	}

	logger.ExitMethod("bankHealthService.HandleFundingSourceRemoved", "bankID", bank.ID)
	return nil
}

func (s *bankHealthService) alertOwner(ctx context.Context, bank *domain.Bank, input NotificationInput) error {
	user, err := s.userRepo.GetByID(ctx, bank.UserID)
	if err != nil {
		return err
	}
	return s.alerts.alert(ctx, user, input)
}
