package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/metrics"
	"moneylink-backend/internal/rail"
	"moneylink-backend/internal/repository"
)

type transferService struct {
	txManager repository.TxManager
	txRepo    repository.TransactionRepository
	bankRepo  repository.BankRepository
	userRepo  repository.UserRepository
	rail      rail.Client
	limits    LimitValidator
	alerts    *alerter
	effects   *Effects
}

func NewTransferService(
	txManager repository.TxManager,
	txRepo repository.TransactionRepository,
	bankRepo repository.BankRepository,
	userRepo repository.UserRepository,
	railClient rail.Client,
	limits LimitValidator,
	notes NotificationService,
	email EmailService,
	effects *Effects,
) TransferService {
	return &transferService{
		txManager: txManager,
		txRepo:    txRepo,
		bankRepo:  bankRepo,
		userRepo:  userRepo,
		rail:      railClient,
		limits:    limits,
		alerts:    &alerter{notes: notes, email: email},
		effects:   effects,
	}
}

func (s *transferService) CreateP2PTransfer(ctx context.Context, req P2PTransferRequest) (*P2PTransferResult, error) {
	logger.EnterMethod("transferService.CreateP2PTransfer", "senderID", req.SenderID, "recipientID", req.RecipientID, "amount", req.Amount.String())

	if req.SenderID == req.RecipientID {
		return nil, domain.NewValidationError("You cannot send money to yourself")
	}
	if err := checkPrecision(req.Amount); err != nil {
		return nil, err
	}

	limit, err := s.limits.Validate(ctx, req.SenderID, req.Amount)
	if err != nil {
		return nil, err
	}
	if !limit.Valid {
		return nil, domain.NewValidationError("%s", limit.Reason)
	}

	sender, err := s.userRepo.GetByID(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.userRepo.GetByID(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}

	senderBank, err := s.transferableBank(ctx, req.SenderID, req.SenderBankID)
	if err != nil {
		return nil, err
	}
	recipientBank, err := s.bankRepo.GetFirstTransferable(ctx, req.RecipientID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewValidationError("%s has not linked a bank account that can receive transfers", recipient.FirstName)
	}
	if err != nil {
		return nil, err
	}

	ref, err := s.rail.CreateTransfer(ctx, *senderBank.FundingSourceRef, *recipientBank.FundingSourceRef, req.Amount)
	if err != nil {
		logger.ExitMethodWithError("transferService.CreateP2PTransfer", err, "stage", "rail")
		return nil, &domain.ExternalServiceError{Service: "payment rail", Op: "create transfer", Err: err}
	}

	senderLeg := &domain.Transaction{
		BankID:          senderBank.ID,
		Amount:          req.Amount.Neg(),
		Name:            "Transfer to " + recipient.FullName(),
		Status:          domain.TransactionStatusPending,
		Type:            domain.TransactionTypeP2PSent,
		SenderUserID:    &sender.ID,
		RecipientUserID: &recipient.ID,
		TransferRef:     ref,
		Note:            req.Note,
	}
	recipientLeg := &domain.Transaction{
		BankID:          recipientBank.ID,
		Amount:          req.Amount,
		Name:            "Transfer from " + sender.FullName(),
		Status:          domain.TransactionStatusPending,
		Type:            domain.TransactionTypeP2PReceived,
		SenderUserID:    &sender.ID,
		RecipientUserID: &recipient.ID,
		TransferRef:     domain.RecipientLegRef(ref),
		Note:            req.Note,
	}

	err = s.txManager.Atomic(ctx, func(ctx context.Context) error {
		return s.txRepo.CreateMany(ctx, []*domain.Transaction{senderLeg, recipientLeg})
	})
	if err != nil {
		s.compensate(ctx, ref, err)
		logger.ExitMethodWithError("transferService.CreateP2PTransfer", err, "stage", "ledger", "transferRef", ref)
		return nil, fmt.Errorf("record p2p transfer %s: %w", ref, err)
	}
	metrics.TransfersCreated.WithLabelValues(string(domain.TransactionTypeP2PSent)).Inc()

	amount := formatMoney(req.Amount)
	s.effects.Go(ctx, "p2p-transfer-alerts", func(ctx context.Context) error {
		// Each party's alert reports into its own slot so no failure is dropped.
		var (
			g    errgroup.Group
			errs [2]error
		)
		g.Go(func() error {
			if err := s.alerts.alert(ctx, sender, NotificationInput{
				Type:                 domain.NotificationTypeMoneySent,
				Title:                "Money sent",
				Message:              fmt.Sprintf("You sent %s to %s. It will arrive in 1-3 business days.", amount, recipient.FullName()),
				RelatedTransactionID: &senderLeg.ID,
			}); err != nil {
				errs[0] = fmt.Errorf("alert sender %s: %w", sender.ID, err)
			}
			return nil
		})
		g.Go(func() error {
			if err := s.alerts.alert(ctx, recipient, NotificationInput{
				Type:                 domain.NotificationTypeMoneyReceived,
				Title:                "Money on the way",
				Message:              fmt.Sprintf("%s sent you %s. It will arrive in 1-3 business days.", sender.FullName(), amount),
				RelatedTransactionID: &recipientLeg.ID,
			}); err != nil {
				errs[1] = fmt.Errorf("alert recipient %s: %w", recipient.ID, err)
			}
			return nil
		})
		_ = g.Wait()
		return multierror.Append(nil, errs[:]...).ErrorOrNil()
	})

	logger.ExitMethod("transferService.CreateP2PTransfer", "transferRef", ref, "senderLegID", senderLeg.ID, "recipientLegID", recipientLeg.ID)
	return &P2PTransferResult{SenderLeg: senderLeg, RecipientLeg: recipientLeg, TransferRef: ref}, nil
}

func (s *transferService) CreateBankTransfer(ctx context.Context, req BankTransferRequest) (*domain.Transaction, error) {
	logger.EnterMethod("transferService.CreateBankTransfer", "userID", req.UserID, "source", req.SourceBankID, "destination", req.DestinationBankID)

	if req.SourceBankID == req.DestinationBankID {
		return nil, domain.NewValidationError("Source and destination accounts must differ")
	}
	if err := checkPrecision(req.Amount); err != nil {
		return nil, err
	}
	if check := s.limits.CheckAmount(req.Amount); !check.Valid {
		return nil, domain.NewValidationError("%s", check.Reason)
	}

	source, err := s.transferableBank(ctx, req.UserID, req.SourceBankID)
	if err != nil {
		return nil, err
	}
	destination, err := s.transferableBank(ctx, req.UserID, req.DestinationBankID)
	if err != nil {
		return nil, err
	}

	ref, err := s.rail.CreateTransfer(ctx, *source.FundingSourceRef, *destination.FundingSourceRef, req.Amount)
	if err != nil {
		logger.ExitMethodWithError("transferService.CreateBankTransfer", err, "stage", "rail")
		return nil, &domain.ExternalServiceError{Service: "payment rail", Op: "create transfer", Err: err}
	}

	entry := &domain.Transaction{
		BankID:      source.ID,
		Amount:      req.Amount.Neg(),
		Name:        "Transfer to " + destination.DisplayName(),
		Status:      domain.TransactionStatusPending,
		Type:        domain.TransactionTypeInternal,
		TransferRef: ref,
		Note:        req.Note,
	}
	err = s.txManager.Atomic(ctx, func(ctx context.Context) error {
		return s.txRepo.CreateMany(ctx, []*domain.Transaction{entry})
	})
	if err != nil {
		s.compensate(ctx, ref, err)
		return nil, fmt.Errorf("record bank transfer %s: %w", ref, err)
	}
	metrics.TransfersCreated.WithLabelValues(string(domain.TransactionTypeInternal)).Inc()

	logger.ExitMethod("transferService.CreateBankTransfer", "transferRef", ref, "transactionID", entry.ID)
	return entry, nil
}

func (s *transferService) CancelTransfer(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	logger.EnterMethod("transferService.CancelTransfer", "userID", userID, "transactionID", transactionID)

	tx, err := s.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedBank(ctx, userID, tx.BankID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	if tx.Type == domain.TransactionTypeP2PReceived {
		return nil, domain.NewValidationError("Only the sender can cancel a transfer")
	}
	if tx.Status != domain.TransactionStatusPending {
		return nil, domain.NewValidationError("Only pending transfers can be cancelled")
	}

	// Both legs of a P2P pair share the sender's reference.
	ref := strings.TrimSuffix(tx.TransferRef, domain.RecipientLegSuffix)

	if err := s.rail.CancelTransfer(ctx, ref); err != nil {
		logger.ExitMethodWithError("transferService.CancelTransfer", err, "stage", "rail")
		return nil, &domain.ExternalServiceError{Service: "payment rail", Op: "cancel transfer", Err: err}
	}

	updated, err := s.txRepo.TransitionPendingByRef(ctx, domain.MatchingRefs(ref), domain.TransactionStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("mark transfer %s cancelled: %w", ref, err)
	}
	if len(updated) == 0 {
		// The rail's cancellation webhook can flip the legs before this update runs.
		current, err := s.txRepo.GetByID(ctx, tx.ID)
		if err != nil {
			return nil, fmt.Errorf("reload transaction %s: %w", tx.ID, err)
		}
		if current.Status == domain.TransactionStatusFailed {
			logger.ExitMethod("transferService.CancelTransfer", "transferRef", ref, "recordedBy", "webhook")
			return current, nil
		}
		logger.Warn("Transfer left PENDING before cancellation was recorded", "transferRef", ref, "status", current.Status)
		return nil, fmt.Errorf("transfer %s was already settled: %w", ref, domain.ErrConflict)
	}
	metrics.Reconciliations.WithLabelValues(string(domain.TransactionStatusFailed)).Inc()

	for i := range updated {
		if updated[i].ID == tx.ID {
			tx = &updated[i]
		}
	}
	logger.ExitMethod("transferService.CancelTransfer", "transferRef", ref, "updated", len(updated))
	return tx, nil
}

// ownedBank loads a bank that belongs to userID. A bank owned by someone else is
// reported as not found.
func (s *transferService) ownedBank(ctx context.Context, userID, bankID string) (*domain.Bank, error) {
	bank, err := s.bankRepo.GetByID(ctx, bankID)
	if err != nil {
		return nil, err
	}
	if bank.UserID != userID {
		return nil, domain.ErrBankNotFound
	}
	return bank, nil
}

func (s *transferService) transferableBank(ctx context.Context, userID, bankID string) (*domain.Bank, error) {
	bank, err := s.ownedBank(ctx, userID, bankID)
	if err != nil {
		return nil, err
	}
	if !bank.CanTransfer() {
		return nil, domain.NewValidationError("%s is not linked to the payment network yet", bank.DisplayName())
	}
	return bank, nil
}

// compensate asks the rail to cancel a transfer whose ledger write failed so money
// does not move without a local record.
func (s *transferService) compensate(ctx context.Context, ref string, cause error) {
	if err := s.rail.CancelTransfer(context.WithoutCancel(ctx), ref); err != nil {
		logger.Error("Transfer created at rail but not recorded and could not be cancelled",
			"transferRef", ref, "ledgerError", cause, "cancelError", err)
		return
	}
	logger.Warn("Transfer cancelled at rail after ledger write failed", "transferRef", ref, "ledgerError", cause)
}

func checkPrecision(amount decimal.Decimal) error {
	if !amount.Equal(amount.Round(2)) {
		return domain.NewValidationError("Amount cannot have more than two decimal places")
	}
	return nil
}
