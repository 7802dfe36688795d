package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"moneylink-backend/internal/domain"
)

func TestStatusForTopic(t *testing.T) {
	tests := []struct {
		topic  string
		status domain.TransactionStatus
		ok     bool
	}{
		{"customer_transfer_completed", domain.TransactionStatusSuccess, true},
		{"bank_transfer_completed", domain.TransactionStatusSuccess, true},
		{"customer_transfer_failed", domain.TransactionStatusFailed, true},
		{"customer_transfer_cancelled", domain.TransactionStatusFailed, true},
		{"customer_bank_transfer_returned", domain.TransactionStatusReturned, true},
		{"customer_transfer_created", "", false},
		{"customer_created", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			status, ok := statusForTopic(tt.topic)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.status, status)
		})
	}
}

func TestReconciliationService_Reconcile(t *testing.T) {
	ctx := context.Background()
	refs := []string{"xfer-1", "xfer-1-recipient"}

	setup := func() (*MockTransactionRepo, *MockBankRepo, *MockUserRepo, *MockNotificationService, *MockEmailService, ReconciliationService) {
		txRepo := new(MockTransactionRepo)
		bankRepo := new(MockBankRepo)
		userRepo := new(MockUserRepo)
		notes := new(MockNotificationService)
		email := new(MockEmailService)
		return txRepo, bankRepo, userRepo, notes, email, NewReconciliationService(txRepo, bankRepo, userRepo, notes, email)
	}

	t.Run("UpdatesBothP2PLegsWithoutAlerts", func(t *testing.T) {
		txRepo, _, _, notes, _, svc := setup()
		legs := []domain.Transaction{
			{ID: "tx-1", TransferRef: "xfer-1", Status: domain.TransactionStatusSuccess, SenderUserID: strPtr("alice")},
			{ID: "tx-2", TransferRef: "xfer-1-recipient", Status: domain.TransactionStatusSuccess, SenderUserID: strPtr("alice")},
		}
		txRepo.On("TransitionPendingByRef", ctx, refs, domain.TransactionStatusSuccess).Return(legs, nil)

		assert.NoError(t, svc.Reconcile(ctx, "xfer-1", "customer_transfer_completed"))
		txRepo.AssertExpectations(t)
		notes.AssertNotCalled(t, "ShouldNotify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("BankTransferAlertsOwner", func(t *testing.T) {
		txRepo, bankRepo, userRepo, notes, email, svc := setup()
		entry := domain.Transaction{
			ID:          "tx-9",
			BankID:      "bank-a",
			Amount:      d("-100"),
			Name:        "Transfer to Second Bank",
			TransferRef: "xfer-9",
			Status:      domain.TransactionStatusReturned,
			Type:        domain.TransactionTypeInternal,
		}
		txRepo.On("TransitionPendingByRef", ctx, []string{"xfer-9", "xfer-9-recipient"}, domain.TransactionStatusReturned).
			Return([]domain.Transaction{entry}, nil)
		bankRepo.On("GetByID", ctx, "bank-a").Return(newBank("bank-a", "alice", "fs-a"), nil)
		userRepo.On("GetByID", ctx, "alice").Return(alice, nil)
		notes.On("ShouldNotify", ctx, "alice", domain.NotificationTypeTransferFailed, domain.NotificationChannelInApp).Return(true, nil)
		notes.On("ShouldNotify", ctx, "alice", domain.NotificationTypeTransferFailed, domain.NotificationChannelEmail).Return(false, nil)
		notes.On("Create", ctx, mock.MatchedBy(func(in NotificationInput) bool {
			return in.UserID == "alice" && in.Title == "Transfer returned" && *in.RelatedTransactionID == "tx-9" &&
				in.Message == "Your $100.00 transfer (Transfer to Second Bank) was returned by the bank."
		})).Return(nil)

		assert.NoError(t, svc.Reconcile(ctx, "xfer-9", "customer_bank_transfer_returned"))
		notes.AssertExpectations(t)
		email.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CompletedSendsEmailWhenEnabled", func(t *testing.T) {
		txRepo, bankRepo, userRepo, notes, email, svc := setup()
		entry := domain.Transaction{ID: "tx-9", BankID: "bank-a", Amount: d("-100"), Status: domain.TransactionStatusSuccess}
		txRepo.On("TransitionPendingByRef", ctx, mock.Anything, domain.TransactionStatusSuccess).Return([]domain.Transaction{entry}, nil)
		bankRepo.On("GetByID", ctx, "bank-a").Return(newBank("bank-a", "alice", "fs-a"), nil)
		userRepo.On("GetByID", ctx, "alice").Return(alice, nil)
		notes.On("ShouldNotify", ctx, "alice", domain.NotificationTypeTransferCompleted, domain.NotificationChannelInApp).Return(false, nil)
		notes.On("ShouldNotify", ctx, "alice", domain.NotificationTypeTransferCompleted, domain.NotificationChannelEmail).Return(true, nil)
		email.On("SendEmail", ctx, "alice@example.com", "Alice Smith", "Transfer complete", mock.AnythingOfType("string")).Return(nil)

		assert.NoError(t, svc.Reconcile(ctx, "xfer-9", "transfer_completed"))
		email.AssertExpectations(t)
		notes.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("NoPendingMatch", func(t *testing.T) {
		txRepo, bankRepo, _, _, _, svc := setup()
		txRepo.On("TransitionPendingByRef", ctx, refs, domain.TransactionStatusFailed).Return([]domain.Transaction{}, nil)

		logs := captureLogs(t)

		assert.NoError(t, svc.Reconcile(ctx, "xfer-1", "customer_transfer_failed"))
		bankRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
		assert.Contains(t, logs.String(), `level=WARN msg="No pending transactions matched"`)
	})

	t.Run("UnknownTopicIgnored", func(t *testing.T) {
		txRepo, _, _, _, _, svc := setup()

		assert.NoError(t, svc.Reconcile(ctx, "xfer-1", "customer_transfer_created"))
		txRepo.AssertNotCalled(t, "TransitionPendingByRef", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		txRepo, _, _, _, _, svc := setup()
		txRepo.On("TransitionPendingByRef", ctx, refs, domain.TransactionStatusSuccess).Return([]domain.Transaction(nil), assert.AnError)

		assert.ErrorIs(t, svc.Reconcile(ctx, "xfer-1", "transfer_completed"), assert.AnError)
	})
}
