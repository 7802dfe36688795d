package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
)

// captureLogs redirects the global logger into a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.InitializeWithWriter("debug", "text", &buf)
	t.Cleanup(func() { logger.Initialize("info", "text") })
	return &buf
}

// MockTxManager runs fn inline.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	m.Called(ctx)
	return fn(ctx)
}

// MockTransactionRepo
type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) CreateMany(ctx context.Context, txs []*domain.Transaction) error {
	args := m.Called(ctx, txs)
	return args.Error(0)
}
func (m *MockTransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) SumP2PSentSince(ctx context.Context, senderUserID string, since time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, senderUserID, since)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
func (m *MockTransactionRepo) TransitionPendingByRef(ctx context.Context, refs []string, status domain.TransactionStatus) ([]domain.Transaction, error) {
	args := m.Called(ctx, refs, status)
	return args.Get(0).([]domain.Transaction), args.Error(1)
}
func (m *MockTransactionRepo) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

// MockBankRepo
type MockBankRepo struct {
	mock.Mock
}

func (m *MockBankRepo) GetByID(ctx context.Context, id string) (*domain.Bank, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bank), args.Error(1)
}
func (m *MockBankRepo) GetByItemID(ctx context.Context, itemID string) (*domain.Bank, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bank), args.Error(1)
}
func (m *MockBankRepo) GetByFundingSourceRef(ctx context.Context, ref string) (*domain.Bank, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bank), args.Error(1)
}
func (m *MockBankRepo) GetFirstTransferable(ctx context.Context, userID string) (*domain.Bank, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bank), args.Error(1)
}
func (m *MockBankRepo) UpdateStatus(ctx context.Context, id string, status domain.BankStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockBankRepo) ClearFundingSource(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockWebhookEventRepo
type MockWebhookEventRepo struct {
	mock.Mock
}

func (m *MockWebhookEventRepo) Insert(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	args := m.Called(ctx, event)
	return args.Bool(0), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockPreferenceRepo
type MockPreferenceRepo struct {
	mock.Mock
}

func (m *MockPreferenceRepo) Get(ctx context.Context, userID string, notificationType domain.NotificationType) (*domain.NotificationPreference, error) {
	args := m.Called(ctx, userID, notificationType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.NotificationPreference), args.Error(1)
}

// MockRail
type MockRail struct {
	mock.Mock
}

func (m *MockRail) CreateTransfer(ctx context.Context, sourceRef, destRef string, amount decimal.Decimal) (string, error) {
	args := m.Called(ctx, sourceRef, destRef, amount)
	return args.String(0), args.Error(1)
}
func (m *MockRail) CancelTransfer(ctx context.Context, ref string) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Create(ctx context.Context, input NotificationInput) error {
	args := m.Called(ctx, input)
	return args.Error(0)
}
func (m *MockNotificationService) ShouldNotify(ctx context.Context, userID string, notificationType domain.NotificationType, channel domain.NotificationChannel) (bool, error) {
	args := m.Called(ctx, userID, notificationType, channel)
	return args.Bool(0), args.Error(1)
}
func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	args := m.Called(ctx, userID, notificationID)
	return args.Error(0)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendEmail(ctx context.Context, toEmail, toName, subject, plainText string) error {
	args := m.Called(ctx, toEmail, toName, subject, plainText)
	return args.Error(0)
}

// MockPusher
type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) Push(ctx context.Context, n *domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockReconciler
type MockReconciler struct {
	mock.Mock
}

func (m *MockReconciler) Reconcile(ctx context.Context, resourceID, topic string) error {
	args := m.Called(ctx, resourceID, topic)
	return args.Error(0)
}

// MockBankHealth
type MockBankHealth struct {
	mock.Mock
}

func (m *MockBankHealth) HandleItemEvent(ctx context.Context, event domain.AggregatorEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
func (m *MockBankHealth) HandleFundingSourceRemoved(ctx context.Context, fundingSourceRef string) error {
	args := m.Called(ctx, fundingSourceRef)
	return args.Error(0)
}

func strPtr(s string) *string { return &s }

func newBank(id, userID, fundingRef string) *domain.Bank {
	b := &domain.Bank{
		ID:              id,
		UserID:          userID,
		InstitutionName: "First Bank",
		ItemID:          "item-" + id,
		Mask:            "1234",
		Status:          domain.BankStatusActive,
	}
	if fundingRef != "" {
		b.FundingSourceRef = strPtr(fundingRef)
	}
	return b
}

// MockLimitValidator
type MockLimitValidator struct {
	mock.Mock
}

func (m *MockLimitValidator) CheckAmount(amount decimal.Decimal) *LimitResult {
	args := m.Called(amount)
	return args.Get(0).(*LimitResult)
}
func (m *MockLimitValidator) Validate(ctx context.Context, senderID string, amount decimal.Decimal) (*LimitResult, error) {
	args := m.Called(ctx, senderID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*LimitResult), args.Error(1)
}
