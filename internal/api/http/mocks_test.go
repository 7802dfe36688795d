package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/service"
)

// MockTransferService
type MockTransferService struct {
	mock.Mock
}

func (m *MockTransferService) CreateP2PTransfer(ctx context.Context, req service.P2PTransferRequest) (*service.P2PTransferResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.P2PTransferResult), args.Error(1)
}
func (m *MockTransferService) CreateBankTransfer(ctx context.Context, req service.BankTransferRequest) (*domain.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}
func (m *MockTransferService) CancelTransfer(ctx context.Context, userID, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, userID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// MockWebhookService
type MockWebhookService struct {
	mock.Mock
}

func (m *MockWebhookService) HandleRailEvent(ctx context.Context, rawBody []byte, signature string) error {
	args := m.Called(ctx, rawBody, signature)
	return args.Error(0)
}
func (m *MockWebhookService) HandleAggregatorEvent(ctx context.Context, rawBody []byte) error {
	args := m.Called(ctx, rawBody)
	return args.Error(0)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Create(ctx context.Context, input service.NotificationInput) error {
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

// MockPinger
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) PingContext(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
