package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"moneylink-backend/internal/domain"
)

func TestNotificationService_Create(t *testing.T) {
	ctx := context.Background()
	input := NotificationInput{
		UserID:               "alice",
		Type:                 domain.NotificationTypeMoneySent,
		Title:                "Money sent",
		Message:              "You sent $25.00 to Bob Jones.",
		RelatedTransactionID: strPtr("tx-1"),
	}

	t.Run("StoresAndPushes", func(t *testing.T) {
		repo := new(MockNotificationRepo)
		pusher := new(MockPusher)
		svc := NewNotificationService(repo, new(MockPreferenceRepo), pusher)
		repo.On("Create", ctx, mock.MatchedBy(func(n *domain.Notification) bool {
			return n.UserID == "alice" && n.Type == domain.NotificationTypeMoneySent && *n.RelatedTransactionID == "tx-1"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Notification).ID = "n-1"
		}).Return(nil)
		pusher.On("Push", ctx, mock.MatchedBy(func(n *domain.Notification) bool { return n.ID == "n-1" })).Return(nil)

		assert.NoError(t, svc.Create(ctx, input))
		repo.AssertExpectations(t)
		pusher.AssertExpectations(t)
	})

	t.Run("PushFailureIgnored", func(t *testing.T) {
		repo := new(MockNotificationRepo)
		pusher := new(MockPusher)
		svc := NewNotificationService(repo, new(MockPreferenceRepo), pusher)
		repo.On("Create", ctx, mock.Anything).Return(nil)
		pusher.On("Push", ctx, mock.Anything).Return(errors.New("fcm unavailable"))

		assert.NoError(t, svc.Create(ctx, input))
	})

	t.Run("WithoutPusher", func(t *testing.T) {
		repo := new(MockNotificationRepo)
		svc := NewNotificationService(repo, new(MockPreferenceRepo), nil)
		repo.On("Create", ctx, mock.Anything).Return(nil)

		assert.NoError(t, svc.Create(ctx, input))
	})

	t.Run("StoreFailure", func(t *testing.T) {
		repo := new(MockNotificationRepo)
		pusher := new(MockPusher)
		svc := NewNotificationService(repo, new(MockPreferenceRepo), pusher)
		repo.On("Create", ctx, mock.Anything).Return(assert.AnError)

		assert.ErrorIs(t, svc.Create(ctx, input), assert.AnError)
		pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything)
	})
}

func TestNotificationService_ShouldNotify(t *testing.T) {
	ctx := context.Background()

	t.Run("DefaultsToEnabled", func(t *testing.T) {
		prefs := new(MockPreferenceRepo)
		svc := NewNotificationService(new(MockNotificationRepo), prefs, nil)
		prefs.On("Get", ctx, "alice", domain.NotificationTypeMoneySent).Return(nil, nil)

		ok, err := svc.ShouldNotify(ctx, "alice", domain.NotificationTypeMoneySent, domain.NotificationChannelEmail)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("HonorsStoredChannel", func(t *testing.T) {
		prefs := new(MockPreferenceRepo)
		svc := NewNotificationService(new(MockNotificationRepo), prefs, nil)
		prefs.On("Get", ctx, "alice", domain.NotificationTypeTransferFailed).
			Return(&domain.NotificationPreference{UserID: "alice", Type: domain.NotificationTypeTransferFailed, InApp: true, Email: false}, nil)

		inApp, err := svc.ShouldNotify(ctx, "alice", domain.NotificationTypeTransferFailed, domain.NotificationChannelInApp)
		require.NoError(t, err)
		assert.True(t, inApp)

		byEmail, err := svc.ShouldNotify(ctx, "alice", domain.NotificationTypeTransferFailed, domain.NotificationChannelEmail)
		require.NoError(t, err)
		assert.False(t, byEmail)
	})
}

func TestNotificationService_GetNotifications(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name          string
		page, size    int32
		limit, offset int32
	}{
		{"Defaults", 0, 0, 20, 0},
		{"ThirdPage", 3, 10, 10, 20},
		{"CapsPageSize", 1, 500, 100, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockNotificationRepo)
			svc := NewNotificationService(repo, new(MockPreferenceRepo), nil)
			repo.On("List", ctx, "alice", tt.limit, tt.offset).Return([]domain.Notification{{ID: "n-1"}}, int32(21), nil)

			list, total, err := svc.GetNotifications(ctx, "alice", tt.page, tt.size)
			require.NoError(t, err)
			assert.Len(t, list, 1)
			assert.Equal(t, int32(21), total)
		})
	}
}

func TestNotificationService_MarkAsRead(t *testing.T) {
	ctx := context.Background()
	repo := new(MockNotificationRepo)
	svc := NewNotificationService(repo, new(MockPreferenceRepo), nil)
	repo.On("MarkAsRead", ctx, "n-1", "alice").Return(nil)
	repo.On("MarkAsRead", ctx, "n-2", "alice").Return(domain.ErrNotificationNotFound)

	assert.NoError(t, svc.MarkAsRead(ctx, "alice", "n-1"))
	assert.ErrorIs(t, svc.MarkAsRead(ctx, "alice", "n-2"), domain.ErrNotFound)
}

func TestAlerter_EmailBody(t *testing.T) {
	ctx := context.Background()
	notes := new(MockNotificationService)
	email := new(MockEmailService)
	a := &alerter{notes: notes, email: email}
	notes.On("ShouldNotify", ctx, "bob", domain.NotificationTypeMoneyReceived, domain.NotificationChannelInApp).Return(false, nil)
	notes.On("ShouldNotify", ctx, "bob", domain.NotificationTypeMoneyReceived, domain.NotificationChannelEmail).Return(true, nil)
	email.On("SendEmail", ctx, "bob@example.com", "Bob Jones", "Money on the way",
		"Hello Bob,\n\nAlice sent you $5.00.\n\nThe MoneyLink Team").Return(nil)

	err := a.alert(ctx, bob, NotificationInput{Type: domain.NotificationTypeMoneyReceived, Title: "Money on the way", Message: "Alice sent you $5.00."})
	assert.NoError(t, err)
	email.AssertExpectations(t)
}

func TestAlerter_ChannelsFailIndependently(t *testing.T) {
	ctx := context.Background()
	notes := new(MockNotificationService)
	email := new(MockEmailService)
	a := &alerter{notes: notes, email: email}
	notes.On("ShouldNotify", ctx, "bob", domain.NotificationTypeMoneyReceived, mock.Anything).Return(true, nil)
	notes.On("Create", ctx, mock.Anything).Return(errors.New("notification store down"))
	email.On("SendEmail", ctx, "bob@example.com", "Bob Jones", "Money on the way", mock.Anything).Return(errors.New("sendgrid 503"))

	err := a.alert(ctx, bob, NotificationInput{Type: domain.NotificationTypeMoneyReceived, Title: "Money on the way", Message: "Alice sent you $5.00."})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notification store down")
	assert.Contains(t, err.Error(), "sendgrid 503")
	email.AssertExpectations(t)
}

func TestPushMessage(t *testing.T) {
	msg := pushMessage(&domain.Notification{
		ID:        "n-1",
		UserID:    "alice",
		Type:      domain.NotificationTypeBankLoginRequired,
		Title:     "Reconnect your bank",
		Message:   "Sign in again.",
		ActionURL: strPtr("/banks/bank-a/reconnect"),
	})

	assert.Equal(t, "user-alice", msg.Topic)
	assert.Equal(t, "Reconnect your bank", msg.Notification.Title)
	assert.Equal(t, "Sign in again.", msg.Notification.Body)
	assert.Equal(t, map[string]string{
		"notification_id": "n-1",
		"type":            "BANK_LOGIN_REQUIRED",
		"action_url":      "/banks/bank-a/reconnect",
	}, msg.Data)
}

func TestEffects(t *testing.T) {
	ctx := context.Background()

	t.Run("WaitsForTasks", func(t *testing.T) {
		e := NewEffects()
		var ran atomic.Int32
		for i := 0; i < 3; i++ {
			e.Go(ctx, "count", func(ctx context.Context) error {
				ran.Add(1)
				return nil
			})
		}
		require.NoError(t, e.Wait(ctx))
		assert.Equal(t, int32(3), ran.Load())
	})

	t.Run("OutlivesCancelledRequest", func(t *testing.T) {
		e := NewEffects()
		reqCtx, cancel := context.WithCancel(ctx)
		cancel()

		var sawErr atomic.Value
		e.Go(reqCtx, "detached", func(ctx context.Context) error {
			sawErr.Store(ctx.Err() == nil)
			return nil
		})
		require.NoError(t, e.Wait(ctx))
		assert.Equal(t, true, sawErr.Load())
	})

	t.Run("RecoversPanics", func(t *testing.T) {
		e := NewEffects()
		e.Go(ctx, "boom", func(ctx context.Context) error { panic("boom") })
		assert.NoError(t, e.Wait(ctx))
	})

	t.Run("WaitHonorsDeadline", func(t *testing.T) {
		e := NewEffects()
		release := make(chan struct{})
		defer close(release)
		e.Go(ctx, "slow", func(ctx context.Context) error {
			<-release
			return nil
		})

		waitCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, e.Wait(waitCtx), context.DeadlineExceeded)
	})
}
