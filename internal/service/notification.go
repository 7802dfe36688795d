package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/repository"
)

const (
	defaultPageSize int32 = 20
	maxPageSize     int32 = 100
)

type notificationService struct {
	noteRepo repository.NotificationRepository
	prefRepo repository.PreferenceRepository
	pusher   PushSender
}

// NewNotificationService wires the in-app dispatcher. pusher may be nil when push
// delivery is disabled.
func NewNotificationService(noteRepo repository.NotificationRepository, prefRepo repository.PreferenceRepository, pusher PushSender) NotificationService {
	return &notificationService{noteRepo: noteRepo, prefRepo: prefRepo, pusher: pusher}
}

func (s *notificationService) Create(ctx context.Context, input NotificationInput) error {
	n := &domain.Notification{
		UserID:               input.UserID,
		Type:                 input.Type,
		Title:                input.Title,
		Message:              input.Message,
		RelatedTransactionID: input.RelatedTransactionID,
		ActionURL:            input.ActionURL,
	}
	if err := s.noteRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	if s.pusher != nil {
		if err := s.pusher.Push(ctx, n); err != nil {
			logger.WarnContext(ctx, "Push delivery failed", "notificationID", n.ID, "userID", n.UserID, "error", err)
		}
	}
	return nil
}

func (s *notificationService) ShouldNotify(ctx context.Context, userID string, notificationType domain.NotificationType, channel domain.NotificationChannel) (bool, error) {
	pref, err := s.prefRepo.Get(ctx, userID, notificationType)
	if err != nil {
		return false, fmt.Errorf("load notification preference: %w", err)
	}
	return pref.Allows(channel), nil
}

func (s *notificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := (page - 1) * pageSize
	return s.noteRepo.List(ctx, userID, pageSize, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return s.noteRepo.MarkAsRead(ctx, notificationID, userID)
}

// alerter fans one message out to the in-app and email channels the user has
// enabled for its type.
type alerter struct {
	notes NotificationService
	email EmailService
}

func (a *alerter) alert(ctx context.Context, user *domain.User, input NotificationInput) error {
	input.UserID = user.ID

	// Channels are independent: a failure on one never skips the other.
	var errs *multierror.Error

	inApp, err := a.notes.ShouldNotify(ctx, user.ID, input.Type, domain.NotificationChannelInApp)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("check %s in-app preference: %w", input.Type, err))
	} else if inApp {
		if err := a.notes.Create(ctx, input); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("create %s notification: %w", input.Type, err))
		}
	}

	byEmail, err := a.notes.ShouldNotify(ctx, user.ID, input.Type, domain.NotificationChannelEmail)
	if err != nil {
		errs = multierror.Append(errs, fmt.Errorf("check %s email preference: %w", input.Type, err))
	} else if byEmail && user.Email != "" {
		body := fmt.Sprintf("Hello %s,\n\n%s\n\nThe MoneyLink Team", user.FirstName, input.Message)
		if err := a.email.SendEmail(ctx, user.Email, user.FullName(), input.Title, body); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("send %s email: %w", input.Type, err))
		}
	}

	logger.DebugContext(ctx, "Alert dispatched", "userID", user.ID, "type", input.Type, "inApp", inApp, "email", byEmail, "failures", len(errs.WrappedErrors()))
	return errs.ErrorOrNil()
}
