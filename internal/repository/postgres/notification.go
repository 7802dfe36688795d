package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	logger.EnterMethod("notificationRepository.Create", "userID", n.UserID, "type", n.Type, "title", n.Title)

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now().UTC()

	query := `INSERT INTO notifications (id, user_id, type, title, message, related_transaction_id, action_url, is_read, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	logger.DatabaseCall("INSERT", "notifications", "userID", n.UserID, "type", n.Type)

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.RelatedTransactionID, n.ActionURL, n.IsRead, n.CreatedAt)
	logger.DatabaseResult("INSERT", 1, err, "notificationID", n.ID)

	if err != nil {
		logger.ExitMethodWithError("notificationRepository.Create", err, "userID", n.UserID)
	} else {
		logger.ExitMethod("notificationRepository.Create", "notificationID", n.ID)
	}
	return err
}

func (r *notificationRepository) List(ctx context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	var count int32
	countQuery := `SELECT count(*) FROM notifications WHERE user_id = $1`
	if err := conn(ctx, r.db).QueryRowContext(ctx, countQuery, userID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, user_id, type, title, message, related_transaction_id, action_url, is_read, created_at
	          FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var notes []domain.Notification
	for rows.Next() {
		var (
			n         domain.Notification
			relatedTx sql.NullString
			actionURL sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &relatedTx, &actionURL, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, 0, err
		}
		n.RelatedTransactionID = nullableString(relatedTx)
		n.ActionURL = nullableString(actionURL)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return notes, count, nil
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, userID string) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return requireAffected(result, domain.ErrNotificationNotFound)
}
