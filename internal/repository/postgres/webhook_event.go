package postgres

import (
	"context"
	"database/sql"
	"time"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/repository"
)

type webhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) repository.WebhookEventRepository {
	return &webhookEventRepository{db: db}
}

// Insert relies on the primary key of webhook_events. Concurrent deliveries of one
// event race on the insert and exactly one of them sees inserted=true.
func (r *webhookEventRepository) Insert(ctx context.Context, event *domain.WebhookEvent) (bool, error) {
	logger.EnterMethod("webhookEventRepository.Insert", "eventID", event.ID, "eventType", event.EventType)

	if event.ReceivedAt.IsZero() {
		event.ReceivedAt = time.Now().UTC()
	}

	query := `INSERT INTO webhook_events (id, provider, event_type, payload, received_at)
	          VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING`
	logger.DatabaseCall("INSERT", "webhook_events", "eventID", event.ID)
	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		event.ID, event.Provider, event.EventType, []byte(event.Payload), event.ReceivedAt)
	if err != nil {
		if isUniqueViolation(err) {
			logger.ExitMethod("webhookEventRepository.Insert", "eventID", event.ID, "duplicate", true)
			return false, nil
		}
		logger.ExitMethodWithError("webhookEventRepository.Insert", err, "eventID", event.ID)
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	logger.DatabaseResult("INSERT", rows, nil)

	logger.ExitMethod("webhookEventRepository.Insert", "eventID", event.ID, "duplicate", rows == 0)
	return rows > 0, nil
}
