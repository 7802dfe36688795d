package postgres

import (
	"context"
	"database/sql"
	"errors"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/repository"
)

type preferenceRepository struct {
	db *sql.DB
}

func NewPreferenceRepository(db *sql.DB) repository.PreferenceRepository {
	return &preferenceRepository{db: db}
}

func (r *preferenceRepository) Get(ctx context.Context, userID string, notificationType domain.NotificationType) (*domain.NotificationPreference, error) {
	query := `SELECT user_id, type, in_app, email FROM notification_preferences WHERE user_id = $1 AND type = $2`

	var p domain.NotificationPreference
	err := conn(ctx, r.db).QueryRowContext(ctx, query, userID, notificationType).Scan(&p.UserID, &p.Type, &p.InApp, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
