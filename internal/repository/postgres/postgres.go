package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/repository"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Store struct {
	db *sql.DB
	repository.TransactionRepository
	repository.BankRepository
	repository.WebhookEventRepository
	repository.NotificationRepository
	repository.PreferenceRepository
	repository.UserRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		TransactionRepository:  NewTransactionRepository(db),
		BankRepository:         NewBankRepository(db),
		WebhookEventRepository: NewWebhookEventRepository(db),
		NotificationRepository: NewNotificationRepository(db),
		PreferenceRepository:   NewPreferenceRepository(db),
		UserRepository:         NewUserRepository(db),
	}
}

var _ repository.TxManager = (*Store)(nil)

type txKey struct{}

// executor is the subset of *sql.DB and *sql.Tx the repositories use.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// Atomic commits when fn returns nil and rolls back otherwise, including on panic.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	logger.Debug("Database transaction started")

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			logger.Error("Database transaction rolled back after panic", "panic", p)
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("tx err: %w, rollback err: %v", err, rbErr)
			}
			logger.Warn("Database transaction rolled back", "error", err)
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("commit transaction: %w", err)
			return
		}
		logger.Debug("Database transaction committed")
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
