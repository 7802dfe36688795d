package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/repository"
)

var transactionColumns = []string{
	"id", "bank_id", "amount", "name", "date", "status", "pending", "type",
	"sender_user_id", "recipient_user_id", "transfer_ref", "note", "created_at", "updated_at",
}

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) repository.TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) CreateMany(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	logger.EnterMethod("transactionRepository.CreateMany", "count", len(txs), "transferRef", txs[0].TransferRef)

	now := time.Now().UTC()
	insert := psql.Insert("transactions").Columns(transactionColumns...)
	for _, t := range txs {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Date.IsZero() {
			t.Date = now
		}
		t.Pending = t.Status == domain.TransactionStatusPending
		t.CreatedAt = now
		t.UpdatedAt = now
		insert = insert.Values(
			t.ID, t.BankID, t.Amount, t.Name, t.Date, t.Status, t.Pending, t.Type,
			t.SenderUserID, t.RecipientUserID, t.TransferRef, t.Note, t.CreatedAt, t.UpdatedAt,
		)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	logger.DatabaseCall("INSERT", "transactions", "rows", len(txs))
	result, err := conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err)
		logger.ExitMethodWithError("transactionRepository.CreateMany", err)
		return err
	}
	affected, _ := result.RowsAffected()
	logger.DatabaseResult("INSERT", affected, nil)

	logger.ExitMethod("transactionRepository.CreateMany", "rows", affected)
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + strings.Join(transactionColumns, ", ") + ` FROM transactions WHERE id = $1`

	t, err := scanTransaction(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTransactionNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *transactionRepository) SumP2PSentSince(ctx context.Context, senderUserID string, since time.Time) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(ABS(amount)), 0) FROM transactions
	          WHERE sender_user_id = $1 AND type = $2 AND status <> $3 AND date >= $4`

	var total decimal.Decimal
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		senderUserID, domain.TransactionTypeP2PSent, domain.TransactionStatusFailed, since,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum p2p sent: %w", err)
	}
	return total, nil
}

func (r *transactionRepository) TransitionPendingByRef(ctx context.Context, refs []string, status domain.TransactionStatus) ([]domain.Transaction, error) {
	logger.EnterMethod("transactionRepository.TransitionPendingByRef", "refs", refs, "status", status)

	query, args, err := psql.Update("transactions").
		Set("status", status).
		Set("pending", false).
		Set("updated_at", time.Now().UTC()).
		Where(sq.And{
			sq.Eq{"transfer_ref": refs},
			sq.Eq{"status": domain.TransactionStatusPending},
		}).
		Suffix("RETURNING " + strings.Join(transactionColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	logger.DatabaseCall("UPDATE", "transactions", "refs", refs)
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		logger.ExitMethodWithError("transactionRepository.TransitionPendingByRef", err)
		return nil, err
	}
	defer rows.Close()

	var updated []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("UPDATE", int64(len(updated)), nil)

	logger.ExitMethod("transactionRepository.TransitionPendingByRef", "updated", len(updated))
	return updated, nil
}

func (r *transactionRepository) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Transaction, error) {
	query := `SELECT ` + strings.Join(transactionColumns, ", ") + ` FROM transactions
	          WHERE status = $1 AND created_at < $2 ORDER BY created_at LIMIT $3`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, domain.TransactionStatusPending, olderThan, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t               domain.Transaction
		senderUserID    sql.NullString
		recipientUserID sql.NullString
		note            sql.NullString
	)
	err := row.Scan(
		&t.ID, &t.BankID, &t.Amount, &t.Name, &t.Date, &t.Status, &t.Pending, &t.Type,
		&senderUserID, &recipientUserID, &t.TransferRef, &note, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.SenderUserID = nullableString(senderUserID)
	t.RecipientUserID = nullableString(recipientUserID)
	t.Note = nullableString(note)
	return &t, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
