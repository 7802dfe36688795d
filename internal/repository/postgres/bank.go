package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"moneylink-backend/internal/domain"
	"moneylink-backend/internal/logger"
	"moneylink-backend/internal/repository"
)

const bankColumns = `id, user_id, institution_id, institution_name, item_id, COALESCE(mask, ''),
	status, funding_source_ref, created_at, updated_at`

type bankRepository struct {
	db *sql.DB
}

func NewBankRepository(db *sql.DB) repository.BankRepository {
	return &bankRepository{db: db}
}

func (r *bankRepository) GetByID(ctx context.Context, id string) (*domain.Bank, error) {
	return r.getOne(ctx, `SELECT `+bankColumns+` FROM banks WHERE id = $1`, id)
}

func (r *bankRepository) GetByItemID(ctx context.Context, itemID string) (*domain.Bank, error) {
	return r.getOne(ctx, `SELECT `+bankColumns+` FROM banks WHERE item_id = $1`, itemID)
}

func (r *bankRepository) GetByFundingSourceRef(ctx context.Context, ref string) (*domain.Bank, error) {
	return r.getOne(ctx, `SELECT `+bankColumns+` FROM banks WHERE funding_source_ref = $1`, ref)
}

func (r *bankRepository) GetFirstTransferable(ctx context.Context, userID string) (*domain.Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks
	          WHERE user_id = $1 AND funding_source_ref IS NOT NULL AND funding_source_ref <> ''
	          ORDER BY created_at ASC LIMIT 1`
	return r.getOne(ctx, query, userID)
}

func (r *bankRepository) UpdateStatus(ctx context.Context, id string, status domain.BankStatus) error {
	logger.DatabaseCall("UPDATE", "banks", "bankID", id, "status", status)
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE banks SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	return requireAffected(result, domain.ErrBankNotFound)
}

func (r *bankRepository) ClearFundingSource(ctx context.Context, id string) error {
	logger.DatabaseCall("UPDATE", "banks", "bankID", id, "funding_source_ref", nil)
	result, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE banks SET funding_source_ref = NULL, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err)
		return err
	}
	return requireAffected(result, domain.ErrBankNotFound)
}

func (r *bankRepository) getOne(ctx context.Context, query string, arg any) (*domain.Bank, error) {
	var (
		b       domain.Bank
		fundRef sql.NullString
	)
	err := conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&b.ID, &b.UserID, &b.InstitutionID, &b.InstitutionName, &b.ItemID, &b.Mask,
		&b.Status, &fundRef, &b.CreatedAt, &b.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBankNotFound
	}
	if err != nil {
		return nil, err
	}
	b.FundingSourceRef = nullableString(fundRef)
	return &b, nil
}

func requireAffected(result sql.Result, notFound error) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	logger.DatabaseResult("UPDATE", rows, nil)
	if rows == 0 {
		return notFound
	}
	return nil
}
