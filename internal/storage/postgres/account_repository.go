package postgres

import (
	"context"
	"errors"
	"fmt"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountRepository interface {
	CreateTx(ctx context.Context, tx pgx.Tx, account *models.Account) (*models.Account, error)
	GetBalanceForUpdateTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error)
	UpdateBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, newBalance int64) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByUsername(ctx context.Context, username string) (*models.Account, error)

	UpsertCategoryLimit(ctx context.Context, accountID uuid.UUID, category models.Category, limit int64) error
	GetCategoryLimit(ctx context.Context, accountID uuid.UUID, category models.Category) (int64, error)
	GetCategoryLimits(ctx context.Context, accountID uuid.UUID) ([]models.CategoryLimit, error)
	UpdateMonthlyLimit(ctx context.Context, accountID uuid.UUID, limit int64) error
}

type PgAccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) AccountRepository {
	return &PgAccountRepository{db: db}
}

func scanAccount(row pgx.Row, account *models.Account) error {
	return row.Scan(
		&account.ID,
		&account.Username,
		&account.Email,
		&account.PasswordHash,
		&account.Currency,
		&account.Balance,
		&account.Version,
		&account.FraudAlerts,
		&account.EmailNotifications,
		&account.MonthlyLimit,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
}

func (r *PgAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	const op = "storage.GetByID"

	var account models.Account
	err := scanAccount(r.db.QueryRow(ctx, storage.GetAccountByIDQuery, id), &account)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &account, nil
}

func (r *PgAccountRepository) GetByUsername(ctx context.Context, username string) (*models.Account, error) {
	const op = "storage.GetByUsername"

	var account models.Account
	err := scanAccount(r.db.QueryRow(ctx, storage.GetAccountByUsernameQuery, username), &account)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &account, nil
}

func (r *PgAccountRepository) UpsertCategoryLimit(ctx context.Context, accountID uuid.UUID, category models.Category, limit int64) error {
	const op = "storage.UpsertCategoryLimit"

	_, err := r.db.Exec(ctx, storage.UpsertCategoryLimitQuery, accountID, category, limit)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *PgAccountRepository) GetCategoryLimit(ctx context.Context, accountID uuid.UUID, category models.Category) (int64, error) {
	var limit int64
	err := r.db.QueryRow(ctx, storage.GetCategoryLimitQuery, accountID, category).Scan(&limit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return limit, nil
}

func (r *PgAccountRepository) GetCategoryLimits(ctx context.Context, accountID uuid.UUID) ([]models.CategoryLimit, error) {
	const op = "storage.GetCategoryLimits"

	rows, err := r.db.Query(ctx, storage.GetCategoryLimitsQuery, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var limits []models.CategoryLimit
	for rows.Next() {
		var l models.CategoryLimit
		if err := rows.Scan(&l.Category, &l.Limit); err != nil {
			return nil, fmt.Errorf("%s: scan error: %w", op, err)
		}
		limits = append(limits, l)
	}
	return limits, rows.Err()
}

func (r *PgAccountRepository) UpdateMonthlyLimit(ctx context.Context, accountID uuid.UUID, limit int64) error {
	const op = "storage.UpdateMonthlyLimit"

	tag, err := r.db.Exec(ctx, storage.UpdateMonthlyLimitQuery, limit, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return custom_err.ErrNotFound
	}
	return nil
}
