package postgres

import (
	"context"
	"errors"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func (r *PgAccountRepository) CreateTx(ctx context.Context, tx pgx.Tx, account *models.Account) (*models.Account, error) {
	var created models.Account
	err := scanAccount(tx.QueryRow(ctx, storage.CreateAccountQuery,
		account.ID, account.Username, account.Email, account.PasswordHash, account.Currency,
	), &created)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "accounts_username_key":
				return nil, custom_err.ErrUsernameExists
			case "accounts_email_key":
				return nil, custom_err.ErrEmailExists
			}
			return nil, custom_err.ErrDuplicateRequest
		}
		return nil, err
	}
	return &created, nil
}

func (r *PgAccountRepository) GetBalanceForUpdateTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	var balance int64
	err := tx.QueryRow(ctx, storage.GetAccountBalanceForUpdateQuery, accountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, custom_err.ErrNotFound
		}
		var pgErr *pgconn.PgError
		// 55P03: строка уже заблокирована конкурентной операцией
		if errors.As(err, &pgErr) && pgErr.Code == "55P03" {
			return 0, custom_err.ErrConflict
		}
		return 0, err
	}
	return balance, nil
}

func (r *PgAccountRepository) UpdateBalanceTx(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, newBalance int64) error {
	res, err := tx.Exec(ctx, storage.UpdateAccountBalanceQuery, newBalance, accountID)
	if err != nil {
		var pgErr *pgconn.PgError
		// 23514: нарушение CHECK (balance >= 0)
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return custom_err.ErrInsufficientFunds
		}
		return err
	}

	if res.RowsAffected() == 0 {
		return custom_err.ErrNotFound
	}

	return nil
}
