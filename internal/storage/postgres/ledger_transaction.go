package postgres

import (
	"context"
	"errors"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// CreateEntryTx вставляет запись в рамках открытой транзакции.
// request_id хранится как NULL для записей без ключа идемпотентности,
// иначе частичный уникальный индекс отбил бы пустые строки.
func (r *PgLedgerRepository) CreateEntryTx(ctx context.Context, tx pgx.Tx, entry *models.LedgerEntry) error {
	var requestID *string
	if entry.RequestID != "" {
		requestID = &entry.RequestID
	}

	err := tx.QueryRow(ctx, storage.CreateEntryQuery,
		entry.ID,
		entry.AccountID,
		entry.Kind,
		entry.Amount,
		entry.Category,
		entry.Description,
		entry.Merchant,
		entry.PaymentMethod,
		entry.OccurredAt,
		entry.TransferGroup,
		entry.Counterparty,
		requestID,
		entry.AICategorized,
		entry.Confidence,
	).Scan(&entry.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return custom_err.ErrDuplicateRequest
		}
		return err
	}
	return nil
}
