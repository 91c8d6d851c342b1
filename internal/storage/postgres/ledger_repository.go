package postgres

import (
	"context"
	"errors"
	"fmt"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LedgerRepository interface {
	CreateEntryTx(ctx context.Context, tx pgx.Tx, entry *models.LedgerEntry) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	GetByRequestID(ctx context.Context, accountID uuid.UUID, requestID string) (*models.LedgerEntry, error)
	List(ctx context.Context, accountID uuid.UUID, filter models.EntryFilter) ([]*models.LedgerEntry, int64, error)

	CreateFraudTag(ctx context.Context, entryID uuid.UUID, tagType models.AlertType, severity models.Severity, message string) error
	GetFraudTags(ctx context.Context, entryIDs []uuid.UUID) (map[uuid.UUID][]models.FraudTag, error)

	AvgMonthlyExpense(ctx context.Context, accountID uuid.UUID, before time.Time) (float64, int64, error)
	CategoryExpenseTotal(ctx context.Context, accountID uuid.UUID, category models.Category, from, to time.Time) (int64, error)
	CountRecentEntries(ctx context.Context, accountID uuid.UUID, since time.Time, exclude uuid.UUID) (int64, error)
	CountNightEntries(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error)
}

type PgLedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) LedgerRepository {
	return &PgLedgerRepository{db: db}
}

func scanEntry(row pgx.Row, e *models.LedgerEntry) error {
	return row.Scan(
		&e.ID,
		&e.AccountID,
		&e.Kind,
		&e.Amount,
		&e.Category,
		&e.Description,
		&e.Merchant,
		&e.PaymentMethod,
		&e.OccurredAt,
		&e.TransferGroup,
		&e.Counterparty,
		&e.RequestID,
		&e.AICategorized,
		&e.Confidence,
		&e.CreatedAt,
	)
}

func (r *PgLedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	const op = "storage.GetByID"

	var entry models.LedgerEntry
	err := scanEntry(r.db.QueryRow(ctx, storage.GetEntryByIDQuery, id), &entry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &entry, nil
}

func (r *PgLedgerRepository) GetByRequestID(ctx context.Context, accountID uuid.UUID, requestID string) (*models.LedgerEntry, error) {
	const op = "storage.GetByRequestID"

	var entry models.LedgerEntry
	err := scanEntry(r.db.QueryRow(ctx, storage.GetEntryByRequestIDQuery, accountID, requestID), &entry)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &entry, nil
}

// List возвращает страницу записей счета с учетом фильтров.
// Условия собираются динамически, поэтому запрос не в queries.go.
func (r *PgLedgerRepository) List(ctx context.Context, accountID uuid.UUID, filter models.EntryFilter) ([]*models.LedgerEntry, int64, error) {
	const op = "storage.List"

	where := []string{"account_id = $1"}
	args := []any{accountID}

	if filter.Kind != "" {
		args = append(args, filter.Kind)
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("occurred_at <= $%d", len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM ledger_entries WHERE " + cond
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	listQuery := fmt.Sprintf(`
		SELECT id, account_id, kind, amount, category, description, merchant,
		       payment_method, occurred_at, transfer_group, counterparty,
		       COALESCE(request_id, ''), ai_categorized, confidence, created_at
		FROM ledger_entries
		WHERE %s
		ORDER BY occurred_at DESC
		LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		if err := scanEntry(rows, &entry); err != nil {
			return nil, 0, fmt.Errorf("%s: scan error: %w", op, err)
		}
		entries = append(entries, &entry)
	}
	return entries, total, rows.Err()
}

func (r *PgLedgerRepository) CreateFraudTag(ctx context.Context, entryID uuid.UUID, tagType models.AlertType, severity models.Severity, message string) error {
	const op = "storage.CreateFraudTag"

	_, err := r.db.Exec(ctx, storage.CreateFraudTagQuery, entryID, tagType, severity, message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetFraudTags возвращает фрод-метки пачкой для набора записей,
// сгруппированные по id записи
func (r *PgLedgerRepository) GetFraudTags(ctx context.Context, entryIDs []uuid.UUID) (map[uuid.UUID][]models.FraudTag, error) {
	const op = "storage.GetFraudTags"

	if len(entryIDs) == 0 {
		return map[uuid.UUID][]models.FraudTag{}, nil
	}

	rows, err := r.db.Query(ctx, storage.GetFraudTagsByEntriesQuery, entryIDs)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	tags := make(map[uuid.UUID][]models.FraudTag)
	for rows.Next() {
		var tag models.FraudTag
		if err := rows.Scan(&tag.ID, &tag.EntryID, &tag.TagType, &tag.Severity, &tag.Message, &tag.FlaggedAt); err != nil {
			return nil, fmt.Errorf("%s: scan error: %w", op, err)
		}
		tags[tag.EntryID] = append(tags[tag.EntryID], tag)
	}
	return tags, rows.Err()
}

// AvgMonthlyExpense средний месячный расход по полным месяцам до before
// и число таких месяцев
func (r *PgLedgerRepository) AvgMonthlyExpense(ctx context.Context, accountID uuid.UUID, before time.Time) (float64, int64, error) {
	var avg float64
	var months int64
	err := r.db.QueryRow(ctx, storage.AvgMonthlyExpenseQuery, accountID, before).Scan(&avg, &months)
	if err != nil {
		return 0, 0, err
	}
	return avg, months, nil
}

func (r *PgLedgerRepository) CategoryExpenseTotal(ctx context.Context, accountID uuid.UUID, category models.Category, from, to time.Time) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx, storage.CategoryExpenseTotalQuery, accountID, category, from, to).Scan(&total)
	return total, err
}

func (r *PgLedgerRepository) CountRecentEntries(ctx context.Context, accountID uuid.UUID, since time.Time, exclude uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, storage.CountRecentEntriesQuery, accountID, since, exclude).Scan(&count)
	return count, err
}

func (r *PgLedgerRepository) CountNightEntries(ctx context.Context, accountID uuid.UUID, since time.Time) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, storage.CountNightEntriesQuery, accountID, since).Scan(&count)
	return count, err
}
