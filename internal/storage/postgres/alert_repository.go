package postgres

import (
	"context"
	"errors"
	"fmt"
	"gw-ledger/internal/custom_err"
	"gw-ledger/internal/models"
	"gw-ledger/internal/storage"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) error
	GetByID(ctx context.Context, accountID, alertID uuid.UUID) (*models.Alert, error)
	List(ctx context.Context, accountID uuid.UUID, filter models.AlertFilter) ([]*models.Alert, int64, error)
	MarkNotified(ctx context.Context, alertID uuid.UUID) error
	Review(ctx context.Context, accountID, alertID uuid.UUID, status models.AlertStatus, notes string, reviewer uuid.UUID) (*models.Alert, error)

	CountsByStatus(ctx context.Context, accountID uuid.UUID) (map[models.AlertStatus]int64, error)
	CountsBySeverity(ctx context.Context, accountID uuid.UUID) (map[models.Severity]int64, error)
	CountsByType(ctx context.Context, accountID uuid.UUID) (map[models.AlertType]int64, error)
	Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Alert, error)
}

type PgAlertRepository struct {
	db *pgxpool.Pool
}

func NewAlertRepository(db *pgxpool.Pool) AlertRepository {
	return &PgAlertRepository{db: db}
}

func scanAlert(row pgx.Row, a *models.Alert) error {
	return row.Scan(
		&a.ID,
		&a.AccountID,
		&a.EntryID,
		&a.AlertType,
		&a.Severity,
		&a.Message,
		&a.Details,
		&a.Status,
		&a.Notified,
		&a.NotifiedAt,
		&a.ReviewedBy,
		&a.ReviewedAt,
		&a.Notes,
		&a.CreatedAt,
	)
}

func (r *PgAlertRepository) Create(ctx context.Context, alert *models.Alert) error {
	const op = "storage.CreateAlert"

	err := r.db.QueryRow(ctx, storage.CreateAlertQuery,
		alert.ID,
		alert.AccountID,
		alert.EntryID,
		alert.AlertType,
		alert.Severity,
		alert.Message,
		alert.Details,
	).Scan(&alert.Status, &alert.Notified, &alert.CreatedAt)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *PgAlertRepository) GetByID(ctx context.Context, accountID, alertID uuid.UUID) (*models.Alert, error) {
	const op = "storage.GetAlertByID"

	var alert models.Alert
	err := scanAlert(r.db.QueryRow(ctx, storage.GetAlertByIDQuery, alertID, accountID), &alert)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &alert, nil
}

func (r *PgAlertRepository) List(ctx context.Context, accountID uuid.UUID, filter models.AlertFilter) ([]*models.Alert, int64, error) {
	const op = "storage.ListAlerts"

	where := []string{"account_id = $1"}
	args := []any{accountID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		where = append(where, fmt.Sprintf("severity = $%d", len(args)))
	}

	cond := strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM alerts WHERE "+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: count: %w", op, err)
	}

	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)
	listQuery := fmt.Sprintf(`
		SELECT id, account_id, entry_id, alert_type, severity, message, details,
		       status, notified, notified_at, reviewed_by, reviewed_at,
		       COALESCE(notes, ''), created_at
		FROM alerts
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, cond, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var alert models.Alert
		if err := scanAlert(rows, &alert); err != nil {
			return nil, 0, fmt.Errorf("%s: scan error: %w", op, err)
		}
		alerts = append(alerts, &alert)
	}
	return alerts, total, rows.Err()
}

func (r *PgAlertRepository) MarkNotified(ctx context.Context, alertID uuid.UUID) error {
	_, err := r.db.Exec(ctx, storage.MarkAlertNotifiedQuery, alertID)
	return err
}

// Review переводит алерт из pending в терминальный статус. Если строка не
// обновилась, это либо чужой/несуществующий алерт, либо он уже закрыт.
// Различает эти случаи вызывающая сторона.
func (r *PgAlertRepository) Review(ctx context.Context, accountID, alertID uuid.UUID, status models.AlertStatus, notes string, reviewer uuid.UUID) (*models.Alert, error) {
	var alert models.Alert
	err := scanAlert(r.db.QueryRow(ctx, storage.ReviewAlertQuery, status, notes, reviewer, alertID, accountID), &alert)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, custom_err.ErrInvalidState
		}
		return nil, err
	}
	return &alert, nil
}

func (r *PgAlertRepository) CountsByStatus(ctx context.Context, accountID uuid.UUID) (map[models.AlertStatus]int64, error) {
	rows, err := r.db.Query(ctx, storage.AlertCountsByStatusQuery, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.AlertStatus]int64)
	for rows.Next() {
		var status models.AlertStatus
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *PgAlertRepository) CountsBySeverity(ctx context.Context, accountID uuid.UUID) (map[models.Severity]int64, error) {
	rows, err := r.db.Query(ctx, storage.AlertCountsBySeverityQuery, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.Severity]int64)
	for rows.Next() {
		var severity models.Severity
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		counts[severity] = count
	}
	return counts, rows.Err()
}

func (r *PgAlertRepository) CountsByType(ctx context.Context, accountID uuid.UUID) (map[models.AlertType]int64, error) {
	rows, err := r.db.Query(ctx, storage.AlertCountsByTypeQuery, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.AlertType]int64)
	for rows.Next() {
		var alertType models.AlertType
		var count int64
		if err := rows.Scan(&alertType, &count); err != nil {
			return nil, err
		}
		counts[alertType] = count
	}
	return counts, rows.Err()
}

func (r *PgAlertRepository) Recent(ctx context.Context, accountID uuid.UUID, limit int) ([]*models.Alert, error) {
	const op = "storage.RecentAlerts"

	rows, err := r.db.Query(ctx, storage.RecentAlertsQuery, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var alert models.Alert
		if err := scanAlert(rows, &alert); err != nil {
			return nil, fmt.Errorf("%s: scan error: %w", op, err)
		}
		alerts = append(alerts, &alert)
	}
	return alerts, rows.Err()
}
