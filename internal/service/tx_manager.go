package service

import (
	"context"
	"errors"
	"gw-ledger/internal/custom_err"

	"github.com/jackc/pgx/v5"
)

type TxManager interface {
	WithTx(ctx context.Context, fn func(pgx.Tx) error) error
}
type PgxPoolIface interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type PgxTxManager struct {
	pool PgxPoolIface
}

func NewPgxTxManager(pool PgxPoolIface) *PgxTxManager {
	return &PgxTxManager{pool: pool}
}

// WithTx выполняет fn в одной транзакции: либо коммитится все, либо ничего.
// Истекший дедлайн превращается в ErrTimeout без частичных записей,
// поэтому вызов можно безопасно повторить.
func (m *PgxTxManager) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return custom_err.ErrTimeout
		}
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, context.DeadlineExceeded) {
			return custom_err.ErrTimeout
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return custom_err.ErrTimeout
		}
		return err
	}

	return nil
}
