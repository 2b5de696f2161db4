package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Ledger operation kinds.
const (
	LedgerOpPurchase   = "purchase"
	LedgerOpDistribute = "distribute"
	LedgerOpCharge     = "charge"
)

// LedgerRepository records every credit movement with an idempotency key so
// replays never double-apply.
type LedgerRepository interface {
	ExistsByIdem(ctx context.Context, tx *sqlx.Tx, idem string) (bool, error)
	Insert(ctx context.Context, tx *sqlx.Tx, accountID int64, op string, amount int64, idem string, ref *string) error
}

type ledgerRepo struct{}

func NewLedgerRepository() LedgerRepository { return &ledgerRepo{} }

func (r *ledgerRepo) ExistsByIdem(ctx context.Context, tx *sqlx.Tx, idem string) (bool, error) {
	var one int
	err := tx.QueryRowxContext(ctx,
		`SELECT 1 FROM credit_ledger WHERE idempotency_key = ? LIMIT 1`, idem,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *ledgerRepo) Insert(ctx context.Context, tx *sqlx.Tx, accountID int64, op string, amount int64, idem string, ref *string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_ledger (account_id, op, amount, idempotency_key, reference, created_at)
		VALUES (?, ?, ?, ?, ?, NOW())
		ON DUPLICATE KEY UPDATE id = id
	`, accountID, op, amount, idem, ref)
	return err
}
