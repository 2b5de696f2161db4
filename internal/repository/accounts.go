package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

// AccountsRepository persists accounts and their credit balances. Balance
// mutations are expressed as atomic adjustments, never read-modify-write.
type AccountsRepository interface {
	GetByToken(ctx context.Context, token string) (*model.Account, error)
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)

	// Credit adds amount to the balance unconditionally.
	Credit(ctx context.Context, tx *sqlx.Tx, id int64, amount int64) error
	// DebitIf subtracts amount only when the balance covers it; reports
	// whether the debit happened.
	DebitIf(ctx context.Context, tx *sqlx.Tx, id int64, amount int64) (bool, error)

	Deactivate(ctx context.Context, id int64) error
}

type AccountsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAccountsRepository(db *sqlx.DB) *AccountsRepositoryImpl {
	return &AccountsRepositoryImpl{db: db}
}

var _ AccountsRepository = (*AccountsRepositoryImpl)(nil)

const accountColumns = `id, username, token, role, balance, status, created_at, updated_at`

func (r *AccountsRepositoryImpl) getOne(ctx context.Context, where string, arg any) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a, `
		SELECT `+accountColumns+`
		  FROM accounts
		 WHERE `+where+` LIMIT 1
	`, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountsRepositoryImpl) GetByToken(ctx context.Context, token string) (*model.Account, error) {
	return r.getOne(ctx, "token = ?", token)
}

func (r *AccountsRepositoryImpl) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *AccountsRepositoryImpl) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return r.getOne(ctx, "username = ?", username)
}

func (r *AccountsRepositoryImpl) exec(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (sql.Result, error) {
	if tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return r.db.ExecContext(ctx, query, args...)
}

func (r *AccountsRepositoryImpl) Credit(ctx context.Context, tx *sqlx.Tx, id int64, amount int64) error {
	_, err := r.exec(ctx, tx, `
		UPDATE accounts
		   SET balance = balance + ?, updated_at = NOW()
		 WHERE id = ?
	`, amount, id)
	return err
}

func (r *AccountsRepositoryImpl) DebitIf(ctx context.Context, tx *sqlx.Tx, id int64, amount int64) (bool, error) {
	res, err := r.exec(ctx, tx, `
		UPDATE accounts
		   SET balance = balance - ?, updated_at = NOW()
		 WHERE id = ? AND balance >= ?
	`, amount, id, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *AccountsRepositoryImpl) Deactivate(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE accounts SET status = 'suspended', updated_at = NOW() WHERE id = ?
	`, id)
	return err
}
