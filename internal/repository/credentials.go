package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

// CredentialsRepository reads and stores per-account provider credentials.
type CredentialsRepository interface {
	// GetActive returns the active credential for (account, provider), or nil.
	GetActive(ctx context.Context, accountID int64, provider string) (*model.Credential, error)
	Upsert(ctx context.Context, c model.Credential) error
}

type CredentialsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCredentialsRepository(db *sqlx.DB) *CredentialsRepositoryImpl {
	return &CredentialsRepositoryImpl{db: db}
}

var _ CredentialsRepository = (*CredentialsRepositoryImpl)(nil)

func (r *CredentialsRepositoryImpl) GetActive(ctx context.Context, accountID int64, provider string) (*model.Credential, error) {
	var c model.Credential
	err := r.db.GetContext(ctx, &c, `
		SELECT id, account_id, provider, api_key, username, sender_id, active, created_at, updated_at
		  FROM api_credentials
		 WHERE account_id = ? AND provider = ? AND active = 1
		 LIMIT 1
	`, accountID, provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Upsert replaces the credential for (account, provider); the unique key
// keeps at most one active row per pair.
func (r *CredentialsRepositoryImpl) Upsert(ctx context.Context, c model.Credential) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_credentials
		    (account_id, provider, api_key, username, sender_id, active, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    api_key    = VALUES(api_key),
		    username   = VALUES(username),
		    sender_id  = VALUES(sender_id),
		    active     = VALUES(active),
		    updated_at = VALUES(updated_at)
	`, c.AccountID, c.Provider, c.APIKey, c.Username, c.SenderID, c.Active)
	return err
}
