package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

// CampaignsRepository persists campaigns. Status updates are compare-and-set
// so the lifecycle stays monotonic under concurrent senders.
type CampaignsRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	// UpdateStatusCAS moves id from `from` to `to`; reports whether the row
	// was in `from`.
	UpdateStatusCAS(ctx context.Context, tx *sqlx.Tx, id string, from, to model.CampaignStatus) (bool, error)
	// FinishSend records the aggregate outcome of an immediate send.
	FinishSend(ctx context.Context, id string, delivered, failed int, status model.CampaignStatus) error
	// AppendMessageMeta appends a message record into the campaign metadata
	// blob (best-effort fallback when the primary insert fails).
	AppendMessageMeta(ctx context.Context, id string, record json.RawMessage) error
	// DeleteIfPreDispatch removes a campaign that has not been dispatched
	// yet (draft or scheduled). Dispatched sends cannot be cancelled.
	DeleteIfPreDispatch(ctx context.Context, id string, accountID int64) (bool, error)
}

type CampaignsRepositoryImpl struct {
	db *sqlx.DB
}

func NewCampaignsRepository(db *sqlx.DB) *CampaignsRepositoryImpl {
	return &CampaignsRepositoryImpl{db: db}
}

var _ CampaignsRepository = (*CampaignsRepositoryImpl)(nil)

func (r *CampaignsRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
	if tx != nil {
		return fn(tx)
	}
	t, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = t.Rollback() }()
	if err := fn(t); err != nil {
		return err
	}
	return t.Commit()
}

func (r *CampaignsRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error {
	const q = `
		INSERT INTO campaigns
		    (id, account_id, name, body, sender_id, recipients, recipient_count,
		     status, scheduled_at, delivered, failed, metadata, created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, NOW(), NOW())
	`
	meta := c.Metadata
	if len(meta) == 0 {
		meta = json.RawMessage(`{}`)
	}
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			c.ID, c.AccountID, c.Name, c.Body, c.SenderID, c.Recipients,
			c.RecipientCount, c.Status.String(), c.ScheduledAt, []byte(meta),
		)
		return err
	})
}

func (r *CampaignsRepositoryImpl) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	var c model.Campaign
	err := r.db.GetContext(ctx, &c, `
		SELECT id, account_id, name, body, sender_id, recipients, recipient_count,
		       status, scheduled_at, delivered, failed, metadata, created_at, updated_at
		  FROM campaigns
		 WHERE id = ? LIMIT 1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignsRepositoryImpl) UpdateStatusCAS(ctx context.Context, tx *sqlx.Tx, id string, from, to model.CampaignStatus) (bool, error) {
	var res sql.Result
	var err error

	const q = `
		UPDATE campaigns SET status = ?, updated_at = NOW()
		 WHERE id = ? AND status = ?
	`
	if tx != nil {
		res, err = tx.ExecContext(ctx, q, to.String(), id, from.String())
	} else {
		res, err = r.db.ExecContext(ctx, q, to.String(), id, from.String())
	}
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CampaignsRepositoryImpl) FinishSend(ctx context.Context, id string, delivered, failed int, status model.CampaignStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		   SET delivered = ?, failed = ?, status = ?, updated_at = NOW()
		 WHERE id = ? AND status = 'sending'
	`, delivered, failed, status.String(), id)
	return err
}

func (r *CampaignsRepositoryImpl) DeleteIfPreDispatch(ctx context.Context, id string, accountID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM campaigns
		 WHERE id = ? AND account_id = ? AND status IN ('draft', 'scheduled')
	`, id, accountID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *CampaignsRepositoryImpl) AppendMessageMeta(ctx context.Context, id string, record json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		   SET metadata = JSON_SET(
		           COALESCE(metadata, JSON_OBJECT()),
		           '$.messages',
		           JSON_ARRAY_APPEND(
		               COALESCE(JSON_EXTRACT(metadata, '$.messages'), JSON_ARRAY()),
		               '$', CAST(? AS JSON)
		           )
		       ),
		       updated_at = NOW()
		 WHERE id = ?
	`, []byte(record), id)
	return err
}
