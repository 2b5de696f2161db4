package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

// MessagesRepository persists per-recipient delivery attempts.
type MessagesRepository interface {
	Insert(ctx context.Context, tx *sqlx.Tx, m model.MessageRecord) error
	// UpdateDeliveryStatus updates the async delivery status by provider
	// message id; reports how many records matched.
	UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status model.DeliveryStatus) (int64, error)
}

type MessagesRepositoryImpl struct {
	db *sqlx.DB
}

func NewMessagesRepository(db *sqlx.DB) *MessagesRepositoryImpl {
	return &MessagesRepositoryImpl{db: db}
}

var _ MessagesRepository = (*MessagesRepositoryImpl)(nil)

func (r *MessagesRepositoryImpl) withTx(ctx context.Context, tx *sqlx.Tx, fn func(*sqlx.Tx) error) error {
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

func (r *MessagesRepositoryImpl) Insert(ctx context.Context, tx *sqlx.Tx, m model.MessageRecord) error {
	const q = `
		INSERT INTO message_records
		    (id, account_id, campaign_id, recipient, content, sender, provider,
		     provider_message_id, status, delivery_status, cost, error_message,
		     metadata, sent_at, failed_at, created_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW())
	`
	meta := m.Metadata
	if len(meta) == 0 {
		meta = []byte(`{}`)
	}
	return r.withTx(ctx, tx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, q,
			m.ID, m.AccountID, m.CampaignID, m.Recipient, m.Content, m.Sender,
			m.Provider, m.ProviderMessageID, m.Status.String(),
			m.DeliveryStatus.String(), m.Cost, m.ErrorMessage, []byte(meta),
			m.SentAt, m.FailedAt,
		)
		return err
	})
}

func (r *MessagesRepositoryImpl) UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status model.DeliveryStatus) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE message_records
		   SET delivery_status = ?
		 WHERE provider_message_id = ?
	`, status.String(), providerMessageID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
