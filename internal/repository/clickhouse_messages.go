package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

// ArchiveRecord is the reporting view of a message record kept in ClickHouse.
type ArchiveRecord struct {
	ID                string  `db:"id" json:"id"`
	AccountID         int64   `db:"account_id" json:"account_id"`
	CampaignID        *string `db:"campaign_id" json:"campaign_id,omitempty"`
	Recipient         string  `db:"recipient" json:"recipient"`
	Sender            string  `db:"sender" json:"sender"`
	Status            string  `db:"status" json:"status"`
	DeliveryStatus    string  `db:"delivery_status" json:"delivery_status"`
	Cost              int64   `db:"cost" json:"cost"`
	ProviderMessageID *string `db:"provider_message_id" json:"provider_message_id,omitempty"`
	CreatedAt         string  `db:"created_at" json:"created_at"`
}

// ArchiveRepository lists message history from ClickHouse for the dashboard
// message log.
type ArchiveRepository interface {
	ListByAccount(ctx context.Context, accountID int64, recipient string, status model.MessageStatus, limit, offset int) ([]ArchiveRecord, error)
}

type archiveRepository struct {
	ch *sqlx.DB
}

func NewArchiveRepository(ch *sqlx.DB) ArchiveRepository {
	return &archiveRepository{ch: ch}
}

func (r *archiveRepository) ListByAccount(ctx context.Context, accountID int64, recipient string, status model.MessageStatus, limit, offset int) ([]ArchiveRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `
		SELECT id, account_id, campaign_id, recipient, sender, status,
		       delivery_status, cost, provider_message_id, created_at
		FROM mobiwave.message_records_latest
		WHERE account_id = ?
	`
	args := []any{accountID}

	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}
	if recipient != "" {
		q += " AND recipient = ?"
		args = append(args, recipient)
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []ArchiveRecord
	if err := r.ch.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
