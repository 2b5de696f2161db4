package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

// SchedulesRepository persists deferred sends and automation rules.
type SchedulesRepository interface {
	InsertJob(ctx context.Context, tx *sqlx.Tx, campaignID string, runAt time.Time) error
	// ClaimDue atomically claims up to limit due pending jobs, moving them to
	// processing, so concurrent runners never pick the same job twice.
	ClaimDue(ctx context.Context, limit int) ([]model.ScheduledJob, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64) error
	// CancelPending deletes a pending job; dispatched jobs cannot be cancelled.
	CancelPending(ctx context.Context, campaignID string) (bool, error)

	InsertRule(ctx context.Context, tx *sqlx.Tx, rule model.AutomationRule) error
}

type SchedulesRepositoryImpl struct {
	db *sqlx.DB
}

func NewSchedulesRepository(db *sqlx.DB) *SchedulesRepositoryImpl {
	return &SchedulesRepositoryImpl{db: db}
}

var _ SchedulesRepository = (*SchedulesRepositoryImpl)(nil)

func (r *SchedulesRepositoryImpl) InsertJob(ctx context.Context, tx *sqlx.Tx, campaignID string, runAt time.Time) error {
	const q = `
		INSERT INTO scheduled_jobs (campaign_id, run_at, status, created_at, updated_at)
		VALUES (?, ?, 'pending', NOW(), NOW())
	`
	if tx != nil {
		_, err := tx.ExecContext(ctx, q, campaignID, runAt)
		return err
	}
	_, err := r.db.ExecContext(ctx, q, campaignID, runAt)
	return err
}

func (r *SchedulesRepositoryImpl) ClaimDue(ctx context.Context, limit int) ([]model.ScheduledJob, error) {
	if limit <= 0 {
		limit = 50
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var jobs []model.ScheduledJob
	if err := tx.SelectContext(ctx, &jobs, `
		SELECT id, campaign_id, run_at, status, created_at, updated_at
		  FROM scheduled_jobs
		 WHERE status = 'pending' AND run_at <= NOW()
		 ORDER BY run_at
		 LIMIT ?
		 FOR UPDATE SKIP LOCKED
	`, limit); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, tx.Commit()
	}

	ids := make([]int64, 0, len(jobs))
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	query, args, err := sqlx.In(`
		UPDATE scheduled_jobs SET status = 'processing', updated_at = NOW() WHERE id IN (?)
	`, ids)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *SchedulesRepositoryImpl) markStatus(ctx context.Context, id int64, status model.JobStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_jobs SET status = ?, updated_at = NOW() WHERE id = ?
	`, status.String(), id)
	return err
}

func (r *SchedulesRepositoryImpl) MarkProcessed(ctx context.Context, id int64) error {
	return r.markStatus(ctx, id, model.JobProcessed)
}

func (r *SchedulesRepositoryImpl) MarkFailed(ctx context.Context, id int64) error {
	return r.markStatus(ctx, id, model.JobFailed)
}

func (r *SchedulesRepositoryImpl) CancelPending(ctx context.Context, campaignID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM scheduled_jobs WHERE campaign_id = ? AND status = 'pending'
	`, campaignID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *SchedulesRepositoryImpl) InsertRule(ctx context.Context, tx *sqlx.Tx, rule model.AutomationRule) error {
	const q = `
		INSERT INTO automation_rules (campaign_id, trigger_type, trigger_config, active, created_at)
		VALUES (?, ?, ?, ?, NOW())
	`
	cfg := rule.TriggerConfig
	if len(cfg) == 0 {
		cfg = []byte(`{}`)
	}
	if tx != nil {
		_, err := tx.ExecContext(ctx, q, rule.CampaignID, rule.TriggerType, []byte(cfg), rule.Active)
		return err
	}
	_, err := r.db.ExecContext(ctx, q, rule.CampaignID, rule.TriggerType, []byte(cfg), rule.Active)
	return err
}
