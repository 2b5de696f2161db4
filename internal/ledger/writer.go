package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mobiwave/mobiwave-gateway/internal/logger"
	"github.com/mobiwave/mobiwave-gateway/internal/metrics"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
	"github.com/mobiwave/mobiwave-gateway/internal/util"
)

// SendOutcome is one recipient's result from a provider send attempt.
type SendOutcome struct {
	Recipient string
	Success   bool
	MessageID string // provider-assigned, empty on failure
	Error     string
}

// Writer persists per-recipient delivery attempts and debits the charged
// cost. Record failures never abort the user-visible send: the record falls
// back into the campaign metadata blob and the error is swallowed.
type Writer struct {
	db        *sqlx.DB
	msgs      repository.MessagesRepository
	campaigns repository.CampaignsRepository
	accounts  repository.AccountsRepository
	ledger    repository.LedgerRepository

	costPerMessage int64
}

func NewWriter(
	db *sqlx.DB,
	msgs repository.MessagesRepository,
	campaigns repository.CampaignsRepository,
	accounts repository.AccountsRepository,
	ledgerRepo repository.LedgerRepository,
	costPerMessage int64,
) *Writer {
	return &Writer{
		db:             db,
		msgs:           msgs,
		campaigns:      campaigns,
		accounts:       accounts,
		ledger:         ledgerRepo,
		costPerMessage: costPerMessage,
	}
}

func (w *Writer) CostPerMessage() int64 { return w.costPerMessage }

// Record inserts a MessageRecord for one send outcome and returns the cost
// actually charged (0 on failure).
func (w *Writer) Record(
	ctx context.Context,
	out SendOutcome,
	accountID int64,
	campaignID *string,
	senderID, body string,
	rawResponse json.RawMessage,
) int64 {
	now := time.Now()

	var cost int64
	status := model.StatusFailed
	var sentAt, failedAt *time.Time
	if out.Success {
		cost = w.costPerMessage
		status = model.StatusSent
		sentAt = &now
	} else {
		failedAt = &now
	}

	var providerMsgID *string
	if out.MessageID != "" {
		providerMsgID = &out.MessageID
	}
	var errMsg *string
	if out.Error != "" {
		errMsg = &out.Error
	}

	meta := json.RawMessage(`{}`)
	if len(rawResponse) > 0 {
		meta, _ = json.Marshal(map[string]json.RawMessage{"provider_response": rawResponse})
	}

	rec := model.MessageRecord{
		ID:                util.NewID(),
		AccountID:         accountID,
		CampaignID:        campaignID,
		Recipient:         util.StripNonDigits(out.Recipient),
		Content:           body,
		Sender:            senderID,
		Provider:          "mspace",
		ProviderMessageID: providerMsgID,
		Status:            status,
		DeliveryStatus:    model.DeliveryPending,
		Cost:              cost,
		ErrorMessage:      errMsg,
		Metadata:          meta,
		SentAt:            sentAt,
		FailedAt:          failedAt,
	}

	metrics.MessagesTotal.WithLabelValues(status.String()).Inc()

	if err := w.msgs.Insert(ctx, nil, rec); err != nil {
		logger.Log.Warn("message record insert failed, falling back to campaign metadata",
			zap.Error(err), zap.String("recipient", rec.Recipient))
		w.fallback(ctx, campaignID, rec)
	}

	return cost
}

func (w *Writer) fallback(ctx context.Context, campaignID *string, rec model.MessageRecord) {
	if campaignID == nil {
		return
	}
	blob, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := w.campaigns.AppendMessageMeta(ctx, *campaignID, blob); err != nil {
		logger.Log.Error("campaign metadata fallback write failed",
			zap.Error(err), zap.String("campaign_id", *campaignID))
	}
}

// Charge debits the aggregate cost of a send against the account balance as
// an atomic conditional decrement, with an idempotent ledger row keyed by ref.
func (w *Writer) Charge(ctx context.Context, accountID, amount int64, ref string) error {
	if amount <= 0 {
		return nil
	}

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	idem := "charge-" + ref
	exists, err := w.ledger.ExistsByIdem(ctx, tx, idem)
	if err != nil {
		return err
	}
	if exists {
		return tx.Commit()
	}

	if err := w.ledger.Insert(ctx, tx, accountID, repository.LedgerOpCharge, amount, idem, &ref); err != nil {
		return err
	}

	ok, err := w.accounts.DebitIf(ctx, tx, accountID, amount)
	if err != nil {
		return err
	}
	if !ok {
		// Send already happened; clamp to zero rather than overdraft.
		logger.Log.Warn("charge exceeds balance, zeroing account",
			zap.Int64("account_id", accountID), zap.Int64("amount", amount))
		if _, err := tx.ExecContext(ctx, `
			UPDATE accounts SET balance = 0, updated_at = NOW() WHERE id = ?
		`, accountID); err != nil {
			return err
		}
	}

	metrics.CreditsMovedTotal.WithLabelValues(repository.LedgerOpCharge).Add(float64(amount))

	return tx.Commit()
}
