package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/ledger"
	"github.com/mobiwave/mobiwave-gateway/internal/logger"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
	"github.com/mobiwave/mobiwave-gateway/internal/util"
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNoRecipients        = errors.New("at least one recipient required")
	ErrEmptyBody           = errors.New("message body required")
	ErrBadSchedule         = errors.New("invalid schedule config")
)

// SenderClient is the slice of the provider client the orchestrator needs.
type SenderClient interface {
	Send(ctx context.Context, creds mspace.Credentials, recipient, message, senderID string) (*mspace.SendResult, error)
}

// Orchestrator turns a send request into a campaign: immediate sends go to
// the provider per recipient, deferred modes create scheduled jobs or
// automation rules without touching the provider.
type Orchestrator struct {
	db        *sqlx.DB
	accounts  repository.AccountsRepository
	campaigns repository.CampaignsRepository
	schedules repository.SchedulesRepository
	writer    *ledger.Writer
	resolver  *credential.Resolver
	client    SenderClient

	defaultSender string
	maxRetries    int
	workers       int
}

func NewOrchestrator(
	db *sqlx.DB,
	accounts repository.AccountsRepository,
	campaigns repository.CampaignsRepository,
	schedules repository.SchedulesRepository,
	writer *ledger.Writer,
	resolver *credential.Resolver,
	client SenderClient,
	defaultSender string,
	maxRetries, workers int,
) *Orchestrator {
	if maxRetries < 1 {
		maxRetries = 3
	}
	if workers < 1 {
		workers = 8
	}
	if defaultSender == "" {
		defaultSender = "MOBIWAVE"
	}
	return &Orchestrator{
		db:            db,
		accounts:      accounts,
		campaigns:     campaigns,
		schedules:     schedules,
		writer:        writer,
		resolver:      resolver,
		client:        client,
		defaultSender: defaultSender,
		maxRetries:    maxRetries,
		workers:       workers,
	}
}

type SendInput struct {
	Name       string
	Recipients []string
	Body       string
	SenderID   string
	Schedule   *model.ScheduleConfig
}

type RecipientResult struct {
	Recipient string `json:"recipient"`
	Success   bool   `json:"success"`
}

type SendOutput struct {
	CampaignID string            `json:"campaign_id"`
	Scheduled  bool              `json:"scheduled,omitempty"`
	Automated  bool              `json:"automated,omitempty"`
	TotalSent  int               `json:"total_sent,omitempty"`
	Delivered  int               `json:"delivered,omitempty"`
	Failed     int               `json:"failed,omitempty"`
	Results    []RecipientResult `json:"results,omitempty"`
}

// Send creates the campaign record and executes the requested scheduling
// mode. On ErrInsufficientCredits the campaign is still persisted, as draft.
func (o *Orchestrator) Send(ctx context.Context, accountID int64, in SendInput) (*SendOutput, error) {
	if len(in.Recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if in.Body == "" {
		return nil, ErrEmptyBody
	}

	mode := model.ScheduleImmediate
	if in.Schedule != nil {
		var ok bool
		if mode, ok = model.ParseScheduleMode(in.Schedule.Type.String()); !ok {
			return nil, ErrBadSchedule
		}
	}

	recipients := make(model.RecipientList, 0, len(in.Recipients))
	for _, r := range in.Recipients {
		recipients = append(recipients, util.NormalizePhone(r))
	}

	name := in.Name
	if name == "" {
		name = "SMS Campaign " + time.Now().Format("2006-01-02 15:04")
	}
	sender := in.SenderID
	if sender == "" {
		sender = o.defaultSender
	}

	c := model.Campaign{
		ID:             util.NewID(),
		AccountID:      accountID,
		Name:           name,
		Body:           in.Body,
		SenderID:       sender,
		Recipients:     recipients,
		RecipientCount: len(recipients),
	}

	switch mode {
	case model.ScheduleScheduled:
		return o.schedule(ctx, c, in.Schedule)
	case model.ScheduleRecurring, model.ScheduleTriggered:
		return o.automate(ctx, c, mode, in.Schedule)
	default:
		return o.sendImmediate(ctx, c)
	}
}

func (o *Orchestrator) schedule(ctx context.Context, c model.Campaign, cfg *model.ScheduleConfig) (*SendOutput, error) {
	if cfg == nil || cfg.Datetime == nil {
		return nil, ErrBadSchedule
	}

	c.Status = model.CampaignScheduled
	c.ScheduledAt = cfg.Datetime

	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := o.campaigns.Insert(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := o.schedules.InsertJob(ctx, tx, c.ID, *cfg.Datetime); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &SendOutput{CampaignID: c.ID, Scheduled: true}, nil
}

func (o *Orchestrator) automate(ctx context.Context, c model.Campaign, mode model.ScheduleMode, cfg *model.ScheduleConfig) (*SendOutput, error) {
	c.Status = model.CampaignDraft

	triggerType := "time_based"
	if mode == model.ScheduleTriggered {
		triggerType = "event_based"
	}
	triggerCfg, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal trigger config: %w", err)
	}

	tx, err := o.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := o.campaigns.Insert(ctx, tx, c); err != nil {
		return nil, err
	}
	if err := o.schedules.InsertRule(ctx, tx, model.AutomationRule{
		CampaignID:    c.ID,
		TriggerType:   triggerType,
		TriggerConfig: triggerCfg,
		Active:        true,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &SendOutput{CampaignID: c.ID, Automated: true}, nil
}

// EstimateCost returns the credit units a full campaign send would charge.
func (o *Orchestrator) EstimateCost(body string, recipientCount int) int64 {
	return int64(recipientCount) * int64(util.MessageParts(body)) * o.writer.CostPerMessage()
}

func (o *Orchestrator) sendImmediate(ctx context.Context, c model.Campaign) (*SendOutput, error) {
	acct, err := o.accounts.GetByID(ctx, c.AccountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ledger.ErrAccountNotFound
	}

	estimated := o.EstimateCost(c.Body, c.RecipientCount)
	if acct.Balance < estimated {
		c.Status = model.CampaignDraft
		if err := o.campaigns.Insert(ctx, nil, c); err != nil {
			return nil, err
		}
		return &SendOutput{CampaignID: c.ID}, ErrInsufficientCredits
	}

	c.Status = model.CampaignSending
	if err := o.campaigns.Insert(ctx, nil, c); err != nil {
		return nil, err
	}

	return o.run(ctx, c)
}

// run dispatches one provider send per recipient with bounded concurrency.
// Each recipient gets exactly one outcome, recorded through the ledger
// writer; the aggregate cost is charged once at the end.
func (o *Orchestrator) run(ctx context.Context, c model.Campaign) (*SendOutput, error) {
	creds, err := o.resolver.Resolve(ctx, c.AccountID)
	if err != nil {
		_ = o.campaigns.FinishSend(ctx, c.ID, 0, len(c.Recipients), model.CampaignFailed)
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make([]RecipientResult, len(c.Recipients))
		total   int64
		sem     = make(chan struct{}, o.workers)
	)

	for i, recipient := range c.Recipients {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, recipient string) {
			defer wg.Done()
			defer func() { <-sem }()

			var res *mspace.SendResult
			sendErr := mspace.Do(ctx, o.maxRetries, func(ctx context.Context) error {
				var callErr error
				res, callErr = o.client.Send(ctx, creds, recipient, c.Body, c.SenderID)
				return callErr
			})

			out := ledger.SendOutcome{Recipient: recipient, Success: sendErr == nil}
			var raw json.RawMessage
			if sendErr == nil && res != nil {
				out.MessageID = res.MessageID
				raw = res.Raw
			} else if sendErr != nil {
				out.Error = sendErr.Error()
			}

			cost := o.writer.Record(ctx, out, c.AccountID, &c.ID, c.SenderID, c.Body, raw)

			mu.Lock()
			results[i] = RecipientResult{Recipient: recipient, Success: out.Success}
			total += cost
			mu.Unlock()
		}(i, recipient)
	}
	wg.Wait()

	delivered, failed := 0, 0
	for _, r := range results {
		if r.Success {
			delivered++
		} else {
			failed++
		}
	}

	if err := o.writer.Charge(ctx, c.AccountID, total, c.ID); err != nil {
		logger.Log.Error("aggregate charge failed", zap.Error(err), zap.String("campaign_id", c.ID))
	}

	final := model.CampaignSent
	if delivered == 0 {
		final = model.CampaignFailed
	}
	if err := o.campaigns.FinishSend(ctx, c.ID, delivered, failed, final); err != nil {
		logger.Log.Error("campaign finish update failed", zap.Error(err), zap.String("campaign_id", c.ID))
	}

	return &SendOutput{
		CampaignID: c.ID,
		TotalSent:  len(results),
		Delivered:  delivered,
		Failed:     failed,
		Results:    results,
	}, nil
}

// DispatchScheduled executes a due scheduled campaign. Invoked by the sender
// worker for envelopes relayed from the outbox.
func (o *Orchestrator) DispatchScheduled(ctx context.Context, env model.DispatchEnvelope) error {
	c, err := o.campaigns.GetByID(ctx, env.CampaignID)
	if err != nil {
		return err
	}
	if c == nil {
		logger.Log.Warn("scheduled campaign vanished", zap.String("campaign_id", env.CampaignID))
		return nil
	}

	ok, err := o.campaigns.UpdateStatusCAS(ctx, nil, c.ID, model.CampaignScheduled, model.CampaignSending)
	if err != nil {
		return err
	}
	if !ok {
		// Someone else already picked this campaign up, or it was cancelled.
		return nil
	}

	acct, err := o.accounts.GetByID(ctx, c.AccountID)
	if err != nil {
		return err
	}
	if acct == nil || !acct.Active() {
		return o.campaigns.FinishSend(ctx, c.ID, 0, c.RecipientCount, model.CampaignFailed)
	}
	if acct.Balance < o.EstimateCost(c.Body, c.RecipientCount) {
		logger.Log.Warn("scheduled campaign lacks credits",
			zap.String("campaign_id", c.ID), zap.Int64("balance", acct.Balance))
		return o.campaigns.FinishSend(ctx, c.ID, 0, c.RecipientCount, model.CampaignFailed)
	}

	_, err = o.run(ctx, *c)
	return err
}

// Cancel removes a campaign that has not been dispatched yet, along with its
// pending job. Campaigns in sending or later states cannot be cancelled.
func (o *Orchestrator) Cancel(ctx context.Context, accountID int64, campaignID string) (bool, error) {
	if _, err := o.schedules.CancelPending(ctx, campaignID); err != nil {
		return false, err
	}
	return o.campaigns.DeleteIfPreDispatch(ctx, campaignID, accountID)
}
