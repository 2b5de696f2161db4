package campaign

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
)

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account
	debits   []int64
}

func newFakeAccounts(accounts ...*model.Account) *fakeAccounts {
	m := make(map[int64]*model.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}
	return &fakeAccounts{accounts: m}
}

func (f *fakeAccounts) GetByToken(ctx context.Context, token string) (*model.Account, error) {
	return nil, nil
}

func (f *fakeAccounts) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAccounts) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	return nil, nil
}

func (f *fakeAccounts) Credit(ctx context.Context, tx *sqlx.Tx, id int64, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.Balance += amount
	}
	return nil
}

func (f *fakeAccounts) DebitIf(ctx context.Context, tx *sqlx.Tx, id int64, amount int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.accounts[id]
	if !ok || a.Balance < amount {
		return false, nil
	}
	a.Balance -= amount
	f.debits = append(f.debits, amount)
	return true, nil
}

func (f *fakeAccounts) Deactivate(ctx context.Context, id int64) error { return nil }

var _ repository.AccountsRepository = (*fakeAccounts)(nil)

type fakeCampaigns struct {
	mu       sync.Mutex
	inserted []model.Campaign
	finished map[string]model.CampaignStatus
}

func newFakeCampaigns() *fakeCampaigns {
	return &fakeCampaigns{finished: make(map[string]model.CampaignStatus)}
}

func (f *fakeCampaigns) Insert(ctx context.Context, tx *sqlx.Tx, c model.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, c)
	return nil
}

func (f *fakeCampaigns) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.inserted {
		if f.inserted[i].ID == id {
			cp := f.inserted[i]
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeCampaigns) UpdateStatusCAS(ctx context.Context, tx *sqlx.Tx, id string, from, to model.CampaignStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.inserted {
		if f.inserted[i].ID == id && f.inserted[i].Status == from {
			f.inserted[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCampaigns) FinishSend(ctx context.Context, id string, delivered, failed int, status model.CampaignStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished[id] = status
	for i := range f.inserted {
		if f.inserted[i].ID == id {
			f.inserted[i].Delivered = delivered
			f.inserted[i].Failed = failed
			f.inserted[i].Status = status
		}
	}
	return nil
}

func (f *fakeCampaigns) AppendMessageMeta(ctx context.Context, id string, record json.RawMessage) error {
	return nil
}

func (f *fakeCampaigns) DeleteIfPreDispatch(ctx context.Context, id string, accountID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.inserted {
		c := f.inserted[i]
		if c.ID == id && c.AccountID == accountID &&
			(c.Status == model.CampaignDraft || c.Status == model.CampaignScheduled) {
			f.inserted = append(f.inserted[:i], f.inserted[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

var _ repository.CampaignsRepository = (*fakeCampaigns)(nil)

type insertedJob struct {
	campaignID string
	runAt      time.Time
}

type fakeSchedules struct {
	mu    sync.Mutex
	jobs  []insertedJob
	rules []model.AutomationRule
}

func (f *fakeSchedules) InsertJob(ctx context.Context, tx *sqlx.Tx, campaignID string, runAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, insertedJob{campaignID: campaignID, runAt: runAt})
	return nil
}

func (f *fakeSchedules) ClaimDue(ctx context.Context, limit int) ([]model.ScheduledJob, error) {
	return nil, nil
}

func (f *fakeSchedules) MarkProcessed(ctx context.Context, id int64) error { return nil }
func (f *fakeSchedules) MarkFailed(ctx context.Context, id int64) error    { return nil }

func (f *fakeSchedules) CancelPending(ctx context.Context, campaignID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.jobs {
		if f.jobs[i].campaignID == campaignID {
			f.jobs = append(f.jobs[:i], f.jobs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSchedules) InsertRule(ctx context.Context, tx *sqlx.Tx, rule model.AutomationRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule)
	return nil
}

var _ repository.SchedulesRepository = (*fakeSchedules)(nil)

type fakeMessages struct {
	mu      sync.Mutex
	records []model.MessageRecord
}

func (f *fakeMessages) Insert(ctx context.Context, tx *sqlx.Tx, m model.MessageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, m)
	return nil
}

func (f *fakeMessages) UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status model.DeliveryStatus) (int64, error) {
	return 0, nil
}

var _ repository.MessagesRepository = (*fakeMessages)(nil)

type fakeLedger struct {
	mu      sync.Mutex
	entries map[string]int64
}

func newFakeLedger() *fakeLedger { return &fakeLedger{entries: make(map[string]int64)} }

func (f *fakeLedger) ExistsByIdem(ctx context.Context, tx *sqlx.Tx, idem string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[idem]
	return ok, nil
}

func (f *fakeLedger) Insert(ctx context.Context, tx *sqlx.Tx, accountID int64, op string, amount int64, idem string, ref *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[idem] = amount
	return nil
}

var _ repository.LedgerRepository = (*fakeLedger)(nil)

// fakeSender answers provider sends per recipient; unlisted recipients succeed.
type fakeSender struct {
	mu       sync.Mutex
	failures map[string]error
	calls    []string
}

func (f *fakeSender) Send(ctx context.Context, creds mspace.Credentials, recipient, message, senderID string) (*mspace.SendResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, recipient)
	err := f.failures[recipient]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return &mspace.SendResult{
		MessageID: "msg-" + recipient,
		Status:    "successful",
		Raw:       json.RawMessage(`{"status":"successful"}`),
	}, nil
}

var _ SenderClient = (*fakeSender)(nil)
