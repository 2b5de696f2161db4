package ledger

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
)

type debit struct {
	accountID int64
	amount    int64
}

type fakeAccounts struct {
	mu       sync.Mutex
	accounts map[int64]*model.Account
	debits   []debit
	credits  []debit
}

func newFakeAccounts(accounts ...*model.Account) *fakeAccounts {
	m := make(map[int64]*model.Account, len(accounts))
	for _, a := range accounts {
		m[a.ID] = a
	}
	return &fakeAccounts{accounts: m}
}

func (f *fakeAccounts) GetByToken(ctx context.Context, token string) (*model.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Token == token {
			cp := *a
			return &cp, nil
		}
	}
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
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeAccounts) Credit(ctx context.Context, tx *sqlx.Tx, id int64, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.Balance += amount
	}
	f.credits = append(f.credits, debit{accountID: id, amount: amount})
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
	f.debits = append(f.debits, debit{accountID: id, amount: amount})
	return true, nil
}

func (f *fakeAccounts) Deactivate(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.accounts[id]; ok {
		a.Status = "suspended"
	}
	return nil
}

var _ repository.AccountsRepository = (*fakeAccounts)(nil)

type ledgerEntry struct {
	accountID int64
	op        string
	amount    int64
	idem      string
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
}

func (f *fakeLedger) ExistsByIdem(ctx context.Context, tx *sqlx.Tx, idem string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.idem == idem {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) Insert(ctx context.Context, tx *sqlx.Tx, accountID int64, op string, amount int64, idem string, ref *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		if e.idem == idem {
			return nil
		}
	}
	f.entries = append(f.entries, ledgerEntry{accountID: accountID, op: op, amount: amount, idem: idem})
	return nil
}

var _ repository.LedgerRepository = (*fakeLedger)(nil)

type fakeMessages struct {
	mu        sync.Mutex
	insertErr error
	records   []model.MessageRecord
}

func (f *fakeMessages) Insert(ctx context.Context, tx *sqlx.Tx, m model.MessageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.records = append(f.records, m)
	return nil
}

func (f *fakeMessages) UpdateDeliveryStatus(ctx context.Context, providerMessageID string, status model.DeliveryStatus) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.records {
		if f.records[i].ProviderMessageID != nil && *f.records[i].ProviderMessageID == providerMessageID {
			f.records[i].DeliveryStatus = status
			n++
		}
	}
	return n, nil
}

var _ repository.MessagesRepository = (*fakeMessages)(nil)

type fakeCampaigns struct {
	mu          sync.Mutex
	inserted    []model.Campaign
	metaAppends map[string][]json.RawMessage
	finished    map[string]model.CampaignStatus
}

func newFakeCampaigns() *fakeCampaigns {
	return &fakeCampaigns{
		metaAppends: make(map[string][]json.RawMessage),
		finished:    make(map[string]model.CampaignStatus),
	}
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
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metaAppends[id] = append(f.metaAppends[id], record)
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
