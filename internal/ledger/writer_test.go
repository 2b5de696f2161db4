package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
)

func newWriterFixture(t *testing.T, insertErr error, balance int64) (*Writer, *fakeMessages, *fakeCampaigns, *fakeAccounts, *fakeLedger, sqlmock.Sqlmock) {
	t.Helper()
	dbx, mock := newMockDB(t)

	msgs := &fakeMessages{insertErr: insertErr}
	campaigns := newFakeCampaigns()
	accounts := newFakeAccounts(&model.Account{ID: 1, Balance: balance, Status: "active"})
	ledgerRepo := &fakeLedger{}

	w := NewWriter(dbx, msgs, campaigns, accounts, ledgerRepo, 5)
	return w, msgs, campaigns, accounts, ledgerRepo, mock
}

func TestRecordSuccessChargesCost(t *testing.T) {
	w, msgs, _, _, _, _ := newWriterFixture(t, nil, 100)

	campaignID := "01CAMPAIGN"
	cost := w.Record(context.Background(), SendOutcome{
		Recipient: "+254700000001",
		Success:   true,
		MessageID: "m-1",
	}, 1, &campaignID, "TEST", "hello", json.RawMessage(`{"status":"success"}`))

	assert.Equal(t, int64(5), cost)

	require.Len(t, msgs.records, 1)
	rec := msgs.records[0]
	assert.Equal(t, model.StatusSent, rec.Status)
	assert.Equal(t, model.DeliveryPending, rec.DeliveryStatus)
	assert.Equal(t, "254700000001", rec.Recipient)
	assert.Equal(t, int64(5), rec.Cost)
	require.NotNil(t, rec.ProviderMessageID)
	assert.Equal(t, "m-1", *rec.ProviderMessageID)
	assert.NotNil(t, rec.SentAt)
	assert.Nil(t, rec.FailedAt)
}

func TestRecordFailureCostsNothing(t *testing.T) {
	w, msgs, _, _, _, _ := newWriterFixture(t, nil, 100)

	cost := w.Record(context.Background(), SendOutcome{
		Recipient: "+254700000002",
		Success:   false,
		Error:     "mspace: INVALID_RECIPIENT: invalid phone number format",
	}, 1, nil, "TEST", "hello", nil)

	assert.Equal(t, int64(0), cost)

	require.Len(t, msgs.records, 1)
	rec := msgs.records[0]
	assert.Equal(t, model.StatusFailed, rec.Status)
	assert.Equal(t, int64(0), rec.Cost)
	require.NotNil(t, rec.ErrorMessage)
	assert.Contains(t, *rec.ErrorMessage, "INVALID_RECIPIENT")
	assert.NotNil(t, rec.FailedAt)
	assert.Nil(t, rec.SentAt)
}

func TestRecordFallsBackToCampaignMetadata(t *testing.T) {
	w, _, campaigns, _, _, _ := newWriterFixture(t, errors.New("table gone"), 100)

	campaignID := "01CAMPAIGN"
	cost := w.Record(context.Background(), SendOutcome{
		Recipient: "+254700000001",
		Success:   true,
		MessageID: "m-1",
	}, 1, &campaignID, "TEST", "hello", nil)

	// the charge still counts even when the record lands in the fallback blob
	assert.Equal(t, int64(5), cost)
	require.Len(t, campaigns.metaAppends[campaignID], 1)

	var rec model.MessageRecord
	require.NoError(t, json.Unmarshal(campaigns.metaAppends[campaignID][0], &rec))
	assert.Equal(t, "254700000001", rec.Recipient)
}

func TestChargeDebitsOnce(t *testing.T) {
	w, _, _, accounts, ledgerRepo, mock := newWriterFixture(t, nil, 100)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.NoError(t, w.Charge(context.Background(), 1, 30, "camp-1"))
	// same ref replays as a no-op
	require.NoError(t, w.Charge(context.Background(), 1, 30, "camp-1"))

	a, _ := accounts.GetByID(context.Background(), 1)
	assert.Equal(t, int64(70), a.Balance)
	require.Len(t, ledgerRepo.entries, 1)
	assert.Equal(t, repository.LedgerOpCharge, ledgerRepo.entries[0].op)
}

func TestChargeZeroAmountIsNoop(t *testing.T) {
	w, _, _, accounts, _, _ := newWriterFixture(t, nil, 100)

	require.NoError(t, w.Charge(context.Background(), 1, 0, "camp-1"))

	a, _ := accounts.GetByID(context.Background(), 1)
	assert.Equal(t, int64(100), a.Balance)
}

func TestChargeClampsWhenBalanceShort(t *testing.T) {
	w, _, _, _, ledgerRepo, mock := newWriterFixture(t, nil, 10)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE accounts SET balance = 0").
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, w.Charge(context.Background(), 1, 50, "camp-1"))

	assert.Len(t, ledgerRepo.entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
