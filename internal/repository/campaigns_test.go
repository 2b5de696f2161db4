package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

func TestCampaignStatusCASLostRace(t *testing.T) {
	dbx, mock := newMockDB(t)
	mock.ExpectExec(`UPDATE campaigns SET status = \?, updated_at = NOW\(\)\s+WHERE id = \? AND status = \?`).
		WithArgs("sending", "01ABC", "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCampaignsRepository(dbx)
	ok, err := repo.UpdateStatusCAS(context.Background(), nil, "01ABC", model.CampaignScheduled, model.CampaignSending)

	require.NoError(t, err)
	assert.False(t, ok, "row not in the expected state means the CAS lost")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignStatusCASWon(t *testing.T) {
	dbx, mock := newMockDB(t)
	mock.ExpectExec("UPDATE campaigns SET status").
		WithArgs("sending", "01ABC", "scheduled").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewCampaignsRepository(dbx)
	ok, err := repo.UpdateStatusCAS(context.Background(), nil, "01ABC", model.CampaignScheduled, model.CampaignSending)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCampaignDeleteIfPreDispatchScopesToAccount(t *testing.T) {
	dbx, mock := newMockDB(t)
	mock.ExpectExec(`DELETE FROM campaigns\s+WHERE id = \? AND account_id = \? AND status IN \('draft', 'scheduled'\)`).
		WithArgs("01ABC", int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCampaignsRepository(dbx)
	ok, err := repo.DeleteIfPreDispatch(context.Background(), "01ABC", 9)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
