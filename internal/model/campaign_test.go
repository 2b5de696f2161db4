package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignStatusTransitions(t *testing.T) {
	allowed := []struct{ from, to CampaignStatus }{
		{CampaignDraft, CampaignScheduled},
		{CampaignDraft, CampaignSending},
		{CampaignScheduled, CampaignSending},
		{CampaignSending, CampaignSent},
		{CampaignSending, CampaignFailed},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}

	forbidden := []struct{ from, to CampaignStatus }{
		{CampaignSent, CampaignSending},
		{CampaignSent, CampaignDraft},
		{CampaignFailed, CampaignSending},
		{CampaignSending, CampaignDraft},
		{CampaignScheduled, CampaignDraft},
		{CampaignScheduled, CampaignSent},
	}
	for _, tc := range forbidden {
		assert.False(t, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestRecipientListRoundTrip(t *testing.T) {
	list := RecipientList{"+254712345678", "+254700000001"}

	v, err := list.Value()
	require.NoError(t, err)

	var back RecipientList
	require.NoError(t, back.Scan(v))
	assert.Equal(t, list, back)
}

func TestRecipientListNil(t *testing.T) {
	var list RecipientList
	v, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), v)

	var back RecipientList
	require.NoError(t, back.Scan(nil))
	assert.Nil(t, back)
}

func TestParseScheduleMode(t *testing.T) {
	for in, want := range map[string]ScheduleMode{
		"":          ScheduleImmediate,
		"immediate": ScheduleImmediate,
		"Scheduled": ScheduleScheduled,
		"RECURRING": ScheduleRecurring,
		"triggered": ScheduleTriggered,
	} {
		got, ok := ParseScheduleMode(in)
		assert.True(t, ok, "input %q", in)
		assert.Equal(t, want, got)
	}

	_, ok := ParseScheduleMode("someday")
	assert.False(t, ok)
}
