package model

import (
	"encoding/json"
	"strings"
	"time"
)

type ScheduleMode string

const (
	ScheduleImmediate ScheduleMode = "immediate"
	ScheduleScheduled ScheduleMode = "scheduled"
	ScheduleRecurring ScheduleMode = "recurring"
	ScheduleTriggered ScheduleMode = "triggered"
)

func (m ScheduleMode) String() string { return string(m) }

// ParseScheduleMode normalizes input; empty => immediate.
// Returns (value, true) if valid; otherwise (immediate, false).
func ParseScheduleMode(s string) (ScheduleMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "immediate":
		return ScheduleImmediate, true
	case "scheduled":
		return ScheduleScheduled, true
	case "recurring":
		return ScheduleRecurring, true
	case "triggered":
		return ScheduleTriggered, true
	default:
		return ScheduleImmediate, false
	}
}

// ScheduleConfig is the tagged scheduling descriptor attached to a send request.
type ScheduleConfig struct {
	Type      ScheduleMode    `json:"type"`
	Datetime  *time.Time      `json:"datetime,omitempty"`
	Frequency string          `json:"frequency,omitempty"` // recurring cadence
	Trigger   json.RawMessage `json:"trigger,omitempty"`   // event descriptor
}

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobProcessed  JobStatus = "processed"
	JobFailed     JobStatus = "failed"
)

func (s JobStatus) String() string { return string(s) }

// ScheduledJob defers a campaign send until run_at.
type ScheduledJob struct {
	ID         int64     `db:"id"`
	CampaignID string    `db:"campaign_id"`
	RunAt      time.Time `db:"run_at"`
	Status     JobStatus `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// AutomationRule describes a recurring cadence or triggering event for a campaign.
type AutomationRule struct {
	ID            int64           `db:"id"`
	CampaignID    string          `db:"campaign_id"`
	TriggerType   string          `db:"trigger_type"` // time_based|event_based
	TriggerConfig json.RawMessage `db:"trigger_config"`
	Active        bool            `db:"active"`
	CreatedAt     time.Time       `db:"created_at"`
}
