package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignSent      CampaignStatus = "sent"
	CampaignFailed    CampaignStatus = "failed"
)

func (s CampaignStatus) String() string { return string(s) }

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignScheduled, CampaignSending, CampaignSent, CampaignFailed:
		return true
	}
	return false
}

// CanTransition reports whether moving to next keeps the lifecycle monotonic:
// draft -> sending -> sent|failed, or draft -> scheduled -> sending -> sent|failed.
func (s CampaignStatus) CanTransition(next CampaignStatus) bool {
	switch s {
	case CampaignDraft:
		return next == CampaignScheduled || next == CampaignSending
	case CampaignScheduled:
		return next == CampaignSending
	case CampaignSending:
		return next == CampaignSent || next == CampaignFailed
	}
	return false
}

// RecipientList is stored as a JSON column on campaigns.
type RecipientList []string

func (r RecipientList) Value() (driver.Value, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r)
}

func (r *RecipientList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = nil
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	}
	return fmt.Errorf("recipient list: unsupported scan type %T", src)
}

// Campaign is a named batch of outbound messages.
type Campaign struct {
	ID             string          `db:"id"`
	AccountID      int64           `db:"account_id"`
	Name           string          `db:"name"`
	Body           string          `db:"body"`
	SenderID       string          `db:"sender_id"`
	Recipients     RecipientList   `db:"recipients"`
	RecipientCount int             `db:"recipient_count"`
	Status         CampaignStatus  `db:"status"`
	ScheduledAt    *time.Time      `db:"scheduled_at"`
	Delivered      int             `db:"delivered"`
	Failed         int             `db:"failed"`
	Metadata       json.RawMessage `db:"metadata"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}
