package model

import (
	"encoding/json"
	"time"
)

type MessageStatus string

const (
	StatusSent   MessageStatus = "sent"
	StatusFailed MessageStatus = "failed"
)

func (s MessageStatus) String() string { return string(s) }

func (s MessageStatus) Valid() bool {
	return s == StatusSent || s == StatusFailed
}

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "pending"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryFailed    DeliveryStatus = "failed"
)

func (s DeliveryStatus) String() string { return string(s) }

// MessageRecord is one outbound attempt to one recipient. Immutable after
// insert except for the delivery status fetched asynchronously.
type MessageRecord struct {
	ID                string          `db:"id"`
	AccountID         int64           `db:"account_id"`
	CampaignID        *string         `db:"campaign_id"`
	Recipient         string          `db:"recipient"`
	Content           string          `db:"content"`
	Sender            string          `db:"sender"`
	Provider          string          `db:"provider"`
	ProviderMessageID *string         `db:"provider_message_id"`
	Status            MessageStatus   `db:"status"`
	DeliveryStatus    DeliveryStatus  `db:"delivery_status"`
	Cost              int64           `db:"cost"`
	ErrorMessage      *string         `db:"error_message"`
	Metadata          json.RawMessage `db:"metadata"`
	SentAt            *time.Time      `db:"sent_at"`
	FailedAt          *time.Time      `db:"failed_at"`
	CreatedAt         time.Time       `db:"created_at"`
}
