package model

// DispatchEnvelope is the payload published to Kafka (via the outbox relay)
// when a scheduled campaign becomes due.
type DispatchEnvelope struct {
	CampaignID string `json:"campaign_id"`
	AccountID  int64  `json:"account_id"`
	JobID      int64  `json:"job_id"`
}
