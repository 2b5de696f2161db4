package model

import "time"

// Credential binds a provider API key, username and default sender id to one
// account. At most one active row per (account, provider) pair.
type Credential struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	Provider  string    `db:"provider"` // "mspace"
	APIKey    string    `db:"api_key"`
	Username  string    `db:"username"`
	SenderID  string    `db:"sender_id"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (c *Credential) Complete() bool {
	return c != nil && c.APIKey != "" && c.Username != ""
}
