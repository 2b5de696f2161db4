package model

import "time"

type AccountRole string

const (
	RoleReseller AccountRole = "reseller"
	RoleClient   AccountRole = "client"
)

func (r AccountRole) String() string { return string(r) }

func (r AccountRole) Valid() bool {
	return r == RoleReseller || r == RoleClient
}

// Account is a credential holder: the reseller itself or a downstream client.
// Balance is held in integer credit units; accounts are deactivated, never deleted.
type Account struct {
	ID        int64       `db:"id"`
	Username  string      `db:"username"`
	Token     string      `db:"token"` // bearer token for the v1 API
	Role      AccountRole `db:"role"`
	Balance   int64       `db:"balance"`
	Status    string      `db:"status"` // active|suspended
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (a *Account) Active() bool { return a != nil && a.Status == "active" }
