package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/mobiwave/mobiwave-gateway/internal/config"
	"github.com/mobiwave/mobiwave-gateway/internal/db"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQL(cfg.MySQL)
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo accounts...")

		if err := seedAccounts(sqlDB); err != nil {
			return err
		}
		if err := seedCredentials(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedAccounts inserts deterministic demo accounts (idempotent by token).
func seedAccounts(dbx *sqlx.DB) error {
	accounts := []model.Account{
		{
			Username: "acme-reseller",
			Token:    "11111111111111111111111111111111",
			Role:     "reseller",
			Balance:  10000,
			Status:   "active",
		},
		{
			Username: "foobar-clinic",
			Token:    "22222222222222222222222222222222",
			Role:     "client",
			Balance:  500,
			Status:   "active",
		},
		{
			Username: "beta-shop",
			Token:    "33333333333333333333333333333333",
			Role:     "client",
			Balance:  100,
			Status:   "active",
		},
		{
			Username: "suspended-inc",
			Token:    "44444444444444444444444444444444",
			Role:     "client",
			Balance:  0,
			Status:   "suspended",
		},
	}

	const q = `
INSERT INTO accounts
    (username, token, role, balance, status, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    username   = VALUES(username),
    role       = VALUES(role),
    status     = VALUES(status),
    updated_at = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, a := range accounts {
		if _, err := tx.Exec(q, a.Username, a.Token, a.Role, a.Balance, a.Status, now, now); err != nil {
			return fmt.Errorf("insert account %q: %w", a.Username, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accounts: %w", err)
	}
	return nil
}

// seedCredentials gives the reseller account stored provider credentials so
// per-account resolution is exercisable without env config.
func seedCredentials(dbx *sqlx.DB) error {
	const q = `
INSERT INTO api_credentials (account_id, provider, api_key, username, sender_id, active, created_at, updated_at)
SELECT a.id, 'mspace', 'demo-api-key', a.username, 'MOBIWAVE', 1, NOW(), NOW()
FROM accounts a
LEFT JOIN api_credentials c ON c.account_id = a.id AND c.provider = 'mspace'
WHERE a.role = 'reseller' AND c.account_id IS NULL
`
	if _, err := dbx.Exec(q); err != nil {
		return fmt.Errorf("ensure credentials: %w", err)
	}
	return nil
}
