package ledger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/logger"
	"github.com/mobiwave/mobiwave-gateway/internal/metrics"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
	"github.com/mobiwave/mobiwave-gateway/internal/util"
)

var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrAccountNotFound     = errors.New("account not found")
)

// TopUpClient is the slice of the provider client the distributor needs.
type TopUpClient interface {
	TopUpResellerClient(ctx context.Context, creds mspace.Credentials, clientName string, noOfSms int) (json.RawMessage, error)
}

// Distributor moves credit allocation between the reseller's own balance and
// downstream client balances. The provider top-up happens first; the local
// debit is applied only on provider success, as an atomic conditional update.
type Distributor struct {
	db       *sqlx.DB
	accounts repository.AccountsRepository
	ledger   repository.LedgerRepository
	client   TopUpClient
	resolver *credential.Resolver

	maxRetries int
}

func NewDistributor(
	db *sqlx.DB,
	accounts repository.AccountsRepository,
	ledgerRepo repository.LedgerRepository,
	client TopUpClient,
	resolver *credential.Resolver,
	maxRetries int,
) *Distributor {
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &Distributor{
		db:         db,
		accounts:   accounts,
		ledger:     ledgerRepo,
		client:     client,
		resolver:   resolver,
		maxRetries: maxRetries,
	}
}

// Distribute moves amount credits from the account onto the named downstream
// client via the provider top-up. No mutation happens unless the provider
// call succeeds.
func (d *Distributor) Distribute(ctx context.Context, fromAccountID int64, toClientName string, amount int64) (json.RawMessage, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if toClientName == "" {
		return nil, mspace.ErrInvalidParams
	}

	acct, err := d.accounts.GetByID(ctx, fromAccountID)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, ErrAccountNotFound
	}
	if acct.Balance < amount {
		return nil, ErrInsufficientBalance
	}

	creds, err := d.resolver.Resolve(ctx, fromAccountID)
	if err != nil {
		return nil, err
	}

	var raw json.RawMessage
	err = mspace.Do(ctx, d.maxRetries, func(ctx context.Context) error {
		var callErr error
		raw, callErr = d.client.TopUpResellerClient(ctx, creds, toClientName, int(amount))
		return callErr
	})
	if err != nil {
		return nil, err
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return raw, err
	}
	defer func() { _ = tx.Rollback() }()

	ok, err := d.accounts.DebitIf(ctx, tx, fromAccountID, amount)
	if err != nil {
		return raw, err
	}
	if !ok {
		// A concurrent debit drained the balance after the precondition check.
		// The provider side is already topped up; surface the conflict.
		logger.Log.Error("distribute debit lost race after provider top-up",
			zap.Int64("account_id", fromAccountID), zap.Int64("amount", amount))
		return raw, ErrInsufficientBalance
	}

	idem := "dist-" + util.NewID()
	if err := d.ledger.Insert(ctx, tx, fromAccountID, repository.LedgerOpDistribute, amount, idem, &toClientName); err != nil {
		return raw, err
	}

	if err := tx.Commit(); err != nil {
		return raw, err
	}

	metrics.CreditsMovedTotal.WithLabelValues(repository.LedgerOpDistribute).Add(float64(amount))

	return raw, nil
}

// Purchase increases the reseller's own balance, modelling a credit purchase
// from the upstream provider. Idempotent by request id.
func (d *Distributor) Purchase(ctx context.Context, accountID, amount int64, requestID string) (bool, error) {
	if amount <= 0 {
		return false, ErrInvalidAmount
	}
	if requestID == "" {
		requestID = util.NewID()
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	idem := "purchase-" + requestID
	exists, err := d.ledger.ExistsByIdem(ctx, tx, idem)
	if err != nil {
		return false, err
	}
	if exists {
		return true, tx.Commit()
	}

	if err := d.ledger.Insert(ctx, tx, accountID, repository.LedgerOpPurchase, amount, idem, nil); err != nil {
		return false, err
	}
	if err := d.accounts.Credit(ctx, tx, accountID, amount); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, err
	}

	metrics.CreditsMovedTotal.WithLabelValues(repository.LedgerOpPurchase).Add(float64(amount))

	return false, nil
}
