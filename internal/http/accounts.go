package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/http/middleware"
	"github.com/mobiwave/mobiwave-gateway/internal/ledger"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
)

type accountsReq struct {
	Operation  string `json:"operation"`
	ClientName string `json:"clientname"`
	SubAccName string `json:"subaccname"`
	NoOfSMS    int    `json:"noOfSms"`
}

// accountsHandler dispatches the account-management operations against the
// provider. Reseller-client top-ups go through the distributor so the local
// credit ledger stays in step with the provider-side move; the rest are
// passthrough queries.
func accountsHandler(client *mspace.Client, resolver *credential.Resolver, dist *ledger.Distributor, maxRetries int) echo.HandlerFunc {
	return func(c echo.Context) error {
		acct, ok := middleware.AccountFromCtx(c)
		if !ok {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}

		var req accountsReq
		if err := c.Bind(&req); err != nil {
			return respondErr(c, http.StatusBadRequest, "bad request")
		}

		op, ok := mspace.ParseOperation(req.Operation)
		if !ok {
			return respondErr(c, http.StatusBadRequest, "unknown operation")
		}

		name := strings.TrimSpace(req.ClientName)
		if name == "" {
			name = strings.TrimSpace(req.SubAccName)
		}

		if op == mspace.OpTopUpResellerClient {
			raw, err := dist.Distribute(c.Request().Context(), acct.ID, name, int64(req.NoOfSMS))
			if err != nil {
				if statusForError(err) == http.StatusInternalServerError {
					log.Errorf("reseller client top-up failed: %v", err)
				}
				return respondServiceErr(c, err)
			}
			return respondOK(c, http.StatusOK, raw)
		}

		creds, err := resolver.Resolve(c.Request().Context(), acct.ID)
		if err != nil {
			return respondServiceErr(c, err)
		}

		var raw json.RawMessage
		err = mspace.Do(c.Request().Context(), maxRetries, func(ctx context.Context) error {
			var callErr error
			switch op {
			case mspace.OpSubAccounts:
				raw, callErr = client.SubAccounts(ctx, creds)
			case mspace.OpResellerClients:
				raw, callErr = client.ResellerClients(ctx, creds)
			case mspace.OpTopUpSubAccount:
				raw, callErr = client.TopUpSubAccount(ctx, creds, name, req.NoOfSMS)
			default:
				callErr = mspace.ErrInvalidParams
			}
			return callErr
		})
		if err != nil {
			if statusForError(err) == http.StatusInternalServerError {
				log.Errorf("account operation %s failed: %v", op, err)
			}
			return respondServiceErr(c, err)
		}

		return respondOK(c, http.StatusOK, raw)
	}
}
