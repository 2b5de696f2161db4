package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/http/middleware"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
)

const balanceCacheTTL = 30 * time.Second

// balanceHandler proxies the provider balance query, with a short Redis cache
// keyed by the resolved provider username so repeated dashboard polls do not
// hammer the provider.
func balanceHandler(client *mspace.Client, resolver *credential.Resolver, rds *redis.Client, maxRetries int) echo.HandlerFunc {
	return func(c echo.Context) error {
		acct, ok := middleware.AccountFromCtx(c)
		if !ok {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}

		creds, err := resolver.Resolve(c.Request().Context(), acct.ID)
		if err != nil {
			return respondServiceErr(c, err)
		}

		cacheKey := "balance:" + creds.Username
		if rds != nil {
			if v, err := rds.Get(c.Request().Context(), cacheKey).Result(); err == nil {
				if n, err := strconv.ParseInt(v, 10, 64); err == nil {
					return respondOK(c, http.StatusOK, mspace.BalanceResult{Balance: n, Status: "success"})
				}
			}
		}

		var res mspace.BalanceResult
		err = mspace.Do(c.Request().Context(), maxRetries, func(ctx context.Context) error {
			var callErr error
			res, callErr = client.Balance(ctx, creds)
			return callErr
		})
		if err != nil {
			return respondServiceErr(c, err)
		}

		if rds != nil {
			_ = rds.Set(c.Request().Context(), cacheKey, strconv.FormatInt(res.Balance, 10), balanceCacheTTL).Err()
		}

		return respondOK(c, http.StatusOK, res)
	}
}
