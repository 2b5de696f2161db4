package middleware

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"

	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
)

const ctxAccount = "account"

// AccountFromCtx extracts the authenticated account set by BearerAuthMiddleware.
func AccountFromCtx(c echo.Context) (*model.Account, bool) {
	a, ok := c.Get(ctxAccount).(*model.Account)
	return a, ok
}

// BearerAuthMiddleware authenticates requests using an Authorization: Bearer
// token mapped to an account. Suspended accounts are rejected.
func BearerAuthMiddleware(accounts repository.AccountsRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := strings.TrimSpace(c.Request().Header.Get("Authorization"))
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "authorization required"})
			}

			acct, err := accounts.GetByToken(c.Request().Context(), strings.TrimSpace(token))
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if acct == nil || !acct.Active() {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid authorization"})
			}

			c.Set(ctxAccount, acct)
			return next(c)
		}
	}
}
