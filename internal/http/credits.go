package http

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/mobiwave/mobiwave-gateway/internal/http/middleware"
	"github.com/mobiwave/mobiwave-gateway/internal/ledger"
)

type distributeReq struct {
	ClientName string `json:"clientname"`
	Amount     int64  `json:"amount"`
}

func distributeHandler(dist *ledger.Distributor) echo.HandlerFunc {
	return func(c echo.Context) error {
		acct, ok := middleware.AccountFromCtx(c)
		if !ok {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}

		var req distributeReq
		if err := c.Bind(&req); err != nil {
			return respondErr(c, http.StatusBadRequest, "bad request")
		}

		raw, err := dist.Distribute(c.Request().Context(), acct.ID, strings.TrimSpace(req.ClientName), req.Amount)
		if err != nil {
			if statusForError(err) == http.StatusInternalServerError {
				log.Errorf("credit distribution failed: %v", err)
			}
			return respondServiceErr(c, err)
		}

		return respondOK(c, http.StatusOK, map[string]any{
			"clientname": req.ClientName,
			"amount":     req.Amount,
			"provider":   raw,
		})
	}
}

type purchaseReq struct {
	Amount    int64  `json:"amount"`
	RequestID string `json:"request_id"`
}

func purchaseHandler(dist *ledger.Distributor) echo.HandlerFunc {
	return func(c echo.Context) error {
		acct, ok := middleware.AccountFromCtx(c)
		if !ok {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}

		var req purchaseReq
		if err := c.Bind(&req); err != nil {
			return respondErr(c, http.StatusBadRequest, "bad request")
		}

		replayed, err := dist.Purchase(c.Request().Context(), acct.ID, req.Amount, strings.TrimSpace(req.RequestID))
		if err != nil {
			if statusForError(err) == http.StatusInternalServerError {
				log.Errorf("credit purchase failed: %v", err)
			}
			return respondServiceErr(c, err)
		}

		return respondOK(c, http.StatusOK, map[string]any{
			"amount":   req.Amount,
			"replayed": replayed,
		})
	}
}
