package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/mobiwave/mobiwave-gateway/internal/campaign"
	"github.com/mobiwave/mobiwave-gateway/internal/http/middleware"
)

// cancelCampaignHandler removes a campaign that has not been dispatched yet.
func cancelCampaignHandler(orch *campaign.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		acct, ok := middleware.AccountFromCtx(c)
		if !ok {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}

		id := c.Param("id")
		if id == "" {
			return respondErr(c, http.StatusBadRequest, "campaign id required")
		}

		cancelled, err := orch.Cancel(c.Request().Context(), acct.ID, id)
		if err != nil {
			log.Errorf("campaign cancel failed: %v", err)
			return respondErr(c, http.StatusInternalServerError, "cancel failed")
		}
		if !cancelled {
			return respondErr(c, http.StatusConflict, "campaign already dispatched or not found")
		}

		return respondOK(c, http.StatusOK, map[string]any{"campaign_id": id, "cancelled": true})
	}
}
