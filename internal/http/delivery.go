package http

import (
	"context"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/http/middleware"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
	"github.com/mobiwave/mobiwave-gateway/internal/repository"
)

type deliveryReq struct {
	MessageID  string   `json:"messageId"`
	MessageIDs []string `json:"messageIds"`
}

type deliveryEntry struct {
	MessageID string                  `json:"messageId"`
	Reports   []mspace.DeliveryReport `json:"reports"`
	Error     string                  `json:"error,omitempty"`
}

// deliveryHandler fetches provider delivery reports for one or many message
// ids and syncs delivered statuses back onto the stored message records.
func deliveryHandler(client *mspace.Client, resolver *credential.Resolver, messages repository.MessagesRepository, maxRetries int) echo.HandlerFunc {
	return func(c echo.Context) error {
		acct, ok := middleware.AccountFromCtx(c)
		if !ok {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}

		var req deliveryReq
		if err := c.Bind(&req); err != nil {
			return respondErr(c, http.StatusBadRequest, "bad request")
		}

		ids := req.MessageIDs
		if id := strings.TrimSpace(req.MessageID); id != "" {
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			return respondErr(c, http.StatusBadRequest, "messageId or messageIds required")
		}

		creds, err := resolver.Resolve(c.Request().Context(), acct.ID)
		if err != nil {
			return respondServiceErr(c, err)
		}

		entries := make([]deliveryEntry, 0, len(ids))
		for _, id := range ids {
			entry := deliveryEntry{MessageID: id}

			var reports []mspace.DeliveryReport
			err := mspace.Do(c.Request().Context(), maxRetries, func(ctx context.Context) error {
				var callErr error
				reports, callErr = client.FetchDeliveryReport(ctx, creds, id)
				return callErr
			})
			if err != nil {
				entry.Error = err.Error()
				entries = append(entries, entry)
				continue
			}

			entry.Reports = reports
			for _, rep := range reports {
				if !rep.Delivered() {
					continue
				}
				if _, err := messages.UpdateDeliveryStatus(c.Request().Context(), id, model.DeliveryDelivered); err != nil {
					log.Errorf("delivery status sync failed for %s: %v", id, err)
				}
			}
			entries = append(entries, entry)
		}

		return respondOK(c, http.StatusOK, map[string]any{
			"count":   len(entries),
			"reports": entries,
		})
	}
}
