package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/mobiwave/mobiwave-gateway/internal/campaign"
	"github.com/mobiwave/mobiwave-gateway/internal/http/middleware"
	"github.com/mobiwave/mobiwave-gateway/internal/model"
)

type sendReq struct {
	Name       string       `json:"name"`
	Recipients []string     `json:"recipients"`
	Message    string       `json:"message"`
	SenderID   string       `json:"senderId"`
	Schedule   *scheduleReq `json:"schedule"`
}

type scheduleReq struct {
	Type      string          `json:"type"`
	Datetime  *time.Time      `json:"datetime"`
	Frequency string          `json:"frequency"`
	Trigger   json.RawMessage `json:"trigger"`
}

func sendSMSHandler(orch *campaign.Orchestrator) echo.HandlerFunc {
	return func(c echo.Context) error {
		acct, ok := middleware.AccountFromCtx(c)
		if !ok {
			return respondErr(c, http.StatusUnauthorized, "unauthorized")
		}

		var req sendReq
		if err := c.Bind(&req); err != nil {
			return respondErr(c, http.StatusBadRequest, "bad request")
		}

		req.Message = strings.TrimSpace(req.Message)

		in := campaign.SendInput{
			Name:       strings.TrimSpace(req.Name),
			Recipients: req.Recipients,
			Body:       req.Message,
			SenderID:   strings.TrimSpace(req.SenderID),
		}
		if req.Schedule != nil {
			mode, ok := model.ParseScheduleMode(req.Schedule.Type)
			if !ok {
				return respondErr(c, http.StatusBadRequest, "invalid schedule type")
			}
			in.Schedule = &model.ScheduleConfig{
				Type:      mode,
				Datetime:  req.Schedule.Datetime,
				Frequency: req.Schedule.Frequency,
				Trigger:   req.Schedule.Trigger,
			}
		}

		out, err := orch.Send(c.Request().Context(), acct.ID, in)
		if err != nil {
			if errors.Is(err, campaign.ErrInsufficientCredits) && out != nil {
				return c.JSON(http.StatusPaymentRequired, map[string]any{
					"error":       "insufficient credits",
					"campaign_id": out.CampaignID,
					"timestamp":   time.Now().UTC().Format(time.RFC3339),
				})
			}
			if statusForError(err) == http.StatusInternalServerError {
				log.Errorf("campaign send failed: %v", err)
			}
			return respondServiceErr(c, err)
		}

		status := http.StatusOK
		if out.Scheduled || out.Automated {
			status = http.StatusAccepted
		}
		return respondOK(c, status, out)
	}
}
