package http

import (
	"errors"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v4"

	"github.com/mobiwave/mobiwave-gateway/internal/campaign"
	"github.com/mobiwave/mobiwave-gateway/internal/credential"
	"github.com/mobiwave/mobiwave-gateway/internal/ledger"
	"github.com/mobiwave/mobiwave-gateway/internal/mspace"
)

// respondOK wraps a successful result in the standard envelope.
func respondOK(c echo.Context, status int, result any) error {
	return c.JSON(status, map[string]any{
		"success": true,
		"result":  result,
	})
}

// respondErr emits the standard error envelope.
func respondErr(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]any{
		"error":     msg,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusForError maps service errors onto HTTP statuses. Classified provider
// errors carry their own status.
func statusForError(err error) int {
	var pe *mspace.Error
	if errors.As(err, &pe) {
		return pe.HTTPStatus
	}
	switch {
	case errors.Is(err, mspace.ErrInvalidParams),
		errors.Is(err, campaign.ErrNoRecipients),
		errors.Is(err, campaign.ErrEmptyBody),
		errors.Is(err, campaign.ErrBadSchedule),
		errors.Is(err, ledger.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, credential.ErrCredentialsMissing):
		return http.StatusUnauthorized
	case errors.Is(err, campaign.ErrInsufficientCredits),
		errors.Is(err, ledger.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrAccountNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondServiceErr(c echo.Context, err error) error {
	return respondErr(c, statusForError(err), err.Error())
}
