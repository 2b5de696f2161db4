package mspace

import (
	"fmt"
	"strings"
	"time"
)

// Classified error codes for provider failures.
const (
	CodeNetworkError        = "NETWORK_ERROR"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeRateLimited         = "RATE_LIMITED"
	CodeServerError         = "SERVER_ERROR"
	CodeHTTPError           = "HTTP_ERROR"
	CodeInvalidRecipient    = "INVALID_RECIPIENT"
	CodeTimeout             = "TIMEOUT"
	CodeUnknown             = "UNKNOWN_ERROR"
)

// Error is a provider failure after classification. HTTPStatus is the status
// the gateway mirrors back to its own caller.
type Error struct {
	Code       string
	Message    string
	Retryable  bool
	HTTPStatus int
}

func (e *Error) Error() string {
	return fmt.Sprintf("mspace: %s: %s", e.Code, e.Message)
}

type rawKind int

const (
	rawNetwork rawKind = iota
	rawHTTP
	rawMessage
)

// RawError is the closed union of failure shapes constructed once at the
// transport boundary: a network-level error, an HTTP status with body, or a
// provider-reported message string.
type RawError struct {
	kind   rawKind
	err    error
	status int
	text   string
}

func NetworkFailure(err error) RawError {
	return RawError{kind: rawNetwork, err: err}
}

func HTTPFailure(status int, body string) RawError {
	return RawError{kind: rawHTTP, status: status, text: body}
}

func ProviderMessage(text string) RawError {
	return RawError{kind: rawMessage, text: text}
}

// Classify maps a raw failure to a typed error with a retry hint. It is a
// pure function: the same input always yields the same classification.
func Classify(raw RawError) *Error {
	switch raw.kind {
	case rawNetwork:
		msg := "network connection failed"
		if raw.err != nil {
			msg = raw.err.Error()
		}
		return &Error{Code: CodeNetworkError, Message: msg, Retryable: true, HTTPStatus: 503}

	case rawHTTP:
		switch raw.status {
		case 401:
			return &Error{Code: CodeInvalidCredentials, Message: "invalid API credentials", Retryable: false, HTTPStatus: 401}
		case 402:
			return &Error{Code: CodeInsufficientBalance, Message: "insufficient SMS credits", Retryable: false, HTTPStatus: 402}
		case 429:
			return &Error{Code: CodeRateLimited, Message: "API rate limit exceeded", Retryable: true, HTTPStatus: 429}
		case 500, 502, 503, 504:
			return &Error{Code: CodeServerError, Message: "provider temporarily unavailable", Retryable: true, HTTPStatus: raw.status}
		}
		lower := strings.ToLower(raw.text)
		if strings.Contains(lower, "insufficient") || strings.Contains(lower, "balance") {
			return &Error{Code: CodeInsufficientBalance, Message: "insufficient SMS credits", Retryable: false, HTTPStatus: 402}
		}
		return &Error{
			Code:       CodeHTTPError,
			Message:    fmt.Sprintf("HTTP %d error", raw.status),
			Retryable:  raw.status >= 500,
			HTTPStatus: raw.status,
		}

	case rawMessage:
		lower := strings.ToLower(raw.text)
		switch {
		case strings.Contains(lower, "invalid recipient") || strings.Contains(lower, "invalid phone"):
			return &Error{Code: CodeInvalidRecipient, Message: "invalid phone number format", Retryable: false, HTTPStatus: 400}
		case strings.Contains(lower, "insufficient") || strings.Contains(lower, "balance"):
			return &Error{Code: CodeInsufficientBalance, Message: "insufficient SMS credits", Retryable: false, HTTPStatus: 402}
		case strings.Contains(lower, "timeout"):
			return &Error{Code: CodeTimeout, Message: "request timed out", Retryable: true, HTTPStatus: 408}
		}
		msg := raw.text
		if msg == "" {
			msg = "an unknown error occurred"
		}
		return &Error{Code: CodeUnknown, Message: msg, Retryable: false, HTTPStatus: 500}
	}

	return &Error{Code: CodeUnknown, Message: "an unknown error occurred", Retryable: false, HTTPStatus: 500}
}

// ShouldRetry decides whether another attempt is allowed after `attempt`
// attempts have already been made. Rate-limit errors are retried at most
// once, server errors at most min(maxRetries, 2) times.
func ShouldRetry(e *Error, attempt, maxRetries int) bool {
	if e == nil || attempt >= maxRetries || !e.Retryable {
		return false
	}

	switch e.Code {
	case CodeRateLimited:
		return attempt < 2
	case CodeNetworkError, CodeTimeout:
		return attempt < maxRetries
	case CodeServerError:
		return attempt < min(maxRetries, 2)
	default:
		return attempt < maxRetries
	}
}

// RetryDelay returns the backoff before attempt n+1: exponential with a 1s
// base capped at 10s; rate limits back off steeper (5s base), server errors
// gentler (x1.5).
func RetryDelay(e *Error, attempt int) time.Duration {
	const (
		base     = time.Second
		maxDelay = 10 * time.Second
	)

	var d time.Duration
	switch e.Code {
	case CodeRateLimited:
		d = 5 * time.Second << attempt
	case CodeServerError:
		d = base
		for i := 0; i < attempt; i++ {
			d = d * 3 / 2
		}
	default:
		d = base << attempt
	}

	if d > maxDelay || d <= 0 {
		return maxDelay
	}
	return d
}
