package mspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mobiwave/mobiwave-gateway/internal/metrics"
)

// Operation is one logical call against the mspace smsapi v2.
type Operation string

const (
	OpSubAccounts         Operation = "subAccounts"
	OpResellerClients     Operation = "resellerClients"
	OpTopUpSubAccount     Operation = "topUpSubAccount"
	OpTopUpResellerClient Operation = "topUpResellerClient"
	OpBalance             Operation = "balance"
	OpSend                Operation = "send"
	OpDeliveryReport      Operation = "deliveryReport"
)

// ParseOperation accepts the dashboard operation names and their legacy
// lower-case aliases.
func ParseOperation(s string) (Operation, bool) {
	switch strings.TrimSpace(s) {
	case "subAccounts", "querysubs":
		return OpSubAccounts, true
	case "resellerClients", "queryresellerclients":
		return OpResellerClients, true
	case "topUpSubAccount", "topupsub":
		return OpTopUpSubAccount, true
	case "topUpResellerClient", "topupresellerclient":
		return OpTopUpResellerClient, true
	case "balance":
		return OpBalance, true
	case "send":
		return OpSend, true
	case "deliveryReport":
		return OpDeliveryReport, true
	default:
		return "", false
	}
}

// Credentials gate every provider call.
type Credentials struct {
	APIKey   string
	Username string
	SenderID string
}

// Params carries the operation-specific arguments.
type Params struct {
	ClientName string
	NoOfSMS    int
	Recipient  string
	Message    string
	SenderID   string
	MessageID  string
}

// ErrInvalidParams is returned before any network call when a required
// parameter is missing.
var ErrInvalidParams = errors.New("invalid operation params")

// Client talks to the mspace HTTP API. Every logical operation is attempted
// as a JSON POST with an apikey header first; on any transport failure the
// same operation is retried once over GET with url-encoded parameters.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeoutMs int) *Client {
	if timeoutMs <= 0 {
		timeoutMs = 10000
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: time.Duration(timeoutMs) * time.Millisecond},
	}
}

func endpointAndPayload(op Operation, creds Credentials, p Params) (string, map[string]any, error) {
	if creds.APIKey == "" || creds.Username == "" {
		return "", nil, fmt.Errorf("%w: api key and username required", ErrInvalidParams)
	}

	payload := map[string]any{"username": creds.Username}

	switch op {
	case OpSubAccounts:
		return "/smsapi/v2/subusers", payload, nil
	case OpResellerClients:
		return "/smsapi/v2/resellerclients", payload, nil
	case OpTopUpSubAccount:
		if p.ClientName == "" || p.NoOfSMS <= 0 {
			return "", nil, fmt.Errorf("%w: client name and a positive SMS count required for top-up", ErrInvalidParams)
		}
		payload["subaccname"] = p.ClientName
		payload["noOfSms"] = p.NoOfSMS
		return "/smsapi/v2/subacctopup", payload, nil
	case OpTopUpResellerClient:
		if p.ClientName == "" || p.NoOfSMS <= 0 {
			return "", nil, fmt.Errorf("%w: client name and a positive SMS count required for top-up", ErrInvalidParams)
		}
		payload["clientname"] = p.ClientName
		payload["noOfSms"] = p.NoOfSMS
		return "/smsapi/v2/resellerclienttopup", payload, nil
	case OpBalance:
		return "/smsapi/v2/balance", payload, nil
	case OpSend:
		if p.Recipient == "" || p.Message == "" {
			return "", nil, fmt.Errorf("%w: recipient and message required for send", ErrInvalidParams)
		}
		sender := p.SenderID
		if sender == "" {
			sender = creds.SenderID
		}
		payload["senderId"] = sender
		payload["recipient"] = p.Recipient
		payload["message"] = p.Message
		return "/smsapi/v2/sendtext", payload, nil
	case OpDeliveryReport:
		if p.MessageID == "" {
			return "", nil, fmt.Errorf("%w: message id required for delivery report", ErrInvalidParams)
		}
		payload["messageId"] = p.MessageID
		return "/smsapi/v2/deliveryreport", payload, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported operation %q", ErrInvalidParams, op)
	}
}

// getURL builds the GET fallback URL. Balance uses the provider's path-segment
// form; every other operation takes a query string.
func (c *Client) getURL(op Operation, endpoint string, creds Credentials, p Params) string {
	if op == OpBalance {
		return c.baseURL + endpoint + "/apikey=" + creds.APIKey + "/username=" + creds.Username
	}

	q := url.Values{}
	q.Set("apikey", creds.APIKey)
	q.Set("username", creds.Username)
	switch op {
	case OpTopUpSubAccount:
		q.Set("subaccname", p.ClientName)
		q.Set("noofsms", strconv.Itoa(p.NoOfSMS))
	case OpTopUpResellerClient:
		q.Set("clientname", p.ClientName)
		q.Set("noofsms", strconv.Itoa(p.NoOfSMS))
	case OpSend:
		sender := p.SenderID
		if sender == "" {
			sender = creds.SenderID
		}
		q.Set("senderId", sender)
		q.Set("recipient", p.Recipient)
		q.Set("message", p.Message)
	case OpDeliveryReport:
		q.Set("messageId", p.MessageID)
	}
	return c.baseURL + endpoint + "?" + q.Encode()
}

// Call performs one logical operation, trying POST first and falling back to
// GET. When both transports fail the GET failure is classified and returned.
// The provider does not guarantee JSON for all operations: non-JSON bodies are
// wrapped as {"message": <text>, "status": "success"}.
func (c *Client) Call(ctx context.Context, op Operation, creds Credentials, p Params) (json.RawMessage, error) {
	endpoint, payload, err := endpointAndPayload(op, creds, p)
	if err != nil {
		return nil, err
	}

	body, rawErr := c.tryPost(ctx, endpoint, creds.APIKey, payload)
	if rawErr == nil {
		metrics.ProviderCallsTotal.WithLabelValues(string(op), "post", "ok").Inc()
		return wrapBody(body), nil
	}
	metrics.ProviderCallsTotal.WithLabelValues(string(op), "post", "error").Inc()

	body, rawErr = c.tryGet(ctx, c.getURL(op, endpoint, creds, p))
	if rawErr == nil {
		metrics.ProviderCallsTotal.WithLabelValues(string(op), "get", "ok").Inc()
		return wrapBody(body), nil
	}
	metrics.ProviderCallsTotal.WithLabelValues(string(op), "get", "error").Inc()

	return nil, Classify(*rawErr)
}

func (c *Client) tryPost(ctx context.Context, endpoint, apiKey string, payload map[string]any) ([]byte, *RawError) {
	b, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(b))
	if err != nil {
		raw := NetworkFailure(err)
		return nil, &raw
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", apiKey)

	return c.do(req)
}

func (c *Client) tryGet(ctx context.Context, u string) ([]byte, *RawError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		raw := NetworkFailure(err)
		return nil, &raw
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, *RawError) {
	res, err := c.http.Do(req)
	if err != nil {
		raw := NetworkFailure(err)
		return nil, &raw
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		raw := NetworkFailure(err)
		return nil, &raw
	}

	if res.StatusCode/100 != 2 {
		raw := HTTPFailure(res.StatusCode, string(body))
		return nil, &raw
	}
	return body, nil
}

func wrapBody(body []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(body)
	if json.Valid(trimmed) {
		return trimmed
	}
	wrapped, _ := json.Marshal(map[string]string{
		"message": string(body),
		"status":  "success",
	})
	return wrapped
}
