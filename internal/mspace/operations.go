package mspace

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
)

type BalanceResult struct {
	Balance int64  `json:"balance"`
	Status  string `json:"status"`
}

// Balance fetches the reseller's remaining SMS credits. The provider replies
// with a JSON object, a bare integer, or plain text depending on transport.
func (c *Client) Balance(ctx context.Context, creds Credentials) (BalanceResult, error) {
	raw, err := c.Call(ctx, OpBalance, creds, Params{})
	if err != nil {
		return BalanceResult{}, err
	}

	var obj struct {
		Balance *json.Number `json:"balance"`
		Message string       `json:"message"`
		Status  string       `json:"status"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Balance != nil {
			if n, err := obj.Balance.Int64(); err == nil {
				status := obj.Status
				if status == "" {
					status = "success"
				}
				return BalanceResult{Balance: n, Status: status}, nil
			}
		}
		if obj.Message != "" {
			if n, err := strconv.ParseInt(strings.TrimSpace(obj.Message), 10, 64); err == nil {
				return BalanceResult{Balance: n, Status: "success"}, nil
			}
		}
	}

	// bare integer body
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if n, err := num.Int64(); err == nil {
			return BalanceResult{Balance: n, Status: "success"}, nil
		}
	}

	return BalanceResult{}, Classify(ProviderMessage("invalid balance response format"))
}

type SendResult struct {
	MessageID string
	Status    string
	Raw       json.RawMessage
}

// Send delivers one message to one recipient. A 2xx body that reports a
// provider-level failure is classified like any other provider error.
func (c *Client) Send(ctx context.Context, creds Credentials, recipient, message, senderID string) (*SendResult, error) {
	raw, err := c.Call(ctx, OpSend, creds, Params{
		Recipient: recipient,
		Message:   message,
		SenderID:  senderID,
	})
	if err != nil {
		return nil, err
	}

	res := &SendResult{Raw: raw}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		if s, ok := body["status"].(string); ok {
			res.Status = s
		}
		if id, ok := body["messageId"].(string); ok {
			res.MessageID = id
		}
		// some responses nest results under "message": [{...}]
		if list, ok := body["message"].([]any); ok && len(list) > 0 {
			if first, ok := list[0].(map[string]any); ok {
				if id, ok := first["messageId"].(string); ok && res.MessageID == "" {
					res.MessageID = id
				}
			}
		}
	}

	if st := strings.ToLower(res.Status); st == "error" || st == "failed" {
		msg := res.Status
		if m, ok := bodyMessage(raw); ok {
			msg = m
		}
		return nil, Classify(ProviderMessage(msg))
	}

	return res, nil
}

func bodyMessage(raw json.RawMessage) (string, bool) {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Message == "" {
		return "", false
	}
	return body.Message, true
}

// DeliveryReport is one per-message entry of the provider report. Status 3
// means delivered.
type DeliveryReport struct {
	MessageID         string `json:"messageId"`
	Recipient         string `json:"recipient"`
	Status            int    `json:"status"`
	StatusDescription string `json:"statusDescription"`
}

const deliveryStatusDelivered = 3

func (r DeliveryReport) Delivered() bool { return r.Status == deliveryStatusDelivered }

// FetchDeliveryReport fetches the delivery report for a provider message id.
func (c *Client) FetchDeliveryReport(ctx context.Context, creds Credentials, messageID string) ([]DeliveryReport, error) {
	raw, err := c.Call(ctx, OpDeliveryReport, creds, Params{MessageID: messageID})
	if err != nil {
		return nil, err
	}

	var body struct {
		Message []DeliveryReport `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Message) > 0 {
		return body.Message, nil
	}

	var list []DeliveryReport
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	return nil, nil
}

// TopUpResellerClient moves noOfSms credits onto a downstream client account.
func (c *Client) TopUpResellerClient(ctx context.Context, creds Credentials, clientName string, noOfSms int) (json.RawMessage, error) {
	return c.Call(ctx, OpTopUpResellerClient, creds, Params{ClientName: clientName, NoOfSMS: noOfSms})
}

// TopUpSubAccount moves noOfSms credits onto a sub-account.
func (c *Client) TopUpSubAccount(ctx context.Context, creds Credentials, clientName string, noOfSms int) (json.RawMessage, error) {
	return c.Call(ctx, OpTopUpSubAccount, creds, Params{ClientName: clientName, NoOfSMS: noOfSms})
}

// SubAccounts lists the reseller's sub-accounts (passthrough).
func (c *Client) SubAccounts(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	return c.Call(ctx, OpSubAccounts, creds, Params{})
}

// ResellerClients lists the reseller's downstream clients (passthrough).
func (c *Client) ResellerClients(ctx context.Context, creds Credentials) (json.RawMessage, error) {
	return c.Call(ctx, OpResellerClients, creds, Params{})
}
