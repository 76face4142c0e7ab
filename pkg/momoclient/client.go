/**
 * @description
 * This package provides a client for the mobile money aggregator used to disburse
 * approved payouts (Orange Money and MTN MoMo wallets in Liberia). It encapsulates the
 * logic for making authenticated HTTP requests, building request bodies, and parsing
 * responses.
 *
 * When no base URL is configured the client runs in simulated mode: disbursements are
 * logged and reported as successful. This keeps local and staging environments working
 * without aggregator credentials.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package momoclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// Client is a client for the mobile money aggregator API.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new mobile money client. An empty baseURL enables simulated mode.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Simulated reports whether the client is running without a real aggregator endpoint.
func (c *Client) Simulated() bool {
	return c.BaseURL == ""
}

// DisburseRequest represents the payload for a wallet disbursement.
type DisburseRequest struct {
	Provider string `json:"provider"`
	Phone    string `json:"phone"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Reason   string `json:"reason"`
}

// DisburseResponse is the expected response from the disbursement endpoint.
type DisburseResponse struct {
	Data struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"data"`
}

// ErrorResponse represents an error from the aggregator API.
type ErrorResponse struct {
	Errors []struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
		Status string `json:"status"`
	} `json:"errors"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("momo api error: %s - %s", e.Errors[0].Title, e.Errors[0].Detail)
	}
	return "unknown momo api error"
}

// Disburse sends a payout to the given wallet. In simulated mode it logs and succeeds.
func (c *Client) Disburse(ctx context.Context, provider, phone string, amount int64) error {
	if c.Simulated() {
		log.Printf("level=info component=momo_client mode=simulated msg=\"disbursement simulated\" provider=%s phone=%s amount=%d", provider, phone, amount)
		return nil
	}

	payload := DisburseRequest{
		Provider: provider,
		Phone:    phone,
		Amount:   amount,
		Currency: "LRD",
		Reason:   "Referral payout",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal disbursement request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/v1/disbursements", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create disbursement request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute disbursement request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read disbursement response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil {
			log.Printf("level=warn component=momo_client op=disburse status=%d msg=\"non-2xx response (unparsable error body)\"", resp.StatusCode)
			return fmt.Errorf("failed to decode error response (status %d)", resp.StatusCode)
		}
		log.Printf("level=warn component=momo_client op=disburse status=%d title=%q detail=%q", resp.StatusCode, firstErrorTitle(errResp), firstErrorDetail(errResp))
		return &errResp
	}

	var successResp DisburseResponse
	if err := json.Unmarshal(bodyBytes, &successResp); err != nil {
		return fmt.Errorf("failed to decode disbursement response: %w", err)
	}

	log.Printf("level=info component=momo_client op=disburse msg=\"disbursement accepted\" transfer_id=%s status=%s", successResp.Data.ID, successResp.Data.Status)
	return nil
}

func firstErrorTitle(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Title
}

func firstErrorDetail(resp ErrorResponse) string {
	if len(resp.Errors) == 0 {
		return ""
	}
	return resp.Errors[0].Detail
}
