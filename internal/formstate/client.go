package formstate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tyebliya/waitlist-api/internal/models"
	"github.com/tyebliya/waitlist-api/pkg/httpclient"
)

const joinPath = "/api/waitlist"

// Payload is the body posted to the signup endpoint
type Payload struct {
	Role           string `json:"role"`
	Name           string `json:"name"`
	Email          string `json:"email,omitempty"`
	Phone          string `json:"phone,omitempty"`
	ReferredBy     string `json:"referredBy,omitempty"`
	Website        string `json:"website,omitempty"`
	TurnstileToken string `json:"turnstileToken,omitempty"`
}

// APIError is a non-2xx answer from the signup endpoint
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("waitlist api: %d: %s", e.Status, e.Message)
}

// Client posts signups to the waitlist API
type Client struct {
	endpoint   string
	httpClient httpclient.Client
}

// NewClient creates a client for the API served at baseURL
func NewClient(baseURL string, httpClient httpclient.Client) *Client {
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + joinPath,
		httpClient: httpClient,
	}
}

// Join submits payload and returns the success body
func (c *Client) Join(ctx context.Context, payload Payload) (*models.JoinResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach waitlist api: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var failure models.ErrorResponse
		_ = json.Unmarshal(raw, &failure) //nolint:errcheck // message stays empty on a non-JSON body
		return nil, &APIError{Status: resp.StatusCode, Message: failure.Error}
	}

	var joined models.JoinResponse
	if err := json.Unmarshal(raw, &joined); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !joined.Success || joined.ReferralCode == "" {
		return nil, &APIError{Status: resp.StatusCode}
	}

	return &joined, nil
}
