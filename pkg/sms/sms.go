// Package sms is a small client for the outbound SMS provider API.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrProviderStatus is returned when the provider answers with a non-2xx status.
var ErrProviderStatus = errors.New("provider returned error status")

// Request is the provider's send-message body.
type Request struct {
	RecipientPhone string `json:"recipientPhone"`
	Text           string `json:"text"`
	LocalID        string `json:"localId"`
	Private        bool   `json:"private,omitempty"`
	Author         string `json:"author,omitempty"`
	MediaURL       string `json:"mediaUrl,omitempty"`
}

// Response is the provider's acknowledgement. CreatedAt is kept raw since
// providers disagree on its encoding.
type Response struct {
	ID        string          `json:"id"`
	CreatedAt json.RawMessage `json:"createdAt,omitempty"`
}

// Client posts messages to a single provider endpoint.
type Client struct {
	url   string
	token string
	http  *http.Client
}

// New returns a Client. The default token is used when a call passes none.
func New(url, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: url, token: token, http: httpClient}
}

// Send posts one message and returns the provider response.
func (c *Client) Send(ctx context.Context, token string, req Request) (Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode SMS request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to create SMS request for %s: %w", req.RecipientPhone, err)
	}
	if token == "" {
		token = c.token
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("failed to send SMS to %s: %w", req.RecipientPhone, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Response{}, fmt.Errorf("failed to read SMS response for %s: %w", req.RecipientPhone, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Response{}, fmt.Errorf("%w: %d for %s: %s", ErrProviderStatus, resp.StatusCode, req.RecipientPhone, strings.TrimSpace(string(payload)))
	}

	var out Response
	if len(bytes.TrimSpace(payload)) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(payload, &out); err != nil {
		// accepted without a readable id
		return Response{}, nil
	}
	return out, nil
}
