package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/marketbeam/taskgate/internal/pkg/safehttp"
)

// WebhookChannel delivers messages by POSTing them as JSON to a
// configured endpoint. The endpoint must answer 2xx for the delivery to
// count; anything else is an error and the caller may resubmit.
type WebhookChannel struct {
	name       string
	url        string
	httpClient *http.Client
}

// WebhookOption configures a WebhookChannel.
type WebhookOption func(*WebhookChannel)

// WithWebhookHTTPClient overrides the HTTP client, used in tests.
func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(c *WebhookChannel) {
		c.httpClient = client
	}
}

// NewWebhookChannel creates a channel that posts to url.
func NewWebhookChannel(name, url string, opts ...WebhookOption) *WebhookChannel {
	c := &WebhookChannel{
		name: name,
		url:  url,
		httpClient: &http.Client{
			Transport: safehttp.SafeTransport,
			Timeout:   30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *WebhookChannel) Name() string { return c.name }

// webhookPayload is the wire form of a delivered message.
type webhookPayload struct {
	JobID     string `json:"job_id"`
	Variant   string `json:"variant,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Body      string `json:"body"`
}

// Deliver posts msg to the configured endpoint.
func (c *WebhookChannel) Deliver(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(webhookPayload{
		JobID:     msg.JobID,
		Variant:   msg.Variant,
		Recipient: msg.Recipient,
		Body:      msg.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook %s answered %d", c.name, resp.StatusCode)
	}
	return nil
}
