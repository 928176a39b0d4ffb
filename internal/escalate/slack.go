package escalate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// WebhookClient delivers a critical entry to the external notification
// channel. Implementations must honor context cancellation.
type WebhookClient interface {
	Critical(ctx context.Context, entry map[string]any) error
}

// SlackClient posts entries as JSON to a Slack-compatible webhook URL.
type SlackClient struct {
	url  string
	http *http.Client
}

// NewSlackClient builds a webhook client. The per-call timeout comes
// from the caller's context, not the HTTP client.
func NewSlackClient(url string) *SlackClient {
	return &SlackClient{url: url, http: &http.Client{}}
}

// Critical posts the entry. Non-2xx responses are failures.
func (c *SlackClient) Critical(ctx context.Context, entry map[string]any) error {
	if c.url == "" {
		return fmt.Errorf("slack webhook url not configured")
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("serialize webhook entry: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
