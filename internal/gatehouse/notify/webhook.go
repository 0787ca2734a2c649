package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/gatehouse/types"
)

const (
	colorGranted = 3066993
	colorDenied  = 15158332

	webhookUsername = "Access Control"
	footerText      = "Automated access monitoring"
)

// WebhookSender posts Discord-style embed messages.
type WebhookSender struct {
	url    string
	client *http.Client
}

// NewWebhookSender returns nil when url is empty so callers can pass the
// result straight to NewDispatcher.
func NewWebhookSender(url string, client *http.Client) Sender {
	if url == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &WebhookSender{url: url, client: client}
}

type webhookPayload struct {
	Username string  `json:"username"`
	Embeds   []embed `json:"embeds"`
}

type embed struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      embedFooter  `json:"footer"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

func buildPayload(n types.ScanNotice) webhookPayload {
	e := embed{
		Title:       "❌ Access Denied: Unknown Tag",
		Description: "An unregistered RFID tag tried to access the system.",
		Color:       colorDenied,
		Fields: []embedField{
			{Name: "Tag UID", Value: "`" + n.Credential + "`"},
		},
		Footer: embedFooter{Text: footerText},
	}
	if n.Decision.Granted() {
		e.Title = "✅ Access Granted: " + n.PrincipalName
		e.Description = fmt.Sprintf("**%s** entered the premises.", n.PrincipalName)
		e.Color = colorGranted
	}
	if !n.At.IsZero() {
		e.Timestamp = n.At.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	return webhookPayload{Username: webhookUsername, Embeds: []embed{e}}
}

func (w *WebhookSender) Send(ctx context.Context, n types.ScanNotice) error {
	body, err := json.Marshal(buildPayload(n))
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
