package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"studio-backend/internal/domain"
)

var ErrWebhookRejected = errors.New("webhook rejected alert")

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Text  string               `json:"text"`
	Entry domain.AuditLogEntry `json:"entry"`
}

// WebhookNotifier posts alerts to an HTTP endpoint (Slack/Mattermost style incoming webhook).
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
}

// NewWebhookNotifier creates a notifier that retries up to 3 times with linear backoff.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		attempts: 3,
		backoff:  time.Second,
	}
}

// HandleAlert delivers one alert.
func (n *WebhookNotifier) HandleAlert(ctx context.Context, entry domain.AuditLogEntry) error {
	body, err := json.Marshal(Payload{Text: Summary(entry), Entry: entry})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= n.attempts; attempt++ {
		lastErr = n.post(ctx, body)
		if lastErr == nil {
			return nil
		}
		if attempt < n.attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * n.backoff):
			}
		}
	}
	return fmt.Errorf("failed to deliver alert after %d attempts: %w", n.attempts, lastErr)
}

func (n *WebhookNotifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrWebhookRejected, resp.StatusCode)
	}
	return nil
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct{}

func (LogNotifier) HandleAlert(_ context.Context, entry domain.AuditLogEntry) error {
	slog.Error("security alert",
		slog.String("summary", Summary(entry)),
		slog.String("audit_id", entry.ID),
		slog.String("event_type", string(entry.EventType)),
		slog.String("severity", string(entry.Severity)),
		slog.String("ip", entry.IPAddress),
		slog.String("username", entry.Username),
		slog.Time("timestamp", entry.Timestamp))
	return nil
}

// Notifiers fans an alert out to every notifier and joins their errors.
type Notifiers []interface {
	HandleAlert(ctx context.Context, entry domain.AuditLogEntry) error
}

func (ns Notifiers) HandleAlert(ctx context.Context, entry domain.AuditLogEntry) error {
	var errs []error
	for _, n := range ns {
		if err := n.HandleAlert(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Summary renders a one-line human description of the entry.
func Summary(entry domain.AuditLogEntry) string {
	who := entry.Username
	if who == "" {
		who = "anonymous"
	}
	return fmt.Sprintf("[%s] %s by %s from %s on %s",
		entry.Severity, entry.EventType, who, entry.IPAddress, entry.Resource)
}
