package alerts

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/printguard/pkg/model"
)

// Webhook event names, one per alert kind.
const (
	EventPrinterOffline = "printer.offline"
	EventTonerOrder     = "printer.toner_order"
)

// WebhookNotifier posts each alert as a flat JSON event. With a secret, the
// timestamp and body are signed so receivers can reject replays.
type WebhookNotifier struct {
	url    string
	secret string
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a webhook notifier. secret may be empty.
func NewWebhookNotifier(url, secret string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

func (w *WebhookNotifier) Name() string { return "webhook" }

// webhookEvent is the request body. Offline events carry days_silent, toner
// events the supplies to order.
type webhookEvent struct {
	ID         string          `json:"id"`
	Event      string          `json:"event"`
	OccurredAt string          `json:"occurred_at"`
	RunID      string          `json:"run_id,omitempty"`
	Kind       model.AlertKind `json:"kind"`
	Severity   AlertLevel      `json:"severity"`
	Address    string          `json:"address"`
	Device     string          `json:"device"`
	DaysSilent int             `json:"days_silent,omitempty"`
	Supplies   []string        `json:"supplies,omitempty"`
	Subject    string          `json:"subject"`
	Message    string          `json:"message"`
}

func eventName(kind model.AlertKind) string {
	if kind == model.AlertOffline {
		return EventPrinterOffline
	}
	return EventTonerOrder
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	now := w.now().UTC()
	body, err := json.Marshal(webhookEvent{
		ID:         uuid.NewString(),
		Event:      eventName(alert.Kind),
		OccurredAt: now.Format(time.RFC3339),
		RunID:      alert.RunID,
		Kind:       alert.Kind,
		Severity:   alert.Level,
		Address:    alert.Address,
		Device:     alert.Device,
		DaysSilent: alert.DaysSilent,
		Supplies:   alert.Supplies,
		Subject:    alert.Subject,
		Message:    alert.Message,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "printguard/1.0")
	req.Header.Set("X-Printguard-Event", eventName(alert.Kind))

	if w.secret != "" {
		ts := strconv.FormatInt(now.Unix(), 10)
		req.Header.Set("X-Printguard-Timestamp", ts)
		req.Header.Set("X-Printguard-Signature", "sha256="+SignWebhook([]byte(w.secret), ts, body))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post %s event for %s: %w", eventName(alert.Kind), alert.Address, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	return nil
}

// SignWebhook returns the hex HMAC-SHA256 of "<timestamp>.<body>".
func SignWebhook(secret []byte, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
