package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SlackNotifier sends alerts to a Slack webhook.
type SlackNotifier struct {
	webhookURL string
	channel    string
	client     *http.Client
}

// NewSlackNotifier creates a Slack webhook notifier.
func NewSlackNotifier(webhookURL, channel string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Send(ctx context.Context, alert Alert) error {
	color := "#439fe0" // blue
	if alert.Level == LevelToDo {
		color = "#ff9900" // orange
	}

	fields := []slackField{
		{Title: "Printer", Value: alert.Device, Short: true},
		{Title: "Address", Value: alert.Address, Short: true},
	}
	if alert.DaysSilent > 0 {
		fields = append(fields, slackField{Title: "Days Silent", Value: fmt.Sprintf("%d", alert.DaysSilent), Short: true})
	}
	if len(alert.Supplies) > 0 {
		fields = append(fields, slackField{Title: "Supplies", Value: strings.Join(alert.Supplies, "\n")})
	}

	payload := slackPayload{
		Channel: s.channel,
		Text:    alert.Message,
		Attachments: []slackAttachment{
			{
				Color:  color,
				Title:  fmt.Sprintf("printguard: %s", alert.Level),
				Fields: fields,
				Footer: "printguard",
				Ts:     time.Now().Unix(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Fields []slackField `json:"fields"`
	Footer string       `json:"footer"`
	Ts     int64        `json:"ts"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}
