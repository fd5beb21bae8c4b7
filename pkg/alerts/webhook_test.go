package alerts_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ogulcanaydogan/printguard/pkg/alerts"
	"github.com/ogulcanaydogan/printguard/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifier_Name(t *testing.T) {
	n := alerts.NewWebhookNotifier("https://example.com/webhook", "")
	assert.Equal(t, "webhook", n.Name())
}

func TestWebhookNotifier_OfflineEvent(t *testing.T) {
	var received map[string]any
	var eventHeader string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "printguard/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, http.MethodPost, r.Method)
		eventHeader = r.Header.Get("X-Printguard-Event")

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	alert := alerts.FromIntent(model.AlertIntent{
		Kind:        model.AlertOffline,
		Address:     "192.168.0.105",
		DisplayName: "HP LaserJet M507",
		DaysSilent:  9,
	})
	alert.RunID = "run-1"

	require.NoError(t, n.Send(context.Background(), alert))
	assert.Equal(t, alerts.EventPrinterOffline, eventHeader)
	assert.Equal(t, "printer.offline", received["event"])
	assert.NotEmpty(t, received["id"])
	assert.NotEmpty(t, received["occurred_at"])
	assert.Equal(t, "offline", received["kind"])
	assert.Equal(t, "Info", received["severity"])
	assert.Equal(t, "192.168.0.105", received["address"])
	assert.Equal(t, "HP LaserJet M507", received["device"])
	assert.Equal(t, float64(9), received["days_silent"])
	assert.Equal(t, "run-1", received["run_id"])
	assert.Equal(t, "Printer HP LaserJet M507 offline for 9 days", received["message"])
	assert.NotContains(t, received, "supplies")
}

func TestWebhookNotifier_TonerEvent(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	err := n.Send(context.Background(), alerts.FromIntent(model.AlertIntent{
		Kind:        model.AlertToner,
		Address:     "192.168.0.102",
		DisplayName: "Brother HL-L8360CDW",
		Supplies:    []string{"Black Toner", "Cyan Toner"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "printer.toner_order", received["event"])
	assert.Equal(t, "ToDo", received["severity"])
	assert.Equal(t, []any{"Black Toner", "Cyan Toner"}, received["supplies"])
	assert.Equal(t, "Order Printer Toner", received["subject"])
	assert.NotContains(t, received, "days_silent")
}

func TestWebhookNotifier_Signed(t *testing.T) {
	var signature, timestamp string
	var body []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		signature = r.Header.Get("X-Printguard-Signature")
		timestamp = r.Header.Get("X-Printguard-Timestamp")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "test-secret")
	require.NoError(t, n.Send(context.Background(), alerts.Alert{Kind: model.AlertToner, Level: alerts.LevelToDo}))

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), time.Unix(ts, 0), time.Minute)

	mac := hmac.New(sha256.New, []byte("test-secret"))
	mac.Write([]byte(timestamp + "."))
	mac.Write(body)
	assert.Equal(t, "sha256="+hex.EncodeToString(mac.Sum(nil)), signature)
	assert.Equal(t, signature, "sha256="+alerts.SignWebhook([]byte("test-secret"), timestamp, body))
}

func TestWebhookNotifier_Unsigned(t *testing.T) {
	var hasSignature, hasTimestamp bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hasSignature = r.Header.Get("X-Printguard-Signature") != ""
		hasTimestamp = r.Header.Get("X-Printguard-Timestamp") != ""
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	require.NoError(t, n.Send(context.Background(), alerts.Alert{Level: alerts.LevelInfo}))
	assert.False(t, hasSignature)
	assert.False(t, hasTimestamp)
}

func TestWebhookNotifier_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "receiver paused", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	n := alerts.NewWebhookNotifier(server.URL, "")
	err := n.Send(context.Background(), alerts.Alert{Level: alerts.LevelInfo})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "receiver paused")
}
