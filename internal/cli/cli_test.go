package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/printguard/internal/config"
	"github.com/ogulcanaydogan/printguard/pkg/model"
	"github.com/ogulcanaydogan/printguard/pkg/storage"
)

// setupState writes a config file pointing at a seeded state file.
func setupState(t *testing.T) (cfgPath, statePath string) {
	t.Helper()
	dir := t.TempDir()
	statePath = filepath.Join(dir, "state", "printer_status_log.json")
	require.NoError(t, os.MkdirAll(filepath.Dir(statePath), 0o755))

	day := model.NewDate(2026, 3, 1)
	store := storage.NewFile(statePath, storage.JSON)
	require.NoError(t, store.Save(context.Background(), model.State{
		"192.168.0.102": {
			Name:         "Brother HL-L8360CDW",
			LastSeen:     day,
			TonerAlerted: map[string]model.Date{"Black Toner": day, "Cyan Toner": day},
		},
		"192.168.0.105": {LastSeen: day.AddDays(-9), OfflineAlerted: true},
	}))

	cfgPath = filepath.Join(dir, "config.yaml")
	body := "state:\n  path: " + statePath + "\nlogging:\n  level: error\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath, statePath
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestStatus(t *testing.T) {
	cfgPath, _ := setupState(t)

	out, err := execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "ADDRESS")
	assert.Contains(t, out, "Black Toner (2026-03-01), Cyan Toner (2026-03-01)")
	assert.Contains(t, out, "2026-02-20")
	assert.Regexp(t, `192\.168\.0\.105\s+-\s+2026-02-20\s+true`, out)
}

func TestReset(t *testing.T) {
	cfgPath, statePath := setupState(t)

	out, err := execute(t, "reset", "192.168.0.102", "--supply", "Cyan Toner", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, `Cleared toner alert for "Cyan Toner"`)

	state, err := storage.NewFile(statePath, storage.JSON).Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, state["192.168.0.102"].TonerAlerted, 1)

	_, err = execute(t, "reset", "10.0.0.9", "--supply", "", "--config", cfgPath)
	assert.Error(t, err)

	_, err = execute(t, "reset", "192.168.0.105", "--supply", "", "--config", cfgPath)
	require.NoError(t, err)
	state, err = storage.NewFile(statePath, storage.JSON).Load(context.Background())
	require.NoError(t, err)
	assert.False(t, state["192.168.0.105"].OfflineAlerted)
}

func TestCheck_RequiresRecipients(t *testing.T) {
	cfgPath, _ := setupState(t)

	_, err := execute(t, "check", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no printers configured")
	assert.Contains(t, err.Error(), "email recipient")
}

func TestCheck_UnknownPrinterFilter(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "state:\n  path: " + filepath.Join(dir, "state.json") + `
printers:
  - address: 192.168.0.102
    supplies: 5
logging:
  level: error
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	_, err := execute(t, "check", "--config", cfgPath, "-e", "purchasing@example.com", "--printer", "10.9.9.9")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"10.9.9.9" is not in the inventory`)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "printguard version dev\n", out)
}

func TestInitNotifiers(t *testing.T) {
	cfg := &config.Config{}
	cfg.Alerts.Slack = config.SlackConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/x", Channel: "#printers"}
	cfg.Alerts.Command = config.CommandConfig{Enabled: true, Path: "/usr/local/bin/slack.sh"}
	cfg.Alerts.Webhook = config.WebhookConfig{Enabled: false, URL: "https://example.com"}
	cfg.Alerts.Email = config.EmailConfig{
		Enabled: true,
		Host:    "smtp.example.com",
		Port:    25,
		From:    "printguard@example.com",
		TLS:     "none",
		To:      []string{"purchasing@example.com"},
	}

	notifiers, err := initNotifiers(cfg)
	require.NoError(t, err)

	var names []string
	for _, n := range notifiers {
		names = append(names, n.Name())
	}
	assert.Equal(t, []string{"slack", "command", "email"}, names)

	cfg.Alerts.Email.To = nil
	_, err = initNotifiers(cfg)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	cfg := &config.Config{Logging: config.LoggingConfig{Level: "warn", Format: "text"}}
	logger := newLogger(cfg)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}
