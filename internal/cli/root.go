package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/printguard/internal/config"
	"github.com/ogulcanaydogan/printguard/pkg/alerts"
	"github.com/ogulcanaydogan/printguard/pkg/engine"
	"github.com/ogulcanaydogan/printguard/pkg/metrics"
	"github.com/ogulcanaydogan/printguard/pkg/monitor"
	"github.com/ogulcanaydogan/printguard/pkg/snmp"
	"github.com/ogulcanaydogan/printguard/pkg/storage"
)

// Version is set at build time via ldflags.
var Version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "printguard",
	Short: "printguard - printer toner and availability alerts over SNMP",
	Long: `printguard polls a fixed list of network printers over SNMP, remembers
which toner and offline alerts it has already sent, and notifies chat and email
channels when a printer stays silent for too long or a supply runs low.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.printguard/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// addRecipientFlags registers the toner order recipient flags.
func addRecipientFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayP("email", "e", nil, "Toner order recipient (repeatable, required unless set in config)")
	cmd.Flags().StringArray("cc", nil, "Toner order CC recipient (repeatable)")
}

// applyRecipientFlags lets command line recipients override the config file.
func applyRecipientFlags(cmd *cobra.Command, cfg *config.Config) {
	if to, _ := cmd.Flags().GetStringArray("email"); len(to) > 0 {
		cfg.Alerts.Email.To = to
	}
	if cc, _ := cmd.Flags().GetStringArray("cc"); len(cc) > 0 {
		cfg.Alerts.Email.CC = cc
	}
}

// initStorage opens the alert state store from config.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.State.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return storage.Open(cfg.State.Path, logger)
}

// initNotifiers creates alert notifiers from config.
func initNotifiers(cfg *config.Config) ([]alerts.Notifier, error) {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if cfg.Alerts.Command.Enabled && cfg.Alerts.Command.Path != "" {
		notifiers = append(notifiers, alerts.NewCommandNotifier(cfg.Alerts.Command.Path))
	}

	if cfg.Alerts.Email.Enabled {
		e := cfg.Alerts.Email
		n, err := alerts.NewEmailNotifier(alerts.EmailConfig{
			Host:      e.Host,
			Port:      e.Port,
			Username:  e.Username,
			Password:  e.Password,
			From:      e.From,
			TLS:       e.TLS,
			To:        e.To,
			CC:        e.CC,
			OfflineTo: e.OfflineTo,
		})
		if err != nil {
			return nil, err
		}
		notifiers = append(notifiers, n)
	}

	return notifiers, nil
}

// initMonitor creates a fully wired monitor. The caller closes the store.
func initMonitor(cfg *config.Config, logger *slog.Logger, recorder *metrics.Recorder) (*monitor.Monitor, storage.Storage, error) {
	client, err := snmp.NewClient(snmp.Config{
		Community:    cfg.SNMP.Community,
		Port:         uint16(cfg.SNMP.Port),
		Version:      cfg.SNMP.Version,
		Timeout:      cfg.SNMP.Timeout,
		Retries:      cfg.SNMP.Retries,
		ProbeTimeout: cfg.SNMP.ProbeTimeout,
		ProbeRetries: cfg.SNMP.ProbeRetries,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init snmp client: %w", err)
	}

	notifiers, err := initNotifiers(cfg)
	if err != nil {
		return nil, nil, err
	}

	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init storage: %w", err)
	}

	eng := engine.New(engine.Policy{
		GraceDays:    cfg.Alerts.GraceDays,
		CooldownDays: cfg.Alerts.CooldownDays,
	})
	dispatcher := alerts.NewDispatcher(logger, notifiers...)
	mon := monitor.New(client, store, eng, dispatcher, logger, monitor.Options{
		SaveEachDevice: cfg.State.SaveEach,
		Metrics:        recorder,
	})

	logger.Debug("monitor initialized",
		"state", cfg.State.Path,
		"notifiers", dispatcher.Notifiers(),
		"grace_days", eng.Policy().GraceDays,
		"cooldown_days", eng.Policy().CooldownDays,
	)
	return mon, store, nil
}
