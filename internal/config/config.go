package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ogulcanaydogan/printguard/pkg/inventory"
)

// Config holds all printguard configuration.
type Config struct {
	State     StateConfig         `mapstructure:"state"`
	SNMP      SNMPConfig          `mapstructure:"snmp"`
	Inventory InventoryConfig     `mapstructure:"inventory"`
	Printers  []inventory.Printer `mapstructure:"printers"`
	Alerts    AlertsConfig        `mapstructure:"alerts"`
	Metrics   MetricsConfig       `mapstructure:"metrics"`
	Serve     ServeConfig         `mapstructure:"serve"`
	Logging   LoggingConfig       `mapstructure:"logging"`
}

// StateConfig defines where alert memory is kept.
type StateConfig struct {
	Path     string `mapstructure:"path"`
	SaveEach bool   `mapstructure:"save_each"`
}

// SNMPConfig defines protocol client settings.
type SNMPConfig struct {
	Community    string        `mapstructure:"community"`
	Port         int           `mapstructure:"port"`
	Version      string        `mapstructure:"version"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Retries      int           `mapstructure:"retries"`
	ProbeTimeout time.Duration `mapstructure:"probe_timeout"`
	ProbeRetries int           `mapstructure:"probe_retries"`
}

// InventoryConfig points at an optional printer list file.
type InventoryConfig struct {
	File string `mapstructure:"file"`
}

// AlertsConfig defines debounce windows and alerting integrations.
type AlertsConfig struct {
	GraceDays    int           `mapstructure:"grace_days"`
	CooldownDays int           `mapstructure:"cooldown_days"`
	Slack        SlackConfig   `mapstructure:"slack"`
	Webhook      WebhookConfig `mapstructure:"webhook"`
	Command      CommandConfig `mapstructure:"command"`
	Email        EmailConfig   `mapstructure:"email"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// CommandConfig defines the external notify script.
type CommandConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// EmailConfig defines SMTP settings. To and CC are usually given on the
// command line and override the file values there.
type EmailConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	Host      string   `mapstructure:"host"`
	Port      int      `mapstructure:"port"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	From      string   `mapstructure:"from"`
	TLS       string   `mapstructure:"tls"`
	To        []string `mapstructure:"to"`
	CC        []string `mapstructure:"cc"`
	OfflineTo []string `mapstructure:"offline_to"`
}

// MetricsConfig defines Prometheus export settings.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// ServeConfig defines long-running mode settings.
type ServeConfig struct {
	Listen   string        `mapstructure:"listen"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// envOnlyKeys have no default but may still come from PRINTGUARD_* variables.
var envOnlyKeys = []string{
	"inventory.file",
	"alerts.slack.enabled",
	"alerts.slack.webhook_url",
	"alerts.webhook.enabled",
	"alerts.webhook.url",
	"alerts.webhook.secret",
	"alerts.command.enabled",
	"alerts.command.path",
	"alerts.email.enabled",
	"alerts.email.host",
	"alerts.email.username",
	"alerts.email.password",
	"alerts.email.from",
	"alerts.email.to",
	"alerts.email.cc",
	"alerts.email.offline_to",
	"metrics.textfile",
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".printguard"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Defaults
	home, _ := os.UserHomeDir()
	v.SetDefault("state.path", filepath.Join(home, ".printguard", "printer_status_log.json"))
	v.SetDefault("state.save_each", false)
	v.SetDefault("snmp.community", "public")
	v.SetDefault("snmp.port", 161)
	v.SetDefault("snmp.version", "1")
	v.SetDefault("snmp.timeout", "5s")
	v.SetDefault("snmp.retries", 1)
	v.SetDefault("snmp.probe_timeout", "1s")
	v.SetDefault("snmp.probe_retries", 1)
	v.SetDefault("alerts.grace_days", 7)
	v.SetDefault("alerts.cooldown_days", 7)
	v.SetDefault("alerts.slack.channel", "#printers")
	v.SetDefault("alerts.email.port", 587)
	v.SetDefault("alerts.email.tls", "opportunistic")
	v.SetDefault("serve.listen", ":9161")
	v.SetDefault("serve.interval", "24h")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Environment variables
	v.SetEnvPrefix("PRINTGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only reaches keys viper already knows; bind the ones
	// without defaults, secrets included.
	for _, key := range envOnlyKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// BuildInventory merges the inventory file and the inline printer list,
// file entries first.
func (c *Config) BuildInventory() (*inventory.Inventory, error) {
	var printers []inventory.Printer
	if c.Inventory.File != "" {
		fromFile, err := inventory.LoadFile(c.Inventory.File)
		if err != nil {
			return nil, err
		}
		printers = append(printers, fromFile.Printers()...)
	}
	printers = append(printers, c.Printers...)

	if len(printers) == 0 {
		return nil, errors.New("no printers configured: set inventory.file or printers")
	}
	return inventory.New(printers...)
}

// Validate reports configuration problems that make a run impossible.
// requireRecipients is set by commands that may send toner orders.
func (c *Config) Validate(requireRecipients bool) error {
	var errs []error

	if _, err := c.BuildInventory(); err != nil {
		errs = append(errs, err)
	}
	if c.State.Path == "" {
		errs = append(errs, errors.New("state.path must not be empty"))
	}
	if c.Alerts.GraceDays < 0 || c.Alerts.CooldownDays < 0 {
		errs = append(errs, errors.New("alerts.grace_days and alerts.cooldown_days must not be negative"))
	}
	if requireRecipients && len(c.Alerts.Email.To) == 0 {
		errs = append(errs, errors.New("at least one email recipient is required (--email)"))
	}
	if c.Alerts.Email.Enabled && (c.Alerts.Email.Host == "" || c.Alerts.Email.From == "") {
		errs = append(errs, errors.New("alerts.email requires host and from"))
	}
	if c.Alerts.Slack.Enabled && c.Alerts.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("alerts.slack.webhook_url is required when slack is enabled"))
	}
	if c.Alerts.Webhook.Enabled && c.Alerts.Webhook.URL == "" {
		errs = append(errs, errors.New("alerts.webhook.url is required when the webhook is enabled"))
	}
	if c.Alerts.Command.Enabled && c.Alerts.Command.Path == "" {
		errs = append(errs, errors.New("alerts.command.path is required when the command notifier is enabled"))
	}

	return errors.Join(errs...)
}
