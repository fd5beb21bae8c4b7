package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/ogulcanaydogan/printguard/pkg/model"
)

// EmailConfig holds SMTP settings and recipient lists.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is one of mandatory, opportunistic, none or ssl.
	TLS string

	// To and CC receive toner orders. OfflineTo receives offline notices
	// and falls back to To when empty.
	To        []string
	CC        []string
	OfflineTo []string
}

// EmailNotifier delivers alerts over SMTP.
type EmailNotifier struct {
	cfg  EmailConfig
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewEmailNotifier validates cfg and creates an SMTP notifier.
func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("email: smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("email: from address is required")
	}
	if len(cfg.To) == 0 {
		return nil, fmt.Errorf("email: at least one recipient is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	switch strings.ToLower(cfg.TLS) {
	case "", "opportunistic":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	case "mandatory":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	case "ssl":
		opts = append(opts, mail.WithSSLPort(false))
	default:
		return nil, fmt.Errorf("email: unknown tls mode %q", cfg.TLS)
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: create smtp client: %w", err)
	}

	return &EmailNotifier{
		cfg: cfg,
		send: func(ctx context.Context, msg *mail.Msg) error {
			return client.DialAndSendWithContext(ctx, msg)
		},
	}, nil
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Send(ctx context.Context, alert Alert) error {
	msg, err := e.buildMessage(alert)
	if err != nil {
		return err
	}
	if err := e.send(ctx, msg); err != nil {
		return fmt.Errorf("send email alert: %w", err)
	}
	return nil
}

func (e *EmailNotifier) buildMessage(alert Alert) (*mail.Msg, error) {
	to, cc := e.cfg.To, e.cfg.CC
	if alert.Kind == model.AlertOffline {
		cc = nil
		if len(e.cfg.OfflineTo) > 0 {
			to = e.cfg.OfflineTo
		}
	}

	msg := mail.NewMsg()
	if err := msg.From(e.cfg.From); err != nil {
		return nil, fmt.Errorf("email: invalid from address: %w", err)
	}
	if err := msg.To(to...); err != nil {
		return nil, fmt.Errorf("email: invalid recipient: %w", err)
	}
	if len(cc) > 0 {
		if err := msg.Cc(cc...); err != nil {
			return nil, fmt.Errorf("email: invalid cc recipient: %w", err)
		}
	}
	msg.Subject(alert.Subject)
	msg.SetBodyString(mail.TypeTextPlain, alert.Message)
	return msg, nil
}
