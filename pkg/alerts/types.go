package alerts

import (
	"context"
	"fmt"
	"strings"

	"github.com/ogulcanaydogan/printguard/pkg/model"
)

// AlertLevel is the severity passed to chat channels.
type AlertLevel string

const (
	LevelInfo AlertLevel = "Info" // Device offline
	LevelToDo AlertLevel = "ToDo" // Supplies need ordering
)

const (
	tonerSubject       = "Order Printer Toner"
	offlineSubjectFmt  = "Printer %s Offline"
	offlineMessageFmt  = "Printer %s offline for %d days"
	tonerMessagePrefix = "Order Toner for printer %s"
)

// Alert is a rendered alert intent, ready for delivery.
type Alert struct {
	Kind       model.AlertKind `json:"kind"`
	Level      AlertLevel      `json:"level"`
	Address    string          `json:"address"`
	Device     string          `json:"device"`
	Subject    string          `json:"subject"`
	Message    string          `json:"message"`
	DaysSilent int             `json:"days_silent,omitempty"`
	Supplies   []string        `json:"supplies,omitempty"`
	RunID      string          `json:"run_id,omitempty"`
}

// FromIntent renders the chat message, severity and email subject for an intent.
func FromIntent(intent model.AlertIntent) Alert {
	name := intent.DisplayName
	if name == "" {
		name = intent.Address
	}

	a := Alert{
		Kind:       intent.Kind,
		Address:    intent.Address,
		Device:     name,
		DaysSilent: intent.DaysSilent,
		Supplies:   append([]string(nil), intent.Supplies...),
	}

	switch intent.Kind {
	case model.AlertOffline:
		a.Level = LevelInfo
		a.Subject = fmt.Sprintf(offlineSubjectFmt, name)
		a.Message = fmt.Sprintf(offlineMessageFmt, name, intent.DaysSilent)
	default:
		a.Level = LevelToDo
		a.Subject = tonerSubject
		lines := append([]string{fmt.Sprintf(tonerMessagePrefix, name)}, intent.Supplies...)
		a.Message = strings.Join(lines, "\n")
	}
	return a
}

// Notifier sends alerts to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers an alert. Implementations must be safe for concurrent use.
	Send(ctx context.Context, alert Alert) error
}
