package alerts

import (
	"context"
	"log/slog"

	"github.com/ogulcanaydogan/printguard/pkg/model"
)

// Delivery is the outcome of one alert on one notifier.
type Delivery struct {
	Notifier string
	Alert    Alert
	Err      error
}

// Dispatcher fans alert intents out to every configured notifier.
// Delivery is best-effort: failures are logged and reported, never retried.
type Dispatcher struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher over the given notifiers.
func NewDispatcher(logger *slog.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{notifiers: notifiers, logger: logger}
}

// Notifiers returns the names of the configured notifiers.
func (d *Dispatcher) Notifiers() []string {
	names := make([]string, 0, len(d.notifiers))
	for _, n := range d.notifiers {
		names = append(names, n.Name())
	}
	return names
}

// Dispatch renders and delivers each intent in order.
func (d *Dispatcher) Dispatch(ctx context.Context, runID string, intents []model.AlertIntent) []Delivery {
	var out []Delivery
	for _, intent := range intents {
		alert := FromIntent(intent)
		alert.RunID = runID

		if len(d.notifiers) == 0 {
			d.logger.Warn("no notifiers configured, alert not delivered",
				"kind", alert.Kind, "address", alert.Address, "message", alert.Message)
			continue
		}

		for _, n := range d.notifiers {
			err := n.Send(ctx, alert)
			out = append(out, Delivery{Notifier: n.Name(), Alert: alert, Err: err})
			if err != nil {
				d.logger.Error("alert delivery failed",
					"notifier", n.Name(), "kind", alert.Kind, "address", alert.Address, "error", err)
				continue
			}
			d.logger.Info("alert delivered",
				"notifier", n.Name(), "kind", alert.Kind, "address", alert.Address, "level", alert.Level)
		}
	}
	return out
}
