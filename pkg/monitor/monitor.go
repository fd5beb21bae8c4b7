package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ogulcanaydogan/printguard/pkg/alerts"
	"github.com/ogulcanaydogan/printguard/pkg/engine"
	"github.com/ogulcanaydogan/printguard/pkg/inventory"
	"github.com/ogulcanaydogan/printguard/pkg/metrics"
	"github.com/ogulcanaydogan/printguard/pkg/model"
	"github.com/ogulcanaydogan/printguard/pkg/snmp"
	"github.com/ogulcanaydogan/printguard/pkg/storage"
)

var (
	// ErrUnknownDevice is returned when an address has no stored record.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrNoSupplyAlert is returned when resetting a supply that has no recorded alert.
	ErrNoSupplyAlert = errors.New("no alert recorded for supply")
)

// dispatchTimeout bounds delivery of intents already committed to the state.
const dispatchTimeout = 2 * time.Minute

// Options tune a Monitor. The zero value saves once per run and uses the wall clock.
type Options struct {
	// SaveEachDevice persists the state after every device instead of once per run.
	SaveEachDevice bool
	Metrics        *metrics.Recorder
	Now            func() time.Time
}

// Monitor runs the probe, decide, deliver, persist cycle over an inventory.
// Runs and state edits are serialized through lock; the state store has a
// single writer.
type Monitor struct {
	client     snmp.Client
	store      storage.Storage
	engine     *engine.Engine
	dispatcher *alerts.Dispatcher
	metrics    *metrics.Recorder
	logger     *slog.Logger
	now        func() time.Time
	saveEach   bool

	lock chan struct{}

	mu   sync.Mutex
	last *Summary
}

// New creates a monitor with the given dependencies.
func New(client snmp.Client, store storage.Storage, eng *engine.Engine, dispatcher *alerts.Dispatcher, logger *slog.Logger, opts Options) *Monitor {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		client:     client,
		store:      store,
		engine:     eng,
		dispatcher: dispatcher,
		metrics:    opts.Metrics,
		logger:     logger,
		now:        now,
		saveEach:   opts.SaveEachDevice,
		lock:       make(chan struct{}, 1),
	}
}

// acquire takes the run lock, giving up when ctx is done. A free lock is
// always taken, even with a cancelled ctx.
func (m *Monitor) acquire(ctx context.Context) error {
	select {
	case m.lock <- struct{}{}:
		return nil
	default:
	}
	select {
	case m.lock <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Monitor) release() { <-m.lock }

// Run checks every printer in inventory order and saves the resulting state.
// Device failures never stop the run. A cancelled context stops the run; a
// device whose probe was interrupted keeps its prior record, and state for
// devices already processed is still saved.
func (m *Monitor) Run(ctx context.Context, inv *inventory.Inventory) (*Summary, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()

	runID := uuid.New().String()
	logger := m.logger.With("run_id", runID)
	summary := &Summary{RunID: runID, Started: m.now()}
	today := model.DateOf(summary.Started)

	state, err := m.store.Load(ctx)
	if err != nil {
		logger.Warn("alert state unreadable, starting from empty state", "error", err)
	}
	if state == nil {
		state = model.State{}
	}

	logger.Info("run started", "devices", inv.Len(), "date", today.String())

	var runErr error
	for _, p := range inv.Printers() {
		if err := ctx.Err(); err != nil {
			runErr = err
			logger.Warn("run cancelled", "error", err)
			break
		}

		result, err := m.checkDevice(ctx, logger, runID, p, state, today, summary)
		if err != nil {
			runErr = err
			logger.Warn("run cancelled during probe, device left unchanged", "address", p.Address, "error", err)
			break
		}
		summary.Devices = append(summary.Devices, result)

		if m.saveEach {
			if err := m.store.Save(ctx, state); err != nil {
				logger.Error("save alert state failed", "address", p.Address, "error", err)
			}
		}
	}

	summary.Finished = m.now()

	// A cancelled run context must not prevent the final save.
	if err := m.store.Save(context.WithoutCancel(ctx), state); err != nil {
		return summary, fmt.Errorf("save alert state: %w", err)
	}

	if m.metrics != nil {
		m.metrics.RunCompleted(summary.Finished, summary.Finished.Sub(summary.Started))
	}
	m.mu.Lock()
	m.last = summary
	m.mu.Unlock()

	logger.Info("run finished",
		"devices", len(summary.Devices),
		"reachable", summary.Reachable(),
		"alerts", summary.Alerts,
		"delivery_failures", summary.DeliveryFailures,
		"duration", summary.Finished.Sub(summary.Started).String(),
	)
	return summary, runErr
}

func (m *Monitor) checkDevice(ctx context.Context, logger *slog.Logger, runID string, p inventory.Printer, state model.State, today model.Date, summary *Summary) (DeviceResult, error) {
	probe := snmp.Probe(ctx, m.client, p.Address, p.Supplies)
	// A probe cut short by cancellation looks like an outage; deciding on it
	// would mark alerts as sent that can no longer be delivered.
	if err := ctx.Err(); err != nil {
		return DeviceResult{}, err
	}

	var prior *model.DeviceRecord
	if rec, ok := state[p.Address]; ok {
		prior = &rec
	}
	decision := m.engine.Decide(p.Address, prior, probe, today)
	state[p.Address] = decision.Record

	result := DeviceResult{
		Address:    p.Address,
		Name:       decision.Record.Name,
		Model:      probe.Model,
		Reachable:  probe.Reachable,
		DaysSilent: decision.DaysSilent,
		Supplies:   supplyViews(decision.Supplies),
		Intents:    decision.Intents,
	}

	devLog := logger.With("address", p.Address, "name", decision.Record.Name)
	if !probe.Reachable {
		devLog.Info("printer unreachable", "days_silent", decision.DaysSilent, "offline_alerted", decision.Record.OfflineAlerted)
	} else {
		devLog.Info("printer reachable", "model", probe.Model, "supplies_known", probe.SuppliesKnown, "supplies", len(probe.Supplies))
		for _, s := range decision.Supplies {
			if s.Reading.Err != nil {
				devLog.Warn("supply unreadable", "index", s.Reading.Index, "supply", s.Reading.Name, "error", s.Reading.Err)
				continue
			}
			devLog.Info("supply",
				"index", s.Reading.Index,
				"supply", s.Reading.Name,
				"percent", s.Evaluation.Percent.String(),
				"needs_order", s.Evaluation.NeedsOrder,
				"outcome", string(s.Outcome),
			)
		}
	}

	if m.metrics != nil {
		m.metrics.ObserveDecision(p.Address, probe.Reachable, decision)
		for _, intent := range decision.Intents {
			m.metrics.AlertRaised(intent.Kind)
		}
	}

	summary.Alerts += len(decision.Intents)
	if len(decision.Intents) == 0 {
		return result, nil
	}

	// The record already says these alerts went out, so deliver them even if
	// the run is cancelled from here on.
	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
	defer cancel()
	for _, d := range m.dispatcher.Dispatch(dctx, runID, decision.Intents) {
		if d.Err != nil {
			summary.DeliveryFailures++
		}
		if m.metrics != nil {
			m.metrics.NotificationSent(d.Notifier, d.Err)
		}
	}
	return result, nil
}

// State returns the stored alert state. It waits for a running check to
// finish, or until ctx is done.
func (m *Monitor) State(ctx context.Context) (model.State, error) {
	if err := m.acquire(ctx); err != nil {
		return nil, err
	}
	defer m.release()
	return m.store.Load(ctx)
}

// Reset clears the offline flag and supply cooldowns of a device. With a
// non-empty supplyName only that supply's cooldown is cleared.
func (m *Monitor) Reset(ctx context.Context, address, supplyName string) error {
	if err := m.acquire(ctx); err != nil {
		return err
	}
	defer m.release()

	state, err := m.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load alert state: %w", err)
	}
	if err := ResetDevice(state, address, supplyName); err != nil {
		return err
	}

	if err := m.store.Save(ctx, state); err != nil {
		return fmt.Errorf("save alert state: %w", err)
	}
	m.logger.Info("alert memory reset", "address", address, "supply", supplyName)
	return nil
}

// LastRun returns the summary of the most recent completed run, or nil.
func (m *Monitor) LastRun() *Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// ResetDevice clears alert memory for address in state. With a non-empty
// supplyName only that supply's cooldown is cleared; otherwise the offline
// flag and every supply cooldown are.
func ResetDevice(state model.State, address, supplyName string) error {
	rec, ok := state[address]
	if !ok {
		return fmt.Errorf("%s: %w", address, ErrUnknownDevice)
	}

	if supplyName != "" {
		if _, ok := rec.TonerAlerted[supplyName]; !ok {
			return fmt.Errorf("%s %q: %w", address, supplyName, ErrNoSupplyAlert)
		}
		rec = rec.Clone()
		delete(rec.TonerAlerted, supplyName)
	} else {
		rec.OfflineAlerted = false
		rec.TonerAlerted = nil
	}
	state[address] = rec
	return nil
}
