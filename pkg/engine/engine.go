package engine

import (
	"sort"

	"github.com/ogulcanaydogan/printguard/pkg/model"
	"github.com/ogulcanaydogan/printguard/pkg/supply"
)

// Policy holds the debounce windows, in days.
type Policy struct {
	// GraceDays is how long a device may stay silent before an offline alert.
	// The alert fires once silence exceeds it.
	GraceDays int
	// CooldownDays is the minimum age of a supply alert before it repeats.
	CooldownDays int
}

// DefaultPolicy is a one-week grace period and a one-week cooldown.
var DefaultPolicy = Policy{GraceDays: 7, CooldownDays: 7}

// SupplyOutcome says what happened to one supply in a run.
type SupplyOutcome string

const (
	SupplyOK         SupplyOutcome = "ok"
	SupplyAlerted    SupplyOutcome = "alerted"
	SupplySuppressed SupplyOutcome = "suppressed"
	SupplyRecovered  SupplyOutcome = "recovered"
	SupplyNoData     SupplyOutcome = "no_data"
)

// SupplyStatus is the evaluated state of one supply reading.
type SupplyStatus struct {
	Reading    model.SupplyReading
	Evaluation supply.Evaluation
	Outcome    SupplyOutcome
}

// Decision is the result of evaluating one device for one run.
type Decision struct {
	Record     model.DeviceRecord
	Intents    []model.AlertIntent
	Supplies   []SupplyStatus
	DaysSilent int
}

// Engine decides which alerts a probe result warrants. It holds no state
// between calls and performs no I/O.
type Engine struct {
	policy Policy
}

// New creates an engine. Non-positive windows fall back to DefaultPolicy.
func New(policy Policy) *Engine {
	if policy.GraceDays <= 0 {
		policy.GraceDays = DefaultPolicy.GraceDays
	}
	if policy.CooldownDays <= 0 {
		policy.CooldownDays = DefaultPolicy.CooldownDays
	}
	return &Engine{policy: policy}
}

// Policy returns the windows in effect.
func (e *Engine) Policy() Policy { return e.policy }

// Decide computes the next record for a device and any alerts to send.
// prior is nil for a device seen for the first time; it is never modified.
func (e *Engine) Decide(address string, prior *model.DeviceRecord, probe model.ProbeResult, today model.Date) Decision {
	var rec model.DeviceRecord
	if prior != nil {
		rec = prior.Clone()
	}

	if !probe.Reachable {
		return e.decideUnreachable(address, rec, today)
	}
	return e.decideReachable(address, rec, probe, today)
}

func (e *Engine) decideUnreachable(address string, rec model.DeviceRecord, today model.Date) Decision {
	if rec.LastSeen.IsZero() {
		// grace period starts now
		rec.LastSeen = today
		return Decision{Record: rec}
	}

	d := Decision{DaysSilent: today.DaysSince(rec.LastSeen)}
	if d.DaysSilent > e.policy.GraceDays && !rec.OfflineAlerted {
		d.Intents = append(d.Intents, model.AlertIntent{
			Kind:        model.AlertOffline,
			Address:     address,
			DisplayName: displayName(rec.Name, address),
			DaysSilent:  d.DaysSilent,
		})
		rec.OfflineAlerted = true
	}
	d.Record = rec
	return d
}

func (e *Engine) decideReachable(address string, rec model.DeviceRecord, probe model.ProbeResult, today model.Date) Decision {
	if rec.Name == "" {
		rec.Name = probe.Model
	}
	rec.LastSeen = today
	rec.OfflineAlerted = false

	var d Decision
	if !probe.SuppliesKnown {
		d.Record = rec
		return d
	}

	readings := make([]model.SupplyReading, len(probe.Supplies))
	copy(readings, probe.Supplies)
	sort.SliceStable(readings, func(i, j int) bool { return readings[i].Index < readings[j].Index })

	prev := rec.TonerAlerted
	next := make(map[string]model.Date)
	var batch []string

	for _, r := range readings {
		status := SupplyStatus{Reading: r}

		if r.Err != nil {
			status.Outcome = SupplyNoData
			if last, ok := prev[r.Name]; ok && r.Name != "" {
				next[r.Name] = last
			}
			d.Supplies = append(d.Supplies, status)
			continue
		}

		status.Evaluation = supply.Evaluate(r.Level, r.Capacity)
		last, alerted := prev[r.Name]
		switch {
		case status.Evaluation.NeedsOrder && (!alerted || today.DaysSince(last) >= e.policy.CooldownDays):
			status.Outcome = SupplyAlerted
			batch = append(batch, r.Name)
			next[r.Name] = today
		case status.Evaluation.NeedsOrder:
			status.Outcome = SupplySuppressed
			next[r.Name] = last
		case alerted:
			status.Outcome = SupplyRecovered
		default:
			status.Outcome = SupplyOK
		}
		d.Supplies = append(d.Supplies, status)
	}

	rec.TonerAlerted = next
	if len(batch) > 0 {
		d.Intents = append(d.Intents, model.AlertIntent{
			Kind:        model.AlertToner,
			Address:     address,
			DisplayName: displayName(rec.Name, address),
			Supplies:    batch,
		})
	}
	d.Record = rec
	return d
}

func displayName(name, address string) string {
	if name == "" {
		return address
	}
	return name
}
