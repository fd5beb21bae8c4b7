package monitor

import (
	"time"

	"github.com/ogulcanaydogan/printguard/pkg/engine"
	"github.com/ogulcanaydogan/printguard/pkg/model"
)

// SupplyView is one row of the per-device supply report: what is left and
// whether it should be ordered.
type SupplyView struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Remaining  string `json:"remaining"`
	NeedsOrder bool   `json:"needs_order"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
}

// DeviceResult is what one run learned and decided about one printer.
type DeviceResult struct {
	Address    string              `json:"address"`
	Name       string              `json:"name"`
	Model      string              `json:"model,omitempty"`
	Reachable  bool                `json:"reachable"`
	DaysSilent int                 `json:"days_silent,omitempty"`
	Supplies   []SupplyView        `json:"supplies,omitempty"`
	Intents    []model.AlertIntent `json:"intents,omitempty"`
}

// Summary describes a completed run.
type Summary struct {
	RunID            string         `json:"run_id"`
	Started          time.Time      `json:"started"`
	Finished         time.Time      `json:"finished"`
	Devices          []DeviceResult `json:"devices"`
	Alerts           int            `json:"alerts"`
	DeliveryFailures int            `json:"delivery_failures"`
}

// Reachable returns how many devices answered the probe.
func (s *Summary) Reachable() int {
	n := 0
	for _, d := range s.Devices {
		if d.Reachable {
			n++
		}
	}
	return n
}

func supplyViews(statuses []engine.SupplyStatus) []SupplyView {
	if len(statuses) == 0 {
		return nil
	}
	views := make([]SupplyView, 0, len(statuses))
	for _, s := range statuses {
		v := SupplyView{
			Index:   s.Reading.Index,
			Name:    s.Reading.Name,
			Outcome: string(s.Outcome),
		}
		if s.Reading.Err != nil {
			v.Error = s.Reading.Err.Error()
		} else if s.Evaluation.Percent != nil {
			v.Remaining = s.Evaluation.Percent.String()
			v.NeedsOrder = s.Evaluation.NeedsOrder
		}
		views = append(views, v)
	}
	return views
}
