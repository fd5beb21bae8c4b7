package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ogulcanaydogan/printguard/pkg/engine"
	"github.com/ogulcanaydogan/printguard/pkg/model"
	"github.com/ogulcanaydogan/printguard/pkg/supply"
)

// Recorder owns a private registry with the printguard collectors.
type Recorder struct {
	registry *prometheus.Registry

	DeviceUp           *prometheus.GaugeVec
	DeviceDaysSilent   *prometheus.GaugeVec
	SupplyPercent      *prometheus.GaugeVec
	SupplyNeedsOrder   *prometheus.GaugeVec
	AlertsTotal        *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec
	RunDuration        prometheus.Histogram
	LastRunTimestamp   prometheus.Gauge
	RunsTotal          prometheus.Counter
}

// NewRecorder registers all collectors on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// Device metrics
		DeviceUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "printguard_device_up",
				Help: "Whether the printer answered the reachability probe in the last run",
			},
			[]string{"address", "name"},
		),
		DeviceDaysSilent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "printguard_device_days_silent",
				Help: "Days since the printer was last seen",
			},
			[]string{"address"},
		),

		// Supply metrics
		SupplyPercent: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "printguard_supply_percent",
				Help: "Remaining supply percentage; negative values are device sentinels",
			},
			[]string{"address", "supply"},
		),
		SupplyNeedsOrder: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "printguard_supply_needs_order",
				Help: "Whether the supply is below the order threshold",
			},
			[]string{"address", "supply"},
		),

		// Alert metrics
		AlertsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "printguard_alerts_total",
				Help: "Total number of alerts raised",
			},
			[]string{"kind"}, // kind: offline, toner
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "printguard_notifications_total",
				Help: "Total number of alert deliveries per notifier",
			},
			[]string{"notifier", "status"}, // status: success, failed
		),

		// Run metrics
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "printguard_run_duration_seconds",
				Help:    "Time taken to check the whole inventory",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
		),
		LastRunTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "printguard_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
		RunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "printguard_runs_total",
				Help: "Total number of completed runs",
			},
		),
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveDecision records device and supply state for one evaluated device.
func (r *Recorder) ObserveDecision(address string, reachable bool, d engine.Decision) {
	r.DeviceUp.DeletePartialMatch(prometheus.Labels{"address": address})
	up := 0.0
	if reachable {
		up = 1
	}
	r.DeviceUp.WithLabelValues(address, d.Record.Name).Set(up)
	r.DeviceDaysSilent.WithLabelValues(address).Set(float64(d.DaysSilent))

	if !reachable {
		return
	}

	r.SupplyPercent.DeletePartialMatch(prometheus.Labels{"address": address})
	r.SupplyNeedsOrder.DeletePartialMatch(prometheus.Labels{"address": address})
	for _, s := range d.Supplies {
		if s.Outcome == engine.SupplyNoData {
			continue
		}
		if n, ok := s.Evaluation.Percent.(supply.Numeric); ok {
			r.SupplyPercent.WithLabelValues(address, s.Reading.Name).Set(float64(n))
		}
		order := 0.0
		if s.Evaluation.NeedsOrder {
			order = 1
		}
		r.SupplyNeedsOrder.WithLabelValues(address, s.Reading.Name).Set(order)
	}
}

// AlertRaised counts an alert intent.
func (r *Recorder) AlertRaised(kind model.AlertKind) {
	r.AlertsTotal.WithLabelValues(string(kind)).Inc()
}

// NotificationSent counts one delivery attempt.
func (r *Recorder) NotificationSent(notifier string, err error) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	r.NotificationsTotal.WithLabelValues(notifier, status).Inc()
}

// RunCompleted records the duration and end time of a run.
func (r *Recorder) RunCompleted(finished time.Time, took time.Duration) {
	r.RunDuration.Observe(took.Seconds())
	r.LastRunTimestamp.Set(float64(finished.Unix()))
	r.RunsTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the registry for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
