// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// The ingestion run is a batch job, so metrics are pushed to a Pushgateway
// at the end of the run rather than exposed on a scrape endpoint. All
// Prometheus-specific dependencies live here; the rest of the project
// depends only on metrics.Backend.
package prompush

import (
	"fmt"

	"github.com/rzagreb/cricstats/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter  *prometheus.CounterVec // cricstats_step_total
	stepDuration *prometheus.SummaryVec // cricstats_step_duration_seconds
	rowCounter   *prometheus.CounterVec // cricstats_rows_total
	fileCounter  *prometheus.CounterVec // cricstats_files_total
}

// NewBackend constructs a Pushgateway backend. jobName becomes the
// Pushgateway "job" grouping key.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "cricstats"
	}

	reg := prometheus.NewRegistry()

	stepCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cricstats_step_total",
			Help: "Total pipeline step executions, partitioned by step and status.",
		},
		[]string{"step", "status"},
	)
	stepDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "cricstats_step_duration_seconds",
			Help:       "Duration of pipeline steps in seconds, partitioned by step and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step", "status"},
	)
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cricstats_rows_total",
			Help: "Row counts per target table and kind (batched, inserted, deduped).",
		},
		[]string{"table", "kind"},
	)
	fileCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cricstats_files_total",
			Help: "Ingested match files by status.",
		},
		[]string{"status"},
	)

	for _, c := range []prometheus.Collector{stepCounter, stepDuration, rowCounter, fileCounter} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		stepCounter:  stepCounter,
		stepDuration: stepDuration,
		rowCounter:   rowCounter,
		fileCounter:  fileCounter,
	}, nil
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "cricstats_step_total":
		b.stepCounter.With(prometheus.Labels{
			"step":   labels["step"],
			"status": labels["status"],
		}).Add(delta)
	case "cricstats_rows_total":
		b.rowCounter.With(prometheus.Labels{
			"table": labels["table"],
			"kind":  labels["kind"],
		}).Add(delta)
	case "cricstats_files_total":
		b.fileCounter.With(prometheus.Labels{
			"status": labels["status"],
		}).Add(delta)
	}
	// Unknown names are dropped; the abstraction stays permissive.
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "cricstats_step_duration_seconds" {
		return
	}
	b.stepDuration.With(prometheus.Labels{
		"step":   labels["step"],
		"status": labels["status"],
	}).Observe(value)
}

// Flush pushes all collected metrics to the Pushgateway.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
