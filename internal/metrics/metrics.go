// Package metrics provides a small, backend-agnostic abstraction for
// recording operational metrics from the ingestion pipeline.
//
// It exposes a narrow interface (Backend) and a global, pluggable backend
// that defaults to a no-op implementation, so metric calls are always safe
// even when no real backend is configured. Concrete systems (Prometheus
// Pushgateway) live in subpackages and are selected by the CLI.
package metrics

import "time"

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing one.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// RecordStep measures latency plus success/failure for a pipeline step
// (download, extract, ingest, ...).
func RecordStep(step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"step": step, "status": status}
	backend.IncCounter("cricstats_step_total", 1, lbls)
	backend.ObserveHistogram("cricstats_step_duration_seconds", d.Seconds(), lbls)
}

// RecordRows counts rows per target table and kind. Typical kinds:
//
//   - "batched":  rows handed to the insertion engine
//   - "inserted": rows the engine reported as written
func RecordRows(table, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	backend.IncCounter("cricstats_rows_total", float64(delta), Labels{
		"table": table,
		"kind":  kind,
	})
}

// RecordFile counts ingested match files by status ("ok" or "failed").
func RecordFile(status string) {
	backend.IncCounter("cricstats_files_total", 1, Labels{"status": status})
}
