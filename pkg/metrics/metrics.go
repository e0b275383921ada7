// Package metrics counts what the pipeline read, wrote and broke, and dumps
// the counters to a node-exporter style textfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wdm0006/smudge/pkg/asset"
)

const namespace = "smudge"

type Metrics struct {
	reg         *prometheus.Registry
	rowsRead    *prometheus.CounterVec
	rowsWritten *prometheus.CounterVec
	defects     *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
}

// New returns metrics bound to a fresh registry.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		rowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows loaded from storage, by asset.",
		}, []string{"asset"}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_written_total",
			Help:      "Rows written to storage, by asset.",
		}, []string{"asset"}),
		defects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "defects_injected_total",
			Help:      "Cells changed by defect injection, by category.",
		}, []string{"category"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of one asset materialization.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"asset"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "materializations_total",
			Help:      "Asset materializations, by asset and outcome.",
		}, []string{"asset", "status"}),
	}
	m.reg.MustRegister(m.rowsRead, m.rowsWritten, m.defects, m.duration, m.runs)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

func (m *Metrics) RowsRead(assetName string, n int) {
	m.rowsRead.WithLabelValues(assetName).Add(float64(n))
}

func (m *Metrics) RowsWritten(assetName string, n int) {
	m.rowsWritten.WithLabelValues(assetName).Add(float64(n))
}

// Defects adds per-category cell counts.
func (m *Metrics) Defects(counts map[string]int) {
	for cat, n := range counts {
		m.defects.WithLabelValues(cat).Add(float64(n))
	}
}

// Observe is an asset.Definitions hook.
func (m *Metrics) Observe(mat asset.Materialization) {
	status := "ok"
	if mat.Err != nil {
		status = "failed"
	}
	m.duration.WithLabelValues(mat.Asset).Observe(mat.Duration.Seconds())
	m.runs.WithLabelValues(mat.Asset, status).Inc()
}

// WriteTextfile writes the current values in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dirs: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
