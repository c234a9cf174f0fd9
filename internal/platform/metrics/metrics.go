// Package metrics holds the Prometheus instruments of the report job.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns a dedicated Prometheus registry and the job metrics.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	StageDuration    *prometheus.HistogramVec
	ReportRows       prometheus.Gauge
	DatesRecorded    prometheus.Counter
	LastSuccess      prometheus.Gauge
	SourceObjects    prometheus.Counter
	WatermarkLookups *prometheus.CounterVec
}

// NewRegistry creates and registers all metrics, plus the Go and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xetra_etl_runs_total",
				Help: "Pipeline runs by final state",
			},
			[]string{"state"},
		),

		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "xetra_etl_run_duration_seconds",
				Help:    "Wall time of a pipeline run in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "xetra_etl_stage_duration_seconds",
				Help:    "Wall time of each pipeline stage in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"stage"},
		),

		ReportRows: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "xetra_etl_report_rows",
				Help: "Rows in the most recently written report",
			},
		),

		DatesRecorded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "xetra_etl_dates_recorded_total",
				Help: "Source dates appended to the watermark ledger",
			},
		),

		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "xetra_etl_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
		),

		SourceObjects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "xetra_etl_source_objects_read_total",
				Help: "Raw source objects read during extraction",
			},
		),

		WatermarkLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "xetra_etl_watermark_lookups_total",
				Help: "Watermark lookups by cache result",
			},
			[]string{"result"},
		),
	}

	r.reg.MustRegister(
		r.RunsTotal,
		r.RunDuration,
		r.StageDuration,
		r.ReportRows,
		r.DatesRecorded,
		r.LastSuccess,
		r.SourceObjects,
		r.WatermarkLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// ObserveRun records the outcome of one run.
func (r *Registry) ObserveRun(state string, d time.Duration, rows, recorded int, finishedAt time.Time) {
	r.RunsTotal.WithLabelValues(state).Inc()
	r.RunDuration.Observe(d.Seconds())
	if state != "DONE" {
		return
	}
	r.ReportRows.Set(float64(rows))
	r.DatesRecorded.Add(float64(recorded))
	r.LastSuccess.Set(float64(finishedAt.Unix()))
}

// ObserveStage records how long one pipeline stage took.
func (r *Registry) ObserveStage(stage string, d time.Duration) {
	r.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SourceObjectRead counts one raw object read.
func (r *Registry) SourceObjectRead() { r.SourceObjects.Inc() }

// WatermarkLookup counts a watermark lookup as "hit" or "miss".
func (r *Registry) WatermarkLookup(result string) {
	r.WatermarkLookups.WithLabelValues(result).Inc()
}
