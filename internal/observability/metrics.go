package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// zonal export pipeline.
type Metrics struct {
	FramesProcessed prometheus.Counter
	FramesSkipped   *prometheus.CounterVec // labels: reason={missing_band,missing_baseline}
	RowsEmitted     prometheus.Counter
	StoreRetries    prometheus.Counter
	EmptyRegions    prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Stage timing.
	ClimatologyBuildDuration prometheus.Histogram
	StageDuration            *prometheus.HistogramVec // labels: stage={derive,normalize,aggregate}
	RunDuration              prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		FramesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridmet_etl",
			Name:      "frames_processed_total",
			Help:      "Total raster frames that completed all requested stages.",
		}),
		FramesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gridmet_etl",
			Name:      "frames_skipped_total",
			Help:      "Frames dropped from the run by skip reason.",
		}, []string{"reason"}),
		RowsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridmet_etl",
			Name:      "rows_emitted_total",
			Help:      "Region-day summary rows produced.",
		}),
		StoreRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridmet_etl",
			Name:      "store_retries_total",
			Help:      "Raster store queries retried after a transient failure.",
		}),
		EmptyRegions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridmet_etl",
			Name:      "empty_regions_total",
			Help:      "Region-frame pairs with no intersecting pixels (emitted as NaN).",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "gridmet_etl",
			Name:      "pipeline_running",
			Help:      "1 while a batch run is active, 0 otherwise.",
		}),
		ClimatologyBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridmet_etl",
			Name:      "climatology_build_duration_seconds",
			Help:      "Duration of the full-history climatology reduction.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gridmet_etl",
			Name:      "stage_duration_seconds",
			Help:      "Per-frame processing duration by stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridmet_etl",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete batch invocation.",
			Buckets:   []float64{0.1, 1, 5, 15, 60, 300, 900, 1800},
		}),
	}

	prometheus.MustRegister(
		m.FramesProcessed,
		m.FramesSkipped,
		m.RowsEmitted,
		m.StoreRetries,
		m.EmptyRegions,
		m.PipelineRunning,
		m.ClimatologyBuildDuration,
		m.StageDuration,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		FramesProcessed:          prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gridmet_etl", Name: "frames_processed_total"}),
		FramesSkipped:            prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "gridmet_etl", Name: "frames_skipped_total"}, []string{"reason"}),
		RowsEmitted:              prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gridmet_etl", Name: "rows_emitted_total"}),
		StoreRetries:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gridmet_etl", Name: "store_retries_total"}),
		EmptyRegions:             prometheus.NewCounter(prometheus.CounterOpts{Namespace: "gridmet_etl", Name: "empty_regions_total"}),
		PipelineRunning:          prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "gridmet_etl", Name: "pipeline_running"}),
		ClimatologyBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "gridmet_etl", Name: "climatology_build_duration_seconds"}),
		StageDuration:            prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "gridmet_etl", Name: "stage_duration_seconds"}, []string{"stage"}),
		RunDuration:              prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "gridmet_etl", Name: "run_duration_seconds"}),
	}
}
