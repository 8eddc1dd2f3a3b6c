package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// analysis service.
type Metrics struct {
	AnalysesCompleted prometheus.Counter
	AnalysisErrors    prometheus.Counter
	ReportsPublished  prometheus.Counter
	AnalysisRunning   prometheus.Gauge

	AnalysisDuration prometheus.Histogram

	// Per-period pipeline metrics.
	ScenesComposited   prometheus.Counter
	EmptyCollections   prometheus.Counter
	ZonalCoarsenings   prometheus.Counter
	ThresholdFallbacks prometheus.Counter

	// HotspotArea tracks the most recent hotspot area in hectares, labeled
	// by analysis period.
	HotspotArea *prometheus.GaugeVec
}

// NewMetrics creates and registers all analysis metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		AnalysesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heat_island",
			Name:      "analyses_completed_total",
			Help:      "Total multi-period analyses completed.",
		}),
		AnalysisErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heat_island",
			Name:      "analysis_errors_total",
			Help:      "Total analysis runs that failed.",
		}),
		ReportsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heat_island",
			Name:      "reports_published_total",
			Help:      "Total analysis reports published to the sink.",
		}),
		AnalysisRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "heat_island",
			Name:      "analysis_running",
			Help:      "1 when the analysis runner is active, 0 when shut down.",
		}),
		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "heat_island",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of a complete multi-period analysis.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		ScenesComposited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heat_island",
			Name:      "scenes_composited_total",
			Help:      "Total satellite scenes fed into temporal composites.",
		}),
		EmptyCollections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heat_island",
			Name:      "empty_collections_total",
			Help:      "Analysis periods that matched zero usable scenes.",
		}),
		ZonalCoarsenings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heat_island",
			Name:      "zonal_coarsenings_total",
			Help:      "Zonal reductions that coarsened their sampling scale to fit the budget.",
		}),
		ThresholdFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heat_island",
			Name:      "threshold_fallbacks_total",
			Help:      "Threshold extractions that fell back to the first zonal entry.",
		}),
		HotspotArea: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "heat_island",
			Name:      "hotspot_area_hectares",
			Help:      "Hotspot area of the most recent analysis, by period.",
		}, []string{"period"}),
	}

	prometheus.MustRegister(
		m.AnalysesCompleted,
		m.AnalysisErrors,
		m.ReportsPublished,
		m.AnalysisRunning,
		m.AnalysisDuration,
		m.ScenesComposited,
		m.EmptyCollections,
		m.ZonalCoarsenings,
		m.ThresholdFallbacks,
		m.HotspotArea,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		AnalysesCompleted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "heat_island", Name: "analyses_completed_total"}),
		AnalysisErrors:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "heat_island", Name: "analysis_errors_total"}),
		ReportsPublished:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "heat_island", Name: "reports_published_total"}),
		AnalysisRunning:    prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "heat_island", Name: "analysis_running"}),
		AnalysisDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "heat_island", Name: "analysis_duration_seconds"}),
		ScenesComposited:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "heat_island", Name: "scenes_composited_total"}),
		EmptyCollections:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "heat_island", Name: "empty_collections_total"}),
		ZonalCoarsenings:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "heat_island", Name: "zonal_coarsenings_total"}),
		ThresholdFallbacks: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "heat_island", Name: "threshold_fallbacks_total"}),
		HotspotArea:        prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "heat_island", Name: "hotspot_area_hectares"}, []string{"period"}),
	}
}
