package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for screening runs and watchlist loads.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Completed runs by outcome: "clean" or "suspicious"
	Screenings *prometheus.CounterVec

	// Full run latency
	ScreeningLatency prometheus.Histogram

	// Evidence rows produced
	Matches prometheus.Counter

	// Officer names refused by the token bound
	SkippedNames prometheus.Counter

	// Watchlist loads by source
	WatchlistLoads *prometheus.CounterVec

	// Distinct names in the active identity index
	IndexSize prometheus.Gauge
}

// New creates a Metrics instance registered with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Screenings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_screenings_total",
			Help: "Total screening runs by outcome",
		}, []string{"outcome"}),

		ScreeningLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sanctions_screening_duration_seconds",
			Help:    "Duration of a full screening run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		Matches: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctions_matches_total",
			Help: "Total match evidence rows produced",
		}),

		SkippedNames: f.NewCounter(prometheus.CounterOpts{
			Name: "sanctions_skipped_names_total",
			Help: "Officer names skipped for exceeding the token bound",
		}),

		WatchlistLoads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sanctions_watchlist_loads_total",
			Help: "Watchlist loads by source",
		}, []string{"source"}), // source: "cache", "archive", "download"

		IndexSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "sanctions_watchlist_index_names",
			Help: "Distinct names in the most recently loaded identity index",
		}),
	}
}

// ObserveScreening records one completed run
func (m *Metrics) ObserveScreening(suspicious bool, matches, skipped int, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "clean"
	if suspicious {
		outcome = "suspicious"
	}
	m.Screenings.WithLabelValues(outcome).Inc()
	m.ScreeningLatency.Observe(d.Seconds())
	m.Matches.Add(float64(matches))
	m.SkippedNames.Add(float64(skipped))
}

// ObserveWatchlistLoad records a successful watchlist load
func (m *Metrics) ObserveWatchlistLoad(source string, indexSize int) {
	if m == nil {
		return
	}
	m.WatchlistLoads.WithLabelValues(source).Inc()
	m.IndexSize.Set(float64(indexSize))
}
