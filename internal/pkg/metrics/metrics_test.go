package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveScreening(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScreening(true, 3, 1, 200*time.Millisecond)
	m.ObserveScreening(false, 0, 0, 50*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Screenings.WithLabelValues("suspicious")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Screenings.WithLabelValues("clean")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Matches))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkippedNames))
}

func TestObserveWatchlistLoad(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveWatchlistLoad("archive", 120)
	m.ObserveWatchlistLoad("download", 130)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WatchlistLoads.WithLabelValues("download")))
	assert.Equal(t, 130.0, testutil.ToFloat64(m.IndexSize))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScreening(true, 1, 0, time.Second)
		m.ObserveWatchlistLoad("cache", 1)
	})
}
