package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	FetchesTotal        *prometheus.CounterVec
	FetchDuration       prometheus.Histogram
	SnapshotsPersisted  prometheus.Counter
	ChangeEventsTotal   *prometheus.CounterVec
	StoreErrorsTotal    *prometheus.CounterVec
	Followers           prometheus.Gauge
	Following           prometheus.Gauge
	Posts               prometheus.Gauge
}

// New registers the metrics with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		FetchesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "profile_fetches_total",
			Help: "Profile snapshot attempts by result.",
		}, []string{"result", "reason"}), // result: live, cached
		FetchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "profile_fetch_duration_seconds",
			Help:    "Duration of profile snapshot attempts.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
		}),
		SnapshotsPersisted: f.NewCounter(prometheus.CounterOpts{
			Name: "snapshots_persisted_total",
			Help: "Snapshots appended to history.",
		}),
		ChangeEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "change_events_total",
			Help: "Change events recorded by type.",
		}, []string{"type"}),
		StoreErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Store operations that failed and were absorbed.",
		}, []string{"op"}),
		Followers: f.NewGauge(prometheus.GaugeOpts{
			Name: "profile_followers",
			Help: "Follower count of the latest persisted snapshot.",
		}),
		Following: f.NewGauge(prometheus.GaugeOpts{
			Name: "profile_following",
			Help: "Following count of the latest persisted snapshot.",
		}),
		Posts: f.NewGauge(prometheus.GaugeOpts{
			Name: "profile_posts",
			Help: "Post count of the latest persisted snapshot.",
		}),
	}
}

func (m *Metrics) IncFetch(result, reason string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(result, reason).Inc()
}

func (m *Metrics) ObserveFetch(seconds float64) {
	if m == nil {
		return
	}
	m.FetchDuration.Observe(seconds)
}

func (m *Metrics) IncStoreError(op string) {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) IncChangeEvent(eventType string) {
	if m == nil {
		return
	}
	m.ChangeEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordPersisted counts a persisted snapshot and updates the count gauges.
func (m *Metrics) RecordPersisted(followers, following, posts int64) {
	if m == nil {
		return
	}
	m.SnapshotsPersisted.Inc()
	m.Followers.Set(float64(followers))
	m.Following.Set(float64(following))
	m.Posts.Set(float64(posts))
}

func (m *Metrics) ObserveHTTP(method, path, status string, seconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(seconds)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}
