package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusrooms_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "focusrooms_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Timer
	TimerStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusrooms_timer_starts_total",
			Help: "Total number of phases started",
		},
		[]string{"phase"},
	)

	TimerCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusrooms_timer_completions_total",
			Help: "Total number of phases that counted down to zero",
		},
		[]string{"phase"},
	)

	SessionsAbandoned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "focusrooms_sessions_abandoned_total",
			Help: "Total number of open session records closed as abandoned",
		},
	)

	SessionWriteErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusrooms_session_write_errors_total",
			Help: "Total number of failed session record writes",
		},
		[]string{"operation"},
	)

	// Change feed
	FeedPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusrooms_feed_published_total",
			Help: "Total number of change events published",
		},
		[]string{"table", "type"},
	)

	FeedDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusrooms_feed_dropped_total",
			Help: "Total number of change events dropped for slow subscribers",
		},
		[]string{"table"},
	)

	FeedSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusrooms_feed_subscriptions",
			Help: "Current number of open change feed subscriptions",
		},
	)

	// Live views
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusrooms_live_connections",
			Help: "Current number of open live room connections",
		},
	)

	ActivityEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusrooms_activity_entries_total",
			Help: "Total number of activity lines derived from change events",
		},
		[]string{"type"},
	)
)

// RecordAPIRequest records one HTTP request. route is the matched gin path
// template so that ids do not explode label cardinality.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func RecordTimerStart(phase string) {
	TimerStarts.WithLabelValues(phase).Inc()
}

func RecordTimerCompletion(phase string) {
	TimerCompletions.WithLabelValues(phase).Inc()
}

func RecordSessionAbandoned() {
	SessionsAbandoned.Inc()
}

func RecordSessionWriteError(operation string) {
	SessionWriteErrors.WithLabelValues(operation).Inc()
}

func RecordFeedPublish(table, changeType string) {
	FeedPublished.WithLabelValues(table, changeType).Inc()
}

func RecordFeedDrop(table string) {
	FeedDropped.WithLabelValues(table).Inc()
}

func TrackFeedSubscription(inc bool) {
	if inc {
		FeedSubscriptions.Inc()
	} else {
		FeedSubscriptions.Dec()
	}
}

func TrackLiveConnection(inc bool) {
	if inc {
		LiveConnections.Inc()
	} else {
		LiveConnections.Dec()
	}
}

func RecordActivity(activityType string) {
	ActivityEntries.WithLabelValues(activityType).Inc()
}
