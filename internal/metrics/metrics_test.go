package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/rooms/:id", "200"))

	RecordAPIRequest(http.MethodGet, "/api/rooms/:id", http.StatusOK, 12*time.Millisecond)
	RecordAPIRequest(http.MethodGet, "/api/rooms/:id", http.StatusOK, 3*time.Millisecond)

	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(http.MethodGet, "/api/rooms/:id", "200"))
	assert.Equal(t, before+2, after)
}

func TestRecordAPIRequestUnmatchedRoute(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404"))
	RecordAPIRequest(http.MethodGet, "", http.StatusNotFound, time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(APIRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "404")))
}

func TestTrackFeedSubscription(t *testing.T) {
	before := testutil.ToFloat64(FeedSubscriptions)
	TrackFeedSubscription(true)
	TrackFeedSubscription(true)
	TrackFeedSubscription(false)
	assert.Equal(t, before+1, testutil.ToFloat64(FeedSubscriptions))
	TrackFeedSubscription(false)
}

func TestRecordTimerCounters(t *testing.T) {
	starts := testutil.ToFloat64(TimerStarts.WithLabelValues("focus"))
	completions := testutil.ToFloat64(TimerCompletions.WithLabelValues("short_break"))

	RecordTimerStart("focus")
	RecordTimerCompletion("short_break")

	assert.Equal(t, starts+1, testutil.ToFloat64(TimerStarts.WithLabelValues("focus")))
	assert.Equal(t, completions+1, testutil.ToFloat64(TimerCompletions.WithLabelValues("short_break")))
}
