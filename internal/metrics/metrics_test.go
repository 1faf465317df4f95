package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersRecordLabels(t *testing.T) {
	m := New()

	m.RealtimeEvent("admin", "new_notification")
	m.RealtimeEvent("admin", "new_notification")
	m.ConnectionTransition("merchant", "error")
	m.CacheLookup("notifications", LookupHit)
	m.Fetch("notifications", errors.New("boom"))
	m.Mutation("mark_read", nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.realtimeEvents.WithLabelValues("admin", "new_notification")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connectionChanges.WithLabelValues("merchant", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("notifications", LookupHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fetches.WithLabelValues("notifications", OutcomeFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("mark_read", OutcomeSuccess)))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RealtimeEvent("admin", "x")
	m.ConnectionTransition("admin", "connected")
	m.CacheLookup("k", LookupMiss)
	m.Fetch("k", nil)
	m.Mutation("delete", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New()
	m.Mutation("delete", nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "giftcard_console_mutations_total"))
}
