package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRun(t *testing.T) {
	c := NewCollector()

	c.ObserveRun(10, 7, map[string]int{"invalid_timestamp": 2, "invalid_position": 1}, 1, 6, 5*time.Millisecond)
	c.ObserveRun(3, 0, map[string]int{"invalid_timestamp": 3}, 0, 0, time.Millisecond)

	assert.Equal(t, 13.0, testutil.ToFloat64(c.RowsRead))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.PointsParsed))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.RowsDropped.WithLabelValues("invalid_timestamp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.RowsDropped.WithLabelValues("invalid_position")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.DuplicatesRemoved))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.TrajectoriesBuilt))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.EmptyResults))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.CacheHitInc()
	c.PublishErrInc()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "trackmap_cache_hits_total 1"))
	assert.True(t, strings.Contains(body, "trackmap_publish_errors_total 1"))
}

func TestObserveRequest(t *testing.T) {
	c := NewCollector()
	c.ObserveRequest("POST", "/v1/trajectories", 200, 20*time.Millisecond)
	c.ObserveRequest("POST", "/v1/trajectories", 400, time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(c.Requests))
}
