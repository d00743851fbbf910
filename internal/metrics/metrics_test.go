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

func newTestCollector(t *testing.T) *Collector {
	t.Helper()
	c, err := NewCollector()
	require.NoError(t, err)
	return c
}

func TestObserveUpdate(t *testing.T) {
	c := newTestCollector(t)
	c.ObserveUpdate(0, 3.5, 0.7, -0.3, 20*time.Millisecond)
	c.ObserveUpdate(1, 2.5, 0.6, -0.2, 10*time.Millisecond)
	c.ObserveUpdate(1, 1.5, 0.5, -0.1, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.updates.WithLabelValues("0")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.updates.WithLabelValues("1")))
	assert.Equal(t, 1.5, testutil.ToFloat64(c.cost.WithLabelValues("1")))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.classCost))
	assert.Equal(t, -0.1, testutil.ToFloat64(c.entropy))
	assert.Equal(t, 1, testutil.CollectAndCount(c.updateDur))
}

func TestCounters(t *testing.T) {
	c := newTestCollector(t)
	c.SkipBatch()
	c.SetValidation(12.5)
	c.SetEpoch(4)
	c.Checkpoint("best")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.skipped))
	assert.Equal(t, 12.5, testutil.ToFloat64(c.validErr))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.epoch))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.checkpoint.WithLabelValues("best")))
}

func TestNilCollector(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveUpdate(0, 1, 1, 1, time.Second)
		c.SkipBatch()
		c.SetValidation(1)
		c.SetEpoch(1)
		c.Checkpoint("latest")
	})
}

func TestHandler(t *testing.T) {
	c := newTestCollector(t)
	c.SetValidation(3)

	resp := httptest.NewRecorder()
	c.Handler().ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), "styleshift_validation_error 3"))
}
