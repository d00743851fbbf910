package monitor

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heptiolabs/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/styleshift/internal/metrics"
)

func newTestData(t *testing.T) *ServiceData {
	t.Helper()
	c, err := metrics.NewCollector()
	require.NoError(t, err)
	return NewServiceData(0, c, nil)
}

func testCode(t *testing.T, data *ServiceData, req *http.Request, code int) *httptest.ResponseRecorder {
	t.Helper()
	resp := httptest.NewRecorder()
	NewRouter(data).ServeHTTP(resp, req)
	assert.Equal(t, code, resp.Code)
	return resp
}

func TestWrongPath(t *testing.T) {
	testCode(t, newTestData(t), httptest.NewRequest("GET", "/invalid", nil), 404)
	testCode(t, newTestData(t), httptest.NewRequest("POST", "/metrics", nil), 405)
}

func TestReturnsGet(t *testing.T) {
	testCode(t, newTestData(t), httptest.NewRequest("GET", "/metrics", nil), 200)
	testCode(t, newTestData(t), httptest.NewRequest("GET", "/live", nil), 200)
	testCode(t, newTestData(t), httptest.NewRequest("GET", "/ready", nil), 200)
}

func TestMetricsBody(t *testing.T) {
	data := newTestData(t)
	data.Collector.SetEpoch(2)
	resp := testCode(t, data, httptest.NewRequest("GET", "/metrics", nil), 200)
	assert.Contains(t, resp.Body.String(), "styleshift_epoch 2")
}

func TestReadyFails(t *testing.T) {
	data := newTestData(t)
	data.Health.AddReadinessCheck("trainer", func() error { return errors.New("not started") })
	testCode(t, data, httptest.NewRequest("GET", "/ready", nil), 503)
	testCode(t, data, httptest.NewRequest("GET", "/live", nil), 200)
}

func TestNoHealth(t *testing.T) {
	data := &ServiceData{Health: nil, Collector: nil}
	testCode(t, data, httptest.NewRequest("GET", "/live", nil), 404)
	data.Health = healthcheck.NewHandler()
	testCode(t, data, httptest.NewRequest("GET", "/live", nil), 200)
}
