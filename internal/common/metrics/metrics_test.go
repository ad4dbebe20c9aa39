// Package metrics 提供 Prometheus 指标收集单元测试
package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	return New("test", reg, reg)
}

func TestNew(t *testing.T) {
	m := newTestMetrics()
	require.NotNil(t, m)
	assert.NotNil(t, m.httpRequestsTotal)
	assert.NotNil(t, m.importRowsTotal)
	assert.NotNil(t, m.paymentsTotal)
}

func TestGetMetrics_Lazy(t *testing.T) {
	defaultMetrics = nil
	m := GetMetrics()
	require.NotNil(t, m)
	assert.Same(t, m, GetMetrics())
}

func TestMetrics_BusinessCounters(t *testing.T) {
	m := newTestMetrics()

	m.RecordImportRow(ImportRowCreated)
	m.RecordImportRow(ImportRowCreated)
	m.RecordImportRow(ImportRowWarning)
	m.RecordPayment("STALL_FEE")
	m.RecordMerchantCreated("import")
	m.RecordLogin(true)
	m.RecordLogin(false)
	m.RecordLogin(false)
	m.ObserveImport(2 * time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.importRowsTotal.WithLabelValues(ImportRowCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importRowsTotal.WithLabelValues(ImportRowWarning)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paymentsTotal.WithLabelValues("STALL_FEE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.merchantsCreated.WithLabelValues("import")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginAttemptsTotal.WithLabelValues("failure")))
}

func TestMetrics_Middleware(t *testing.T) {
	m := newTestMetrics()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/api/admin/merchants/:id", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/metrics", m.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/merchants/5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/admin/merchants/:id", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.httpRequestsInFlight))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}
