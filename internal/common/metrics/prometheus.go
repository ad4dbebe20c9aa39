// Package metrics 提供 Prometheus 指标收集
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 导入行结果标签
const (
	ImportRowCreated  = "created"
	ImportRowWarning  = "warning"
	ImportRowRejected = "rejected"
)

// Metrics 指标收集器
type Metrics struct {
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge
	importRowsTotal      *prometheus.CounterVec
	importDuration       prometheus.Histogram
	paymentsTotal        *prometheus.CounterVec
	merchantsCreated     *prometheus.CounterVec
	loginAttemptsTotal   *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

var defaultMetrics *Metrics

// Init 在默认注册表上初始化指标收集器
func Init(namespace string) *Metrics {
	defaultMetrics = New(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	return defaultMetrics
}

// New 在指定注册表上创建指标收集器
func New(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	if namespace == "" {
		namespace = "market_merchant"
	}
	factory := promauto.With(reg)

	return &Metrics{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		httpRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),
		importRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_rows_total",
				Help:      "Spreadsheet rows processed by the merchant importer",
			},
			[]string{"result"},
		),
		importDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_duration_seconds",
				Help:      "Duration of a whole spreadsheet import",
				Buckets:   []float64{.1, .5, 1, 5, 15, 30, 60, 120},
			},
		),
		paymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total number of recorded payments",
			},
			[]string{"type"},
		),
		merchantsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "merchants_created_total",
				Help:      "Merchants created, by source",
			},
			[]string{"source"},
		),
		loginAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "admin_login_attempts_total",
				Help:      "Admin login attempts",
			},
			[]string{"result"},
		),
		gatherer: gatherer,
	}
}

// GetMetrics 获取默认指标收集器，未初始化时使用独立注册表，避免重复注册
func GetMetrics() *Metrics {
	if defaultMetrics == nil {
		reg := prometheus.NewRegistry()
		defaultMetrics = New("", reg, reg)
	}
	return defaultMetrics
}

// Middleware 返回 Gin 中间件
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		m.httpRequestsInFlight.Inc()

		c.Next()

		m.httpRequestsInFlight.Dec()
		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path).Observe(duration)
	}
}

// Handler 返回 Prometheus HTTP 处理器
func (m *Metrics) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordImportRow 记录导入行结果
func (m *Metrics) RecordImportRow(result string) {
	m.importRowsTotal.WithLabelValues(result).Inc()
}

// ObserveImport 记录一次导入耗时
func (m *Metrics) ObserveImport(d time.Duration) {
	m.importDuration.Observe(d.Seconds())
}

// RecordPayment 记录缴费
func (m *Metrics) RecordPayment(paymentType string) {
	m.paymentsTotal.WithLabelValues(paymentType).Inc()
}

// RecordMerchantCreated 记录新建商户，source 为 api 或 import
func (m *Metrics) RecordMerchantCreated(source string) {
	m.merchantsCreated.WithLabelValues(source).Inc()
}

// RecordLogin 记录登录结果
func (m *Metrics) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	m.loginAttemptsTotal.WithLabelValues(result).Inc()
}
