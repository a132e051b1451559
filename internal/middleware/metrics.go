package middleware

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "rankreport"

var (
	requestCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"method", "route", "code"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2.5, 9),
	}, []string{"method", "route"})

	inFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "http_in_flight_requests",
		Help:      "Requests currently being served.",
	})

	dbPool = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "db_pool_connections",
		Help:      "Database pool connections by state.",
	}, []string{"state"})
)

// Metrics records request count, latency and concurrency.
// /metrics and /health are not counted.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.URL.Path {
		case "/metrics", "/health":
			c.Next()
			return
		}

		inFlight.Inc()
		defer inFlight.Dec()
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestCount.WithLabelValues(c.Request.Method, route, statusClass(c.Writer.Status())).Inc()
		requestLatency.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// statusClass collapses a status code to 2xx/4xx/5xx
func statusClass(status int) string {
	return strconv.Itoa(status/100) + "xx"
}

// MetricsHandler serves the Prometheus registry
func MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

// ObserveDBPool samples pool usage until stop is closed
func ObserveDBPool(db *sql.DB, every time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s := db.Stats()
			dbPool.WithLabelValues("in_use").Set(float64(s.InUse))
			dbPool.WithLabelValues("idle").Set(float64(s.Idle))
			dbPool.WithLabelValues("open").Set(float64(s.OpenConnections))
		}
	}
}
