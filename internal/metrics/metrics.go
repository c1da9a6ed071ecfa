package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "filevault_http_requests_total",
		Help: "HTTP requests processed, by method, route and status.",
	}, []string{"method", "route", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filevault_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// UploadsTotal counts accepted file uploads.
	UploadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "filevault_uploads_total",
		Help: "Files accepted into storage.",
	})

	// ShareRedemptionsTotal counts successful share-link redemptions.
	ShareRedemptionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "filevault_share_redemptions_total",
		Help: "Share tokens successfully redeemed.",
	})

	// QuotaRejectionsTotal counts uploads rejected by the quota ledger.
	QuotaRejectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "filevault_quota_rejections_total",
		Help: "Uploads rejected because the account quota was exhausted.",
	})
)

// InitMetrics registers the collectors. Safe to call more than once.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(requestsTotal, requestDuration,
			UploadsTotal, ShareRedemptionsTotal, QuotaRejectionsTotal)
	})
}

// Middleware records request counts and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		requestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}
