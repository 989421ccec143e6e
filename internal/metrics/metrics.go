// Package metrics holds the Prometheus collectors of the bot.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UploadsTotal counts registered uploads by media kind
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebot_uploads_total",
		Help: "Number of registered uploads",
	}, []string{"kind"})

	// DownloadsTotal counts deep-link resolutions by outcome
	DownloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebot_downloads_total",
		Help: "Number of download attempts",
	}, []string{"outcome"})

	// RedemptionsTotal counts redeem attempts by outcome
	RedemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebot_redemptions_total",
		Help: "Number of redeem attempts",
	}, []string{"outcome"})

	// BroadcastDeliveries counts broadcast fan-out results
	BroadcastDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebot_broadcast_deliveries_total",
		Help: "Number of broadcast deliveries",
	}, []string{"result"})

	// GatewayErrors counts failed messaging calls by operation
	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebot_gateway_errors_total",
		Help: "Number of failed messaging platform calls",
	}, []string{"op"})

	// UpdatesTotal counts inbound updates by type
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebot_updates_total",
		Help: "Number of inbound updates",
	}, []string{"type"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "filebot_http_requests_total",
		Help: "Number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "filebot_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Middleware records request count and duration, labelled by the chi route
// pattern to keep cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
