package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP latency per route pattern.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reengage",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)

	// DispatchDuration tracks how long a campaign dispatch takes end to end.
	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "reengage",
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of campaign dispatches in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"}, // success or failure
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "reengage",
			Name:      "notifications_sent_total",
			Help:      "Notifications recorded by campaign dispatches",
		},
		[]string{"channel"},
	)
)

// RecordDispatch records the outcome of one dispatch.
func RecordDispatch(status string, duration time.Duration) {
	DispatchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func RecordSent(channel string, n int) {
	NotificationsSent.WithLabelValues(channel).Add(float64(n))
}

// Middleware observes request durations labelled by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		RequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
