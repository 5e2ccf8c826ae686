package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSent(t *testing.T) {
	before := testutil.ToFloat64(NotificationsSent.WithLabelValues("EMAIL"))
	RecordSent("EMAIL", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(NotificationsSent.WithLabelValues("EMAIL")))
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/campaigns/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/campaigns/abc", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(RequestDuration, "reengage_http_request_duration_seconds"))
}

func TestRecordDispatch(t *testing.T) {
	RecordDispatch("success", 20*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(DispatchDuration), 1)
}
