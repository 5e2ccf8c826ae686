package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RedactEmail(tt.in))
	}
}

func TestLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("reengage", "info", &buf)

	log.Entry().WithField("campaign_id", "c1").Info("dispatched")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "dispatched", line["message"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "reengage", line["service"])
	assert.Equal(t, "c1", line["campaign_id"])
}

func TestMiddlewareLogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("reengage", "warn", &buf)

	h := log.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/campaigns", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request failed", line["message"])
	assert.Equal(t, "/campaigns", line["path"])
	assert.EqualValues(t, 500, line["status"])
}
