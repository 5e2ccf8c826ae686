package handler

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	appErrors "github.com/unclebandit/reengage-backend/internal/errors"
)

func discardLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", appErrors.NewValidation("Missing required fields"), http.StatusBadRequest, `{"error":"Missing required fields"}`},
		{"not found", appErrors.NewCampaignNotFound("abc"), http.StatusNotFound, `{"error":"Campaign not found"}`},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, `{"error":"internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, discardLog(), tt.err)
			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
			assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	var dst struct{ Name string }
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))

	assert.False(t, Decode(w, r, discardLog(), &dst))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPixel(t *testing.T) {
	w := httptest.NewRecorder()
	Pixel(w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	assert.True(t, strings.HasPrefix(w.Body.String(), "GIF89a"))
}
