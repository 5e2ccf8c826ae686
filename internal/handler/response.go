// internal/handler/response.go
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	appErrors "github.com/unclebandit/reengage-backend/internal/errors"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, log *logrus.Entry, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func OK(w http.ResponseWriter, log *logrus.Entry, data interface{}) {
	JSON(w, log, http.StatusOK, data)
}

func Created(w http.ResponseWriter, log *logrus.Entry, data interface{}) {
	JSON(w, log, http.StatusCreated, data)
}

func Error(w http.ResponseWriter, log *logrus.Entry, status int, message string) {
	JSON(w, log, status, ErrorResponse{Error: message})
}

// WriteError maps service errors onto status codes. Anything unrecognised is
// logged and reported as a generic 500.
func WriteError(w http.ResponseWriter, log *logrus.Entry, err error) {
	switch {
	case appErrors.IsValidation(err):
		Error(w, log, http.StatusBadRequest, err.Error())
	case appErrors.IsNotFound(err):
		Error(w, log, http.StatusNotFound, err.Error())
	default:
		log.WithError(err).Error("internal error")
		Error(w, log, http.StatusInternalServerError, "internal server error")
	}
}

// Decode reads the JSON body into dst, answering 400 on malformed input.
func Decode(w http.ResponseWriter, r *http.Request, log *logrus.Entry, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		Error(w, log, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// 1x1 transparent GIF
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Pixel serves the tracking image with caching disabled.
func Pixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(transparentGIF)
}
