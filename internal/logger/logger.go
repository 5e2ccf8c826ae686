package logger

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Logger wraps logrus logger
type Logger struct {
	*logrus.Logger
	service string
}

// New creates a JSON logger for the named service at the given level.
func New(serviceName, level string) *Logger {
	return NewWithOutput(serviceName, level, os.Stdout)
}

func NewWithOutput(serviceName, level string, out io.Writer) *Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	})
	log.SetOutput(out)

	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	return &Logger{Logger: log, service: serviceName}
}

// Entry returns an entry carrying the service field.
func (l *Logger) Entry() *logrus.Entry {
	return l.WithField("service", l.service)
}

// WithRequestID adds request ID to logger
func (l *Logger) WithRequestID(requestID string) *logrus.Entry {
	return l.Entry().WithField("request_id", requestID)
}

// Middleware logs one line per HTTP request.
func (l *Logger) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		entry := l.WithRequestID(middleware.GetReqID(r.Context())).WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
		if ww.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request completed")
	})
}

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}
