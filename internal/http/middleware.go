package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	actorKey
)

// RequestIDFrom returns the id assigned by WithRequestID
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// HTTPMetrics is satisfied by *metrics.Metrics
type HTTPMetrics interface {
	RecordHTTPRequest(method, path string, statusCode int, duration float64)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.bytes += n
	return n, err
}

// WithRequestID keeps an incoming X-Request-ID or assigns a new uuid
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// WithLogging logs every request; m may be nil
func WithLogging(logger *zap.Logger, m HTTPMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)

		// set by ServeMux on match; keeps metric cardinality bounded
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		if m != nil {
			m.RecordHTTPRequest(r.Method, pattern, rec.status, elapsed.Seconds())
		}

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Int("bytes", rec.bytes),
			zap.Duration("duration", elapsed),
			zap.String("request_id", RequestIDFrom(r.Context())),
		}
		if rec.status >= http.StatusInternalServerError {
			logger.Warn("HTTP request failed", fields...)
			return
		}
		logger.Debug("HTTP request", fields...)
	})
}

// Chain wraps the router with request id, logging and metrics
func Chain(h http.Handler, logger *zap.Logger, m HTTPMetrics) http.Handler {
	return WithRequestID(WithLogging(logger, m, h))
}
