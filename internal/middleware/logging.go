// Package middleware provides HTTP middleware for the webhook and ops
// endpoints.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ru2chhw/confbot/pkg/logger"
	"github.com/ru2chhw/confbot/pkg/metrics"
)

// CorrelationIDHeader carries the correlation id in and out of a request.
const CorrelationIDHeader = "X-Correlation-ID"

const redacted = "<redacted>"

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Logging creates request logging middleware. Every occurrence of a
// secret in the request path is masked in logs and metric labels; the
// webhook path embeds the bot token.
func Logging(log *logger.Logger, secrets ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			correlationID := r.Header.Get(CorrelationIDHeader)
			if correlationID == "" {
				correlationID = uuid.New().String()
			}

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			wrapped.Header().Set(CorrelationIDHeader, correlationID)

			r = r.WithContext(logger.ContextWithCorrelationID(r.Context(), correlationID))
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			path := redact(r.URL.Path, secrets)

			log.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", path),
				zap.Int("status", wrapped.statusCode),
				zap.Int64("bytes", wrapped.written),
				zap.Duration("duration", duration),
				zap.String("correlation_id", correlationID),
				zap.String("remote_addr", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
			)

			metrics.RecordRequest(r.Method, routeLabel(r, secrets), http.StatusText(wrapped.statusCode), duration.Seconds())
		})
	}
}

// routeLabel prefers the matched chi pattern so unknown paths do not
// create new label values.
func routeLabel(r *http.Request, secrets []string) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return redact(pattern, secrets)
		}
	}
	return "unmatched"
}

func redact(s string, secrets []string) string {
	for _, secret := range secrets {
		if secret != "" {
			s = strings.ReplaceAll(s, secret, redacted)
		}
	}
	return s
}
