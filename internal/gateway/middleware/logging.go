// Package middleware holds the gateway's http.Handler wrappers.
package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// RequestIDHeader carries the per-request id in both directions.
const RequestIDHeader = "X-Request-ID"

// HTTPObserver receives the latency of each routed request.
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, d time.Duration)
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging logs every request except health probes and reports its latency
// to obs when obs is non-nil. A request id is taken from the request header
// or generated, and echoed on the response.
func Logging(log zerolog.Logger, obs HTTPObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			latency := time.Since(start)
			route := routeName(r)
			if obs != nil {
				obs.ObserveHTTP(route, r.Method, wrapped.status, latency)
			}
			if route == "/api/v1/health" {
				return
			}

			ev := log.Info()
			if wrapped.status >= http.StatusInternalServerError {
				ev = log.Error()
			}
			ev.Str("request_id", reqID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", wrapped.status).
				Dur("latency", latency).
				Str("ip", clientIP(r)).
				Msg("HTTP request")
		})
	}
}

// routeName is the matched route template, which keeps metric label
// cardinality bounded.
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
