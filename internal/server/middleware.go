package server

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/malbeclabs/databricks-mcp/internal/metrics"
)

// authMiddleware requires a bearer token from cfg.AllowedTokens.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.unauthorized(w, "missing_header", "missing authorization header")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			s.unauthorized(w, "invalid_format", "invalid authorization header format")
			return
		}

		token = strings.TrimSpace(token)
		if token == "" {
			s.unauthorized(w, "empty_token", "empty token")
			return
		}

		if !s.tokenAllowed(token) {
			s.unauthorized(w, "invalid_token", "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) tokenAllowed(token string) bool {
	for _, allowed := range s.cfg.AllowedTokens {
		if subtle.ConstantTimeCompare([]byte(token), []byte(allowed)) == 1 {
			return true
		}
	}
	return false
}

func (s *Server) unauthorized(w http.ResponseWriter, reason, message string) {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	w.Header().Set("WWW-Authenticate", `Bearer`)
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte("unauthorized: " + message + "\n")); err != nil {
		s.log.Error("failed to write auth error response", "error", err)
	}
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.cfg.Clock.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.statusCode)).Inc()
		metrics.HTTPRequestDuration.Observe(s.cfg.Clock.Since(start).Seconds())
	})
}

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
