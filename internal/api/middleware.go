package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/google/uuid"

	"github.com/kavi0/sherpa/internal/log"
)

// Context key type (unexported to prevent collisions).
type requestIDKey struct{}

var ctxKeyRequestID = requestIDKey{}

// requestIDFromContext retrieves the request ID set by
// requestIDMiddleware. Returns "" if not present.
func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// statusWriter records the status code and byte count of a response.
// Flush and Unwrap keep streaming and http.ResponseController working
// through the middleware stack.
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

//nolint:wrapcheck // http.ResponseWriter wrapper must return unwrapped errors
func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.bytes += int64(n)
	return n, err
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// Status returns the recorded status, defaulting to 200 when the
// handler never called WriteHeader.
func (sw *statusWriter) Status() int {
	if sw.status == 0 {
		return http.StatusOK
	}
	return sw.status
}

// requestIDMiddleware tags every request and response with an
// X-Request-ID header. A valid UUID supplied by the caller is reused so
// IDs can follow a request across proxies; anything else is replaced
// with a fresh one.
func requestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-ID")
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)

			ctx := context.WithValue(r.Context(), ctxKeyRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// recoveryMiddleware turns handler panics into 500 responses. When the
// handler already wrote headers before panicking, the response is left
// as is and only logged.
func recoveryMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}

			defer func() {
				r2 := recover()
				if r2 == nil {
					return
				}
				headersSent := sw.status != 0
				logger.Error("panic recovered",
					"error", r2,
					"path", r.URL.Path,
					"request_id", requestIDFromContext(r.Context()),
					"headers_sent", headersSent,
				)
				if headersSent {
					logger.Warn("cannot send error response, headers already sent",
						"path", r.URL.Path,
						"status", sw.status,
					)
					return
				}
				writeError(w, logger, http.StatusInternalServerError, "internal_error", "internal server error")
			}()

			next.ServeHTTP(sw, r)
		})
	}
}

// loggingMiddleware logs method, path, status, size, and latency for
// every request. An existing *statusWriter from outer middleware is
// reused instead of wrapping twice.
func loggingMiddleware(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			sw, ok := w.(*statusWriter)
			if !ok {
				sw = &statusWriter{ResponseWriter: w}
			}

			next.ServeHTTP(sw, r)

			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.Status(),
				"bytes", sw.bytes,
				"duration", time.Since(start),
				"ip", r.RemoteAddr,
				"request_id", requestIDFromContext(r.Context()),
			)
		})
	}
}

// tracingMiddleware opens one span per request on Genkit's
// TracerProvider, so HTTP spans and the generate/embed spans Genkit
// creates end up in the same trace.
func tracingMiddleware() func(http.Handler) http.Handler {
	tracer := tracing.TracerProvider().Tracer("sherpa/api")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), r.Method+" "+r.URL.Path)
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// corsMiddleware handles CORS preflight and response headers. A "*"
// entry permits every origin; the request origin is echoed back rather
// than "*" because the API allows credentials.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	wildcard := false
	exact := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			wildcard = true
			continue
		}
		exact[o] = struct{}{}
	}
	allowed := func(origin string) bool {
		if origin == "" {
			return false
		}
		if wildcard {
			return true
		}
		_, ok := exact[origin]
		return ok
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin := r.Header.Get("Origin"); allowed(origin) {
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, X-Admin-Token, X-Request-ID")
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// requireAdmin gates index mutation routes behind the X-Admin-Token
// header. With no token configured, every caller is allowed.
func requireAdmin(token string, logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Admin-Token")), []byte(token)) != 1 {
				logger.Warn("admin token rejected",
					"path", r.URL.Path,
					"method", r.Method,
					"ip", r.RemoteAddr,
				)
				writeError(w, logger, http.StatusUnauthorized, "unauthorized", "Invalid admin token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// setSecurityHeaders applies baseline security headers. HSTS only makes
// sense over HTTPS, so development mode skips it.
func setSecurityHeaders(w http.ResponseWriter, isDev bool) {
	h := w.Header()
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Content-Security-Policy", "default-src 'none'")
	if !isDev {
		h.Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains")
	}
}
