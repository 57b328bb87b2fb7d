package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/cabflow/cabflow/pkg/composables"
)

// Pool makes the database pool available to repositories via the request
// context.
func Pool(pool *pgxpool.Pool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(composables.WithPool(r.Context(), pool)))
		})
	}
}

// RequestID injects the correlation ID from the given header, generating one
// when the caller did not send any.
func RequestID(header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(header)
			if requestID == "" {
				requestID = uuid.New().String()
			}
			next.ServeHTTP(w, r.WithContext(composables.WithRequestID(r.Context(), requestID)))
		})
	}
}

// Actor reads the authenticated caller identity set by the fronting auth
// proxy. The engine trusts this header; authentication itself happens
// upstream.
func Actor(header string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actorID := r.Header.Get(header); actorID != "" {
				r = r.WithContext(composables.WithActorID(r.Context(), actorID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger attaches a contextual logger and emits one line per request.
func RequestLogger(logger *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := logger.WithFields(logrus.Fields{
				"method":     r.Method,
				"path":       r.URL.Path,
				"request_id": composables.UseRequestID(r.Context()),
			})
			sw := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(sw, r.WithContext(composables.WithLogger(r.Context(), entry)))
			entry.WithFields(logrus.Fields{
				"status":   sw.status,
				"duration": time.Since(start).String(),
			}).Info("request completed")
		})
	}
}
