package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/agentforge-ai/agentforge/internal/api/dto"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const requestMetaKey contextKey = "request_meta"

// requestMeta is a per-request holder the auth middleware fills in after
// token validation, so the outer request logger can attribute the line to a
// tenant even though it wrapped the handler first.
type requestMeta struct {
	tenantID string
	role     string
}

func requestMetaFrom(ctx context.Context) *requestMeta {
	meta, _ := ctx.Value(requestMetaKey).(*requestMeta)
	return meta
}

// Logger emits one structured line per request. Health and metrics
// endpoints log at debug so steady-state output stays readable; 4xx warns,
// 5xx errors.
func Logger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			meta := &requestMeta{}
			r = r.WithContext(context.WithValue(r.Context(), requestMetaKey, meta))

			defer func() {
				evt := log.WithLevel(requestLogLevel(r.URL.Path, ww.Status())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("remote_addr", r.RemoteAddr).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context()))
				if q := r.URL.RawQuery; q != "" {
					evt.Str("query", q)
				}
				if meta.tenantID != "" {
					evt.Str("tenant_id", meta.tenantID).Str("role", meta.role)
				}
				evt.Msg("request completed")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func requestLogLevel(path string, status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	case path == "/healthz" || path == "/metrics" || strings.HasPrefix(path, "/api/v1/health"):
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Recoverer turns handler panics into the API's JSON error envelope instead
// of a plain-text 500.
func Recoverer() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error().
						Interface("error", err).
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Str("request_id", middleware.GetReqID(r.Context())).
						Bytes("stack", debug.Stack()).
						Msg("panic recovered")

					dto.InternalServerError(w, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
