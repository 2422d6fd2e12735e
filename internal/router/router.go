package router

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/activity"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/common"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/rockie"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/session"
	"github.com/ovaphlow/pitchfork/service-rockie-go/internal/student"
)

const Prefix = "/rockie-api"

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "rockie",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route and status.",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route", "status"})

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// LoggingMiddleware logs every request at debug level and records its
// latency under the matched route pattern.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			// r.Pattern is filled in by the mux; unmatched paths share one label
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(dur.Seconds())
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware sets conservative security headers on every response.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Cache-Control", "no-store")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Deps are the handlers mounted by RegisterRoutes.
type Deps struct {
	Students   *student.Handler
	Sessions   *session.Handler
	Rockies    *rockie.Handler
	Activities *activity.Handler
	Gate       *session.Gate
	// Ready reports backend health for /health; nil means always ready.
	Ready func(ctx context.Context) error
}

// RegisterRoutes mounts every endpoint under Prefix on a standard library
// http.ServeMux.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+Prefix+"/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				logger.Warnw("health check failed", "err", err)
				common.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		common.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET "+Prefix+"/metrics", promhttp.Handler())

	// public
	mux.HandleFunc("POST "+Prefix+"/students", d.Students.Register)
	mux.HandleFunc("POST "+Prefix+"/auth/login", d.Sessions.Login)
	mux.HandleFunc("POST "+Prefix+"/auth/validate", d.Sessions.Validate)

	// gated: identity always comes from the token
	mux.HandleFunc("POST "+Prefix+"/auth/logout", d.Gate.Protect(d.Sessions.Logout))

	mux.HandleFunc("GET "+Prefix+"/students/me", d.Gate.Protect(d.Students.Get))
	mux.HandleFunc("PATCH "+Prefix+"/students/me", d.Gate.Protect(d.Students.Update))
	mux.HandleFunc("DELETE "+Prefix+"/students/me", d.Gate.Protect(d.Students.Delete))
	mux.HandleFunc("PUT "+Prefix+"/students/me/password", d.Gate.Protect(d.Students.ChangePassword))

	mux.HandleFunc("POST "+Prefix+"/rockies/me", d.Gate.Protect(d.Rockies.Create))
	mux.HandleFunc("GET "+Prefix+"/rockies/me", d.Gate.Protect(d.Rockies.Get))
	mux.HandleFunc("PATCH "+Prefix+"/rockies/me", d.Gate.Protect(d.Rockies.Update))
	mux.HandleFunc("DELETE "+Prefix+"/rockies/me", d.Gate.Protect(d.Rockies.Delete))

	mux.HandleFunc("POST "+Prefix+"/activities", d.Gate.Protect(d.Activities.Create))
	mux.HandleFunc("GET "+Prefix+"/activities", d.Gate.Protect(d.Activities.List))
	mux.HandleFunc("GET "+Prefix+"/activities/{activity_id}", d.Gate.Protect(d.Activities.Get))
	mux.HandleFunc("PATCH "+Prefix+"/activities/{activity_id}", d.Gate.Protect(d.Activities.Update))
	mux.HandleFunc("DELETE "+Prefix+"/activities/{activity_id}", d.Gate.Protect(d.Activities.Delete))

	// wrap with security headers middleware then logging middleware
	return LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux))
}
