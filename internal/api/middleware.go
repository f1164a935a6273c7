package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wonny/freightcast/backend/pkg/redis"
)

// HTTPObserver HTTP 메트릭 기록
type HTTPObserver interface {
	ObserveHTTP(route, method string, status int, elapsed time.Duration)
}

// Limiter 클라이언트별 요청 제한
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// RedisLimiter shares the per-minute budget across API instances.
type RedisLimiter struct {
	limiter   *redis.RateLimiter
	perMinute int
}

// NewRedisLimiter wraps the redis sliding-window limiter.
func NewRedisLimiter(l *redis.RateLimiter, perMinute int) *RedisLimiter {
	return &RedisLimiter{limiter: l, perMinute: perMinute}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	ok, _, err := l.limiter.Allow(ctx, redis.APIRateLimit(clientKey, l.perMinute))
	return ok, err
}

// LocalLimiter token bucket per client, process-local
type LocalLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*rate.Limiter
	perMinute int
}

// NewLocalLimiter is used when redis is disabled.
func NewLocalLimiter(perMinute int) *LocalLimiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &LocalLimiter{limiters: make(map[string]*rate.Limiter), perMinute: perMinute}
}

// Allow implements Limiter.
func (l *LocalLimiter) Allow(_ context.Context, clientKey string) (bool, error) {
	l.mu.Lock()
	lim, ok := l.limiters[clientKey]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)
		l.limiters[clientKey] = lim
	}
	l.mu.Unlock()
	return lim.Allow(), nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests and records metrics
func loggingMiddleware(log zerolog.Logger, obs HTTPObserver) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if obs != nil {
				obs.ObserveHTTP(route, r.Method, rec.status, elapsed)
			}

			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", elapsed).
				Msg("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.Error().
						Interface("error", err).
						Str("path", r.URL.Path).
						Msg("Panic recovered")

					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// rateLimitMiddleware rejects clients over their per-minute budget with 429.
// Limiter errors fail open.
func rateLimitMiddleware(limiter Limiter, perMinute int, log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientIP(r))
			if err != nil {
				log.Warn().Err(err).Msg("rate limiter unavailable")
				allowed = true
			}
			if !allowed {
				w.Header().Set("Retry-After", "60")
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(perMinute))
				writeJSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
