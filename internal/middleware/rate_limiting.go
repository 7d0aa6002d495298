package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis_rate/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/2beens/blogposts/internal/telemetry/metrics"
	"github.com/2beens/blogposts/pkg"
)

type RequestRateLimiter interface {
	Allow(ctx context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error)
}

var _ RequestRateLimiter = (*redis_rate.Limiter)(nil)
var _ RequestRateLimiter = (*LocalRateLimiter)(nil)

// RateLimit limits the write requests (everything except GET, HEAD and OPTIONS) per client IP.
func RateLimit(
	rateLimiter RequestRateLimiter,
	routerName string,
	allowedPerMin int,
	metricsManager *metrics.Manager,
) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			ip, err := pkg.ReadUserIP(r)
			if err != nil {
				log.Debugf("rate limit, read user ip: %s", err)
				ip = "unknown"
			}

			key := fmt.Sprintf("%s||%s", routerName, ip)
			res, err := rateLimiter.Allow(
				r.Context(),
				key,
				redis_rate.PerMinute(allowedPerMin),
			)
			if err != nil {
				log.Errorf("rate limit [%s]: %s", key, err)
				pkg.WriteErrorResponse(w, "rate limit internal error", http.StatusInternalServerError)
				return
			}

			if res.Allowed > 0 {
				next.ServeHTTP(w, r)
				return
			}

			if metricsManager != nil {
				metricsManager.CounterRateLimitedRequests.Inc()
			}

			retryAfter := int(math.Ceil(res.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			pkg.WriteErrorResponse(
				w,
				fmt.Sprintf("retry after %d seconds", retryAfter),
				http.StatusTooManyRequests,
			)
		})
	}
}

// LocalRateLimiter is an in-process token bucket limiter, used when no redis is configured.
// Limits are per instance, not shared between replicas.
type LocalRateLimiter struct {
	mutex    sync.Mutex
	limiters map[string]*rate.Limiter
	now      func() time.Time
}

func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		now:      time.Now,
	}
}

func (l *LocalRateLimiter) limiter(key string, limit redis_rate.Limit) *rate.Limiter {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		every := limit.Period / time.Duration(limit.Rate)
		lim = rate.NewLimiter(rate.Every(every), limit.Burst)
		l.limiters[key] = lim
	}
	return lim
}

func (l *LocalRateLimiter) Allow(_ context.Context, key string, limit redis_rate.Limit) (*redis_rate.Result, error) {
	if limit.IsZero() || limit.Rate <= 0 {
		return nil, fmt.Errorf("invalid rate limit: %s", limit)
	}

	lim := l.limiter(key, limit)
	now := l.now()

	if lim.AllowN(now, 1) {
		return &redis_rate.Result{
			Limit:     limit,
			Allowed:   1,
			Remaining: int(lim.TokensAt(now)),
		}, nil
	}

	reservation := lim.ReserveN(now, 1)
	retryAfter := reservation.DelayFrom(now)
	reservation.CancelAt(now)

	return &redis_rate.Result{
		Limit:      limit,
		Allowed:    0,
		Remaining:  0,
		RetryAfter: retryAfter,
		ResetAfter: retryAfter,
	}, nil
}
