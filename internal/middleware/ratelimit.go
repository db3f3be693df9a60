package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/aim840912/haode-api/internal/metrics"
	"github.com/aim840912/haode-api/pkg/logger"
)

// Policy is a per-route rate limit: at most Requests per Window for
// each client key.
type Policy struct {
	Requests int
	Window   time.Duration
}

// DefaultPolicies mirror the route classes the API serves: generous
// public reads, tight admin writes, and very tight auth attempts.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		"/api/":          {Requests: 100, Window: time.Minute},
		"/api/auth/":     {Requests: 10, Window: time.Minute},
		"/api/admin/":    {Requests: 30, Window: time.Minute},
		"/api/images":    {Requests: 20, Window: time.Minute},
		"/api/inquiries": {Requests: 30, Window: time.Minute},
	}
}

// RateLimiter enforces per-route policies per client. Clients are keyed
// by user ID when authenticated, remote IP otherwise. When a Redis
// client is supplied the window is counted in a shared sorted set so
// limits hold across instances; without it each instance falls back to
// a local token bucket.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	policies []prefixPolicy
	rdb      *redis.Client
	metrics  *metrics.Metrics
	log      *logger.Logger
}

type prefixPolicy struct {
	prefix string
	policy Policy
}

// NewRateLimiter creates a rate limiter from a policy map keyed by
// route prefix. The longest matching prefix wins. rdb and m may be nil.
func NewRateLimiter(policies map[string]Policy, rdb *redis.Client, m *metrics.Metrics, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	if policies == nil {
		policies = DefaultPolicies()
	}

	ordered := make([]prefixPolicy, 0, len(policies))
	for prefix, p := range policies {
		ordered = append(ordered, prefixPolicy{prefix: prefix, policy: p})
	}
	sort.Slice(ordered, func(i, j int) bool {
		return len(ordered[i].prefix) > len(ordered[j].prefix)
	})

	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		policies: ordered,
		rdb:      rdb,
		metrics:  m,
		log:      log,
	}
}

// Handler returns the rate limiting middleware.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		prefix, policy, ok := rl.match(r.URL.Path)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r)
		allowed, err := rl.allow(r.Context(), prefix, key, policy)
		if err != nil {
			// Redis being down should not take the API with it.
			rl.log.WithError(err).Warnf("rate limit check failed, allowing request")
			allowed = true
		}

		if !allowed {
			rl.log.WithField("key", key).
				WithField("path", r.URL.Path).
				Warnf("rate limit exceeded")
			if rl.metrics != nil {
				rl.metrics.RateLimited.WithLabelValues(prefix).Inc()
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(policy.Window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"success":false,"error":"rate limit exceeded"}`)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) match(path string) (string, Policy, bool) {
	for _, pp := range rl.policies {
		if strings.HasPrefix(path, pp.prefix) {
			return pp.prefix, pp.policy, true
		}
	}
	return "", Policy{}, false
}

func (rl *RateLimiter) allow(ctx context.Context, prefix, key string, p Policy) (bool, error) {
	if rl.rdb != nil {
		return rl.allowRedis(ctx, prefix, key, p)
	}
	return rl.allowLocal(prefix, key, p), nil
}

func (rl *RateLimiter) allowLocal(prefix, key string, p Policy) bool {
	mapKey := prefix + "|" + key

	rl.mu.Lock()
	limiter, exists := rl.limiters[mapKey]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(float64(p.Requests)/p.Window.Seconds()), p.Requests)
		rl.limiters[mapKey] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}

// slidingWindowScript counts requests in the trailing window with a
// Redis sorted set: prune old members, add this request, count, expire.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, 0, now - window)
local count = redis.call('ZCARD', key)
if count >= limit then
  return 0
end
redis.call('ZADD', key, now, now .. '-' .. math.random(1000000))
redis.call('PEXPIRE', key, window)
return 1
`)

func (rl *RateLimiter) allowRedis(ctx context.Context, prefix, key string, p Policy) (bool, error) {
	redisKey := "ratelimit:" + prefix + ":" + key
	now := time.Now().UnixMilli()

	res, err := slidingWindowScript.Run(ctx, rl.rdb, []string{redisKey},
		now, p.Window.Milliseconds(), p.Requests).Int()
	if err != nil {
		return false, fmt.Errorf("sliding window: %w", err)
	}
	return res == 1, nil
}

// Cleanup drops the local limiter map when it grows too large. Redis
// keys expire on their own.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.limiters) > 10000 {
		rl.limiters = make(map[string]*rate.Limiter)
	}
}

// StartCleanup runs Cleanup on an interval until ctx is done.
func (rl *RateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}

func clientKey(r *http.Request) string {
	if id := GetUserID(r.Context()); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
