package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"interview-relay/internal/shared/server/respond"
)

// idleLimiterTTL drops buckets for clients that stopped calling.
const idleLimiterTTL = 15 * time.Minute

// RateLimitRule is a token bucket shape. A zero Rate or Burst disables it.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

func (r RateLimitRule) disabled() bool { return r.Rate <= 0 || r.Burst <= 0 }

// RateLimitConfig selects a rule per request. Requests whose group has no
// rule pass through untouched.
type RateLimitConfig struct {
	Rules    map[string]RateLimitRule
	GroupFor func(*gin.Context) string
	Limiter  *RateLimiter
}

// RateLimiter keeps one limiter per client and group.
type RateLimiter struct {
	mu      sync.Mutex
	clients *gocache.Cache
	now     func() time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		clients: gocache.New(idleLimiterTTL, 2*idleLimiterTTL),
		now:     now,
	}
}

func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	return func(c *gin.Context) {
		if cfg.GroupFor == nil {
			c.Next()
			return
		}
		group := strings.TrimSpace(cfg.GroupFor(c))
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}

		allowed, wait := cfg.Limiter.Allow(c.ClientIP()+"|"+group, rule)
		if allowed {
			c.Next()
			return
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "too many requests, slow down", gin.H{
			"retry_after_ms": wait.Milliseconds(),
		})
	}
}

// Allow takes one token for key. When none is available it reports how
// long until the next one without consuming it.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.disabled() {
		return true, 0
	}
	now := l.now()
	r := l.limiter(key, rule).ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *RateLimiter) limiter(key string, rule RateLimitRule) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if v, ok := l.clients.Get(key); ok {
		lim := v.(*rate.Limiter)
		l.clients.SetDefault(key, lim)
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(rule.Rate), rule.Burst)
	l.clients.SetDefault(key, lim)
	return lim
}

func retryAfterSeconds(wait time.Duration) int {
	secs := int((wait + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
