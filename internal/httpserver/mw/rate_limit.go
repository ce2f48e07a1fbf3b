package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/MrSnakeDoc/bookshare/internal/utils"
)

type RateLimitConfig struct {
	Burst             int
	RefillPerIPPerMin int
	SweepInterval     time.Duration
	IdleTTL           time.Duration
	TrustProxy        bool // resolve IP from proxy headers when true
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

type limiter struct {
	cfg      RateLimitConfig
	every    rate.Limit
	visitors sync.Map // client ip -> *visitor

	sweepMu   sync.Mutex
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerIPPerMin < 1 {
		cfg.RefillPerIPPerMin = 1
	}
	return &limiter{
		cfg:       cfg,
		every:     rate.Limit(float64(cfg.RefillPerIPPerMin) / 60.0),
		lastSweep: time.Now(),
	}
}

func (l *limiter) visitor(key string, now time.Time) *visitor {
	if v, ok := l.visitors.Load(key); ok {
		return v.(*visitor)
	}
	fresh := &visitor{limiter: rate.NewLimiter(l.every, l.cfg.Burst)}
	fresh.lastSeen.Store(now.UnixNano())
	v, _ := l.visitors.LoadOrStore(key, fresh)
	return v.(*visitor)
}

// allow consumes one token for key. When refused it reports how long until
// a token is available.
func (l *limiter) allow(key string, now time.Time) (ok bool, remaining int, retryAfter time.Duration) {
	v := l.visitor(key, now)
	v.lastSeen.Store(now.UnixNano())

	if v.limiter.AllowN(now, 1) {
		return true, int(math.Floor(v.limiter.TokensAt(now))), 0
	}

	r := v.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, 0, delay
}

func (l *limiter) sweepMaybe(now time.Time) {
	l.sweepMu.Lock()
	defer l.sweepMu.Unlock()
	if now.Sub(l.lastSweep) < l.cfg.SweepInterval {
		return
	}
	cutoff := now.Add(-l.cfg.IdleTTL).UnixNano()
	l.visitors.Range(func(k, v any) bool {
		if v.(*visitor).lastSeen.Load() < cutoff {
			l.visitors.Delete(k)
		}
		return true
	})
	l.lastSweep = now
}

func (l *limiter) size() int {
	n := 0
	l.visitors.Range(func(any, any) bool { n++; return true })
	return n
}

// RateLimit limits requests per client IP with a token bucket.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limitStr := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			l.sweepMaybe(now)

			key := utils.ClientIP(r, l.cfg.TrustProxy)

			ok, remaining, retry := l.allow(key, now)
			w.Header().Set("X-RateLimit-Limit", limitStr)
			if !ok {
				sec := max(int(math.Ceil(retry.Seconds())), 1)
				w.Header().Set("Retry-After", strconv.Itoa(sec))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))

			next.ServeHTTP(w, r)
		})
	}
}
