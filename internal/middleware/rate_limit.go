package middleware

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/httprate"
	pkghttp "github.com/shopfloor/gatekeeper/pkg/http"
	"golang.org/x/time/rate"
)

// rateLimitBody is the plain-text 429 body returned by the global limiter.
const rateLimitBody = "Too many requests - rate limit exceeded"

// ClientRateLimiter admits requests per client address through independent
// token buckets created lazily on first contact. State is process-local and
// never evicted; growth is bounded by the number of distinct addresses seen.
type ClientRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
	ipConfig *pkghttp.IPConfig
}

// NewClientRateLimiter creates a registry of per-address buckets with the
// given sustained rate. Burst is one second of permits, so an idle bucket
// can absorb a short spike but the long-run average stays at the rate.
func NewClientRateLimiter(permitsPerSecond float64, ipConfig *pkghttp.IPConfig) *ClientRateLimiter {
	burst := int(math.Ceil(permitsPerSecond))
	if burst < 1 {
		burst = 1
	}

	return &ClientRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(permitsPerSecond),
		burst:    burst,
		ipConfig: ipConfig,
	}
}

func (l *ClientRateLimiter) limiterFor(address string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.limiters[address]
	if !ok {
		limiter = rate.NewLimiter(l.rps, l.burst)
		l.limiters[address] = limiter
	}
	return limiter
}

// TryAcquire reports whether a request from the address is admitted now.
func (l *ClientRateLimiter) TryAcquire(address string) bool {
	return l.limiterFor(address).Allow()
}

// Middleware applies the limiter ahead of all downstream handlers.
// Rejections never reach a handler.
func (l *ClientRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		address := pkghttp.ExtractClientIP(r, l.ipConfig)

		if !l.TryAcquire(address) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(rateLimitBody))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// SignupRateLimit returns a stricter per-address window limit for the
// signup endpoint, on top of the global bucket limiter. Keys come from the
// same trusted-proxy-gated resolution as the bucket limiter and the guard,
// so rotating forwarded headers cannot mint fresh windows.
func SignupRateLimit(requestsPerMinute int, ipConfig *pkghttp.IPConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		requestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, ipConfig), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			pkghttp.WriteTooManyRequests(w, "Rate limit exceeded")
		}),
	)
}
