package auth

import (
	"sync"

	"golang.org/x/time/rate"
)

// Defaults applied when the security config leaves rate limiting unset.
const (
	defaultRPS   = 5
	defaultBurst = 10
)

// limiterPool hands out one token bucket per caller key: the API key for
// authenticated requests, the client IP for unauthenticated ones. Buckets
// are created lazily on first use and live for the life of the process.
type limiterPool struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rps     rate.Limit
	burst   int
}

func newLimiterPool(cfg SecConfig) *limiterPool {
	rps := cfg.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &limiterPool{
		buckets: make(map[string]*rate.Limiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

// Allow reports whether key may proceed under its bucket right now.
func (p *limiterPool) Allow(key string) bool {
	p.mu.Lock()
	b, ok := p.buckets[key]
	if !ok {
		b = rate.NewLimiter(p.rps, p.burst)
		p.buckets[key] = b
	}
	p.mu.Unlock()
	return b.Allow()
}
