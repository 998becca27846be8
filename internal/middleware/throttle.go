package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a per-IP token-bucket guard in front of the checkout endpoints.
// It only smooths bursts from a single client; the durable per-phone and
// per-IP send quotas live in the store-backed limiter.
type Throttle struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	r        rate.Limit
	burst    int
}

// NewThrottle creates a per-IP limiter: r requests/second, burst up to burst.
func NewThrottle(r rate.Limit, burst int) *Throttle {
	t := &Throttle{
		limiters: make(map[string]*clientLimiter),
		r:        r,
		burst:    burst,
	}
	go t.cleanup()
	return t
}

func (t *Throttle) get(ip string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.limiters[ip]; ok {
		v.lastSeen = time.Now()
		return v.limiter
	}
	l := rate.NewLimiter(t.r, t.burst)
	t.limiters[ip] = &clientLimiter{limiter: l, lastSeen: time.Now()}
	return l
}

// cleanup removes stale entries every 5 minutes.
func (t *Throttle) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		t.mu.Lock()
		for ip, v := range t.limiters {
			if time.Since(v.lastSeen) > 10*time.Minute {
				delete(t.limiters, ip)
			}
		}
		t.mu.Unlock()
	}
}

// Limit enforces the per-IP budget for the wrapped routes.
func (t *Throttle) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !t.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
