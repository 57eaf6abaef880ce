package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const visitorTTL = 10 * time.Minute

// RateLimiter keeps one token bucket per client IP. Each bucket holds up to
// requestsPerMinute tokens and refills continuously at that rate.
type RateLimiter struct {
	requestsPerMinute int
	visitors          map[string]*visitor
	mutex             sync.Mutex
	now               func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter starts the background cleanup; call Stop to end it.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		visitors:          make(map[string]*visitor),
		now:               time.Now,
		stop:              make(chan struct{}),
	}
	go rl.cleanupRoutine()
	return rl
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "请求频率过高，请稍后再试",
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) Allow(ip string) bool {
	if rl.requestsPerMinute <= 0 {
		return true
	}

	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	v, exists := rl.visitors[ip]
	if !exists {
		every := rate.Every(time.Minute / time.Duration(rl.requestsPerMinute))
		v = &visitor{limiter: rate.NewLimiter(every, rl.requestsPerMinute)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(visitorTTL)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > visitorTTL {
			delete(rl.visitors, ip)
		}
	}
}
