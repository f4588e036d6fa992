package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// clientExpiration 空闲客户端限流器的保留时间
const clientExpiration = 5 * time.Minute

type clientState struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 按客户端IP的令牌桶限流器
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientState
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
	now         func() time.Time
}

// NewRateLimiter 创建限流器，rps为每秒请求数，burst为突发容量
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clients:     make(map[string]*clientState),
		limit:       rate.Limit(rps),
		burst:       burst,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Allow 判断客户端当前请求是否放行
func (l *RateLimiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastCleanup) > clientExpiration {
		l.cleanup(now)
	}

	state, ok := l.clients[client]
	if !ok {
		state = &clientState{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = state
	}
	state.lastSeen = now
	return state.limiter.AllowN(now, 1)
}

// cleanup 清理空闲客户端，调用方持有锁
func (l *RateLimiter) cleanup(now time.Time) {
	for client, state := range l.clients {
		if now.Sub(state.lastSeen) > clientExpiration {
			delete(l.clients, client)
		}
	}
	l.lastCleanup = now
}

// Clients 当前跟踪的客户端数量
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// Middleware 返回gin限流中间件，超限返回429
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "Too many requests",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}
