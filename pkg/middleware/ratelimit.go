package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// MessageTooManyRequests はレート制限に掛かった場合のメッセージ。
const MessageTooManyRequests = "Too many requests"

const (
	// limiterIdleTTL を過ぎて使われていないクライアントのリミッターは破棄する。
	limiterIdleTTL = 10 * time.Minute
	// limiterSweepInterval ごとに破棄対象を走査する。
	limiterSweepInterval = time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters はクライアントIPごとのトークンバケットを保持する。
type ipLimiters struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiters(rps float64, burst int) *ipLimiters {
	return &ipLimiters{
		rps:       rate.Limit(rps),
		burst:     burst,
		clients:   make(map[string]*clientLimiter),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (l *ipLimiters) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= limiterSweepInterval {
		for key, cl := range l.clients {
			if now.Sub(cl.lastSeen) >= limiterIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (l *ipLimiters) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// RateLimit はクライアントIPごとにリクエスト数を制限するGinミドルウェアを返す。
// rpsが0以下の場合は何もしない。
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if burst < 1 {
		burst = 1
	}
	return rateLimit(newIPLimiters(rps, burst))
}

func rateLimit(limiters *ipLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiters.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			abortWithMessage(c, http.StatusTooManyRequests, MessageTooManyRequests)
			return
		}
		c.Next()
	}
}
