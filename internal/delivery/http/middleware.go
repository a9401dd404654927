package http

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// sessionCookie names the shopper-session cookie.
const sessionCookie = "udo_session"

// sessionKey is the gin context key the session id is stored under.
const sessionKey = "sessionID"

// CORSMiddleware handles CORS for the storefront origins
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Check if origin is allowed
		if isAllowedOrigin(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
			c.Writer.Header().Set("Access-Control-Max-Age", "3600")
		}

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isAllowedOrigin checks if the origin is in the allowed list
func isAllowedOrigin(origin string, allowedOrigins []string) bool {
	for _, allowed := range allowedOrigins {
		// Support wildcard matching for https://*.myshopify.com
		if idx := strings.Index(allowed, "*"); idx >= 0 {
			prefix, suffix := allowed[:idx], allowed[idx+1:]
			if strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				return true
			}
		} else if origin == allowed {
			return true
		}
	}
	return false
}

// SessionMiddleware resolves the shopper-session cookie, minting a new
// session id when the shopper has none, and exposes it on the context.
func SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(sessionCookie)
		if err != nil || id == "" {
			id = uuid.NewString()
			c.SetCookie(sessionCookie, id, 0, "/", "", false, true)
		}
		c.Set(sessionKey, id)
		c.Next()
	}
}

// sessionID returns the session id set by SessionMiddleware.
func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// limiterIdleTimeout is how long an IP's limiter survives without traffic
// before the pool evicts it.
const limiterIdleTimeout = 3 * time.Minute

// ipLimiterPool hands out per-IP token buckets and evicts idle ones so the
// map does not grow without bound under address churn.
type ipLimiterPool struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rate     rate.Limit
	burst    int
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPLimiterPool(perMinute, burst int) *ipLimiterPool {
	return &ipLimiterPool{
		limiters: make(map[string]*ipLimiter),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
	}
}

// allow reports whether the IP may proceed, creating its limiter on first
// sight and refreshing its last-seen time.
func (p *ipLimiterPool) allow(ip string) bool {
	p.mu.Lock()
	l, exists := p.limiters[ip]
	if !exists {
		l = &ipLimiter{limiter: rate.NewLimiter(p.rate, p.burst)}
		p.limiters[ip] = l
	}
	l.lastSeen = time.Now()
	p.mu.Unlock()

	return l.limiter.Allow()
}

// prune evicts limiters idle longer than limiterIdleTimeout.
func (p *ipLimiterPool) prune(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ip, l := range p.limiters {
		if now.Sub(l.lastSeen) > limiterIdleTimeout {
			delete(p.limiters, ip)
		}
	}
}

func (p *ipLimiterPool) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.limiters)
}

// RateLimitMiddleware applies a per-IP token bucket. perMinute is the
// sustained allowance; burst absorbs short spikes.
func RateLimitMiddleware(perMinute, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = perMinute
	}

	pool := newIPLimiterPool(perMinute, burst)

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			pool.prune(time.Now())
		}
	}()

	return func(c *gin.Context) {
		if !pool.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// LoggerMiddleware logs requests (simple version for now)
func LoggerMiddleware() gin.HandlerFunc {
	return gin.Logger()
}

// RecoveryMiddleware recovers from panics
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.Recovery()
}
