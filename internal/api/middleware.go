package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/race-settlement/internal/metrics"
)

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    c.Writer.Status(),
			"duration":  time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request completed")
			return
		}
		entry.Debug("Request completed")
	}
}

func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// limiterIdleTTL is how long a client's bucket survives without requests
const limiterIdleTTL = 10 * time.Minute

// clientLimiter keeps one token bucket per client IP. Buckets idle for longer
// than the TTL are evicted; a fresh bucket starts full, so eviction only ever
// forgives a client.
type clientLimiter struct {
	limit rate.Limit
	burst int
	ttl   time.Duration

	mu       sync.Mutex
	limiters *gocache.Cache
}

// newClientLimiter returns a limiter allowing r requests per second per
// client. A non-positive rate disables limiting.
func newClientLimiter(r float64, burst int, idleTTL time.Duration) *clientLimiter {
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = limiterIdleTTL
	}
	return &clientLimiter{
		limit:    rate.Limit(r),
		burst:    burst,
		ttl:      idleTTL,
		limiters: gocache.New(idleTTL, idleTTL/2),
	}
}

func (l *clientLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lim *rate.Limiter
	if v, ok := l.limiters.Get(key); ok {
		lim = v.(*rate.Limiter)
	} else {
		lim = rate.NewLimiter(l.limit, l.burst)
	}
	// re-set on every hit so the expiry tracks the last request
	l.limiters.Set(key, lim, l.ttl)
	return lim
}

// tracked returns the number of clients with a live bucket
func (l *clientLimiter) tracked() int {
	return l.limiters.ItemCount()
}

func (l *clientLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit <= 0 {
			c.Next()
			return
		}
		if !l.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "RateLimited",
				Message: "too many bets, slow down",
			})
			return
		}
		c.Next()
	}
}
