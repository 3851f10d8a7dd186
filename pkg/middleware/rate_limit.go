package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/torrentvault/pkg/configs"
)

const (
	limiterIdleTTL      = 10 * time.Minute
	limiterSweepPeriod  = time.Minute
	limiterSweepMinSize = 1024
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 返回一个基于配置的限流中间件.
// Key 为 global 时全局共用一个令牌桶，ip 或 header:Name 时按客户端分桶.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	keyMode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if keyMode == "global" || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				tooManyRequests(c)
				return
			}

			c.Next()
		}
	}

	var (
		mu        sync.Mutex
		visitors  = map[string]*visitor{}
		lastSweep = time.Now()
	)

	// allow 取得对应的令牌桶，桶数量较多时顺带清理闲置的桶.
	allow := func(key string) bool {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()

		if len(visitors) >= limiterSweepMinSize && now.Sub(lastSweep) > limiterSweepPeriod {
			for k, v := range visitors {
				if now.Sub(v.lastSeen) > limiterIdleTTL {
					delete(visitors, k)
				}
			}

			lastSweep = now
		}

		v, ok := visitors[key]
		if !ok {
			v = &visitor{limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}
			visitors[key] = v
		}

		v.lastSeen = now

		return v.limiter.Allow()
	}

	header := ""
	if strings.HasPrefix(keyMode, "header:") {
		header = strings.TrimSpace(cfg.Key[len("header:"):])
	}

	return func(c *gin.Context) {
		key := ""
		if header != "" {
			key = c.GetHeader(header)
		}

		if key == "" {
			key = clientIP(c)
		}

		if key == "" {
			key = "unknown"
		}

		if !allow(key) {
			tooManyRequests(c)
			return
		}

		c.Next()
	}
}

func tooManyRequests(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests,
		gin.H{"error": "rate limit exceeded, request too frequent, please try again later"})
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()
	if ip == "" {
		host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = c.Request.RemoteAddr
		}
	}

	return ip
}
