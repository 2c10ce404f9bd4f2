package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type IPRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
}

func NewIPRateLimiter(limit int, window time.Duration) *IPRateLimiter {
	return &IPRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}
}

func (rl *IPRateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	requests := rl.requests[ip]
	i := 0
	for ; i < len(requests); i++ {
		if requests[i].After(cutoff) {
			break
		}
	}
	requests = requests[i:]

	if len(requests) >= rl.limit {
		rl.requests[ip] = requests
		return false
	}

	rl.requests[ip] = append(requests, now)
	return true
}

func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RedisRateLimiter counts requests per client IP in Redis so the limit holds
// across instances. Counting errors fail open.
type RedisRateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedisRateLimiter(rdb *redis.Client, prefix string, limit int, window time.Duration) *RedisRateLimiter {
	return &RedisRateLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window}
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", r.prefix, key)
	count, err := r.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		r.rdb.Expire(ctx, redisKey, r.window)
	}
	return count <= int64(r.limit), nil
}

func (r *RedisRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := r.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			zap.S().Warnf("rate limiter redis error: %v", err)
			c.Next()
			return
		}
		if !ok {
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
