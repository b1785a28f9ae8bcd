package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// окно фиксированной длины: INCR и срок жизни ставятся одним скриптом
var fixedWindowScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return current
`)

// RateLimiter ограничивает число запросов с одного ip за окно
type RateLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	log    *slog.Logger
}

func NewRateLimiter(rdb *redis.Client, prefix string, perMinute int, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  perMinute,
		window: time.Minute,
		log:    log,
	}
}

// Allow учитывает запрос и сообщает, укладывается ли он в лимит
func (l *RateLimiter) Allow(ctx context.Context, clientKey string) (bool, error) {
	bucket := time.Now().UnixMilli() / l.window.Milliseconds()
	key := fmt.Sprintf("%s:ratelimit:%s:%d", l.prefix, clientKey, bucket)

	count, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, l.window.Milliseconds()).Int()
	if err != nil {
		return true, fmt.Errorf("rate limit: %w", err)
	}
	return count <= l.limit, nil
}

// Middleware пропускает запросы при недоступном redis
func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.limit <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
		allowed, err := l.Allow(ctx, c.ClientIP())
		cancel()
		if err != nil {
			l.log.Warn("rate limiter unavailable", "error", err)
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
