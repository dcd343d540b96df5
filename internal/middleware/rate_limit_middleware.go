package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// RateLimitConfig содержит настройки ограничения частоты запросов
type RateLimitConfig struct {
	// MaxRequests: максимальное количество запросов за Window
	MaxRequests int
	Window      time.Duration
	// KeyPrefix: префикс ключей в Redis
	KeyPrefix string
	// KeyFunc выделяет из запроса субъект ограничения. По умолчанию IP + маршрут.
	KeyFunc func(c *gin.Context) string
}

// ByIPAndRoute: субъект ограничения: IP клиента и шаблон маршрута
func ByIPAndRoute(c *gin.Context) string {
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}
	return c.ClientIP() + ":" + path
}

// ByRouteParam: субъект ограничения: значение параметра URL (например, username при подтверждении)
func ByRouteParam(name string) func(c *gin.Context) string {
	return func(c *gin.Context) string {
		return c.FullPath() + ":" + c.Param(name)
	}
}

// LoginRateLimitConfig: защита входа от перебора паролей
func LoginRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 10, Window: time.Minute, KeyPrefix: "rl:auth:login"}
}

// RegisterRateLimitConfig: ограничение регистраций с одного IP
func RegisterRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 5, Window: time.Minute, KeyPrefix: "rl:auth:register"}
}

// VerifyRateLimitConfig: ограничение запросов подтверждения на один username,
// дополнительно к лимиту попыток в реестре
func VerifyRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{MaxRequests: 10, Window: time.Minute, KeyPrefix: "rl:auth:verify", KeyFunc: ByRouteParam("username")}
}

// RateLimiter ограничивает частоту запросов счетчиками фиксированного окна в Redis
type RateLimiter struct {
	redisClient redis.UniversalClient
}

// NewRateLimiter создает новый RateLimiter. nil-клиент отключает ограничение.
func NewRateLimiter(redisClient redis.UniversalClient) *RateLimiter {
	return &RateLimiter{redisClient: redisClient}
}

// Limit возвращает Gin middleware с заданной конфигурацией.
// При недоступности Redis запрос пропускается (fail-open).
func (rl *RateLimiter) Limit(cfg RateLimitConfig) gin.HandlerFunc {
	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = ByIPAndRoute
	}

	return func(c *gin.Context) {
		if rl.redisClient == nil {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, keyFunc(c))

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		count, ttl, err := rl.hit(ctx, key, cfg.Window)
		if err != nil {
			log.Printf("[RateLimiter] Redis error for key %s: %v. Allowing request (fail-open).", key, err)
			c.Next()
			return
		}

		remaining := cfg.MaxRequests - int(count)
		if remaining < 0 {
			remaining = 0
		}
		retryAfter := int(ttl.Seconds())
		if retryAfter <= 0 {
			retryAfter = int(cfg.Window.Seconds())
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(retryAfter))

		if int(count) > cfg.MaxRequests {
			log.Printf("[RateLimiter] Rate limit exceeded for key=%s. Count=%d, Limit=%d", key, count, cfg.MaxRequests)
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests. Please try again later.",
				"error_type":  "rate_limited",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// hit увеличивает счетчик окна и возвращает его значение и оставшееся время окна
func (rl *RateLimiter) hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rl.redisClient.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	// Новый ключ или ключ, потерявший TTL: открываем окно
	if ttl.Val() < 0 {
		if err := rl.redisClient.Expire(ctx, key, window).Err(); err != nil {
			log.Printf("[RateLimiter] Failed to set TTL for key %s: %v", key, err)
		}
		return incr.Val(), window, nil
	}
	return incr.Val(), ttl.Val(), nil
}
