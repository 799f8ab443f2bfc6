package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Counter is a windowed request counter
type Counter interface {
	// Incr bumps key and returns the new count; the key expires after ttl
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// RedisCounter counts with INCR and EXPIRE
type RedisCounter struct {
	rdb *redis.Client
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (r *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := r.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	r.rdb.Expire(ctx, key, ttl)
	return count, nil
}

// Limits caps requests per client; zero disables a window
type Limits struct {
	PerSecond int
	PerDay    int
}

// RateLimitMiddleware limits requests per client IP, per second and per day.
// Counter failures let the request through.
func RateLimitMiddleware(counter Counter, limits Limits) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		now := time.Now()
		client := c.IP()

		keySecond := fmt.Sprintf("rl:client:%s:second:%d", client, now.Unix())
		keyDay := fmt.Sprintf("rl:client:%s:day:%s", client, now.Format("2006-01-02"))

		if limits.PerSecond > 0 {
			countSecond, err := counter.Incr(ctx, keySecond, 2*time.Second)
			if err != nil {
				log.WithError(err).Warn("Rate limit counter unavailable")
			} else if countSecond > int64(limits.PerSecond) {
				c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
				c.Set("X-RateLimit-Remaining-Second", "0")
				c.Set("X-RateLimit-Reset-Second", strconv.FormatInt(now.Unix()+1, 10))
				c.Set("Retry-After", "1")

				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":       "rate_limit_exceeded",
					"message":     "Too many requests per second",
					"limit_type":  "per_second",
					"limit":       limits.PerSecond,
					"retry_after": 1,
				})
			}
		}

		if limits.PerDay > 0 {
			// 25 hours so the key outlives the local day boundary
			countDay, err := counter.Incr(ctx, keyDay, 25*time.Hour)
			if err != nil {
				log.WithError(err).Warn("Rate limit counter unavailable")
			} else {
				if countDay > int64(limits.PerDay) {
					tomorrow := now.AddDate(0, 0, 1)
					midnight := time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, tomorrow.Location())
					retryAfter := int64(midnight.Sub(now).Seconds())

					c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))
					c.Set("X-RateLimit-Remaining-Day", "0")
					c.Set("X-RateLimit-Reset-Day", strconv.FormatInt(midnight.Unix(), 10))
					c.Set("Retry-After", strconv.FormatInt(retryAfter, 10))

					return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
						"error":       "daily_quota_exceeded",
						"message":     "Daily quota exceeded",
						"limit_type":  "per_day",
						"limit":       limits.PerDay,
						"used":        countDay,
						"retry_after": retryAfter,
						"reset_at":    midnight.Format(time.RFC3339),
					})
				}

				c.Set("X-RateLimit-Remaining-Day", strconv.FormatInt(int64(limits.PerDay)-countDay, 10))
			}
		}

		c.Set("X-RateLimit-Limit-Second", strconv.Itoa(limits.PerSecond))
		c.Set("X-RateLimit-Limit-Day", strconv.Itoa(limits.PerDay))

		return c.Next()
	}
}
