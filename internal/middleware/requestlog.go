package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

// RequestObserver receives per-request latency; metrics.Collector implements it
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

// RequestLogMiddleware logs every request with its status, latency and cache
// outcome, and reports the latency to observer when one is given.
func RequestLogMiddleware(observer RequestObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		responseTime := time.Since(start)
		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		// route pattern keeps label cardinality bounded
		route := c.Route().Path

		if observer != nil {
			observer.ObserveRequest(c.Method(), route, status, responseTime)
		}

		entry := log.WithFields(log.Fields{
			"method":  c.Method(),
			"path":    c.Path(),
			"status":  status,
			"latency": responseTime.String(),
			"ip":      c.IP(),
		})
		if cacheStatus := string(c.Response().Header.Peek("X-Cache")); cacheStatus != "" {
			entry = entry.WithField("cache", cacheStatus)
		}
		entry.Info("Request served")

		c.Set("X-Response-Time", responseTime.String())

		return err
	}
}
