package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// DurationObserver records request latency by method and route template.
type DurationObserver interface {
	ObserveHTTPRequest(method, route string, elapsed time.Duration)
}

// Metrics times every request. The route template is used rather than the
// raw path so ids do not explode label cardinality.
func Metrics(observer DurationObserver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Path()
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		observer.ObserveHTTPRequest(c.Method(), route, time.Since(start))
		return err
	}
}
