package middleware

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/modrelay/backend/internal/metrics"
	"go.uber.org/zap"
)

// LoggerMiddleware logs each request and records its duration by route pattern.
func LoggerMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		latency := time.Since(start)
		route := c.Route().Path
		if route == "" {
			route = "unknown"
		}
		metrics.RequestDuration.
			WithLabelValues(c.Method(), route, strconv.Itoa(status)).
			Observe(latency.Seconds())

		reqID, _ := c.Locals(CtxRequestID).(string)
		log.Info("request",
			zap.String("request_id", reqID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("latency", latency),
			zap.String("ip", c.IP()),
		)

		return err
	}
}
