package observability

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/domain"
)

// PrincipalLocalsKey is the fiber locals key under which the resolved
// *domain.Principal is stored.
const PrincipalLocalsKey = "auth_principal"

// RequestIDLocalsKey is the fiber locals key holding the request id.
const RequestIDLocalsKey = "request_id"

// RequestLogger logs every request and feeds the request metrics.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		elapsed := time.Since(start)

		status := c.Response().StatusCode()
		route := c.Route().Path
		metrics.RecordRequest(route, c.Method(), status, elapsed)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("latency", elapsed),
		}
		if id, ok := c.Locals(RequestIDLocalsKey).(string); ok && id != "" {
			fields = append(fields, zap.String("request_id", id))
		}
		if p, ok := c.Locals(PrincipalLocalsKey).(*domain.Principal); ok && p != nil {
			fields = append(fields, zap.String("principal_id", p.ID), zap.String("kind", string(p.Kind)))
		}
		logger.Info("request", fields...)
		return err
	}
}
