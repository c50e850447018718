package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/modrelay/backend/internal/auth"
	"github.com/modrelay/backend/internal/config"
	"go.uber.org/zap"
)

const CtxOperator = "operator"

// AuthMiddleware guards the dashboard API with a bearer token carrying scope.
// When no secret is configured the API stays public, like the HTML page.
func AuthMiddleware(cfg *config.Config, scope string, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.APIAuthEnabled() {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid authorization format"})
		}

		claims, err := auth.ParseJWT(cfg.DashboardJWTSecret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}
		if !claims.HasScope(scope) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": auth.ErrInsufficientScope.Error()})
		}

		c.Locals(CtxOperator, claims.Operator)
		return c.Next()
	}
}

func GetOperator(c *fiber.Ctx) string {
	op, _ := c.Locals(CtxOperator).(string)
	return op
}
