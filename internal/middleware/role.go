package middleware

import (
	"net/http"

	"github.com/BurakKama/fullstack-mobile-app/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequireRole restricts a route to the given roles. Must run after Auth,
// since it reads the identity Auth attaches. Stateless and side-effect free.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			identity, ok := IdentityFrom(c)
			if !ok {
				log.Error("Role check without authenticated identity")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}

			if !allowed[identity.UserType] {
				log.Warn("Role not permitted for route",
					zap.String("user_type", identity.UserType),
					zap.Uint("user_id", identity.ID))
				return c.JSON(http.StatusForbidden, echo.Map{"error": "insufficient permissions"})
			}

			return next(c)
		}
	}
}
