package middleware

import (
	"net/http"
	"strings"

	"github.com/BurakKama/fullstack-mobile-app/internal/model"
	"github.com/BurakKama/fullstack-mobile-app/pkg/database"
	"github.com/BurakKama/fullstack-mobile-app/pkg/jwtutil"
	"github.com/BurakKama/fullstack-mobile-app/pkg/logger"
	"github.com/BurakKama/fullstack-mobile-app/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const identityKey = "identity"

// Identity is the authenticated user projection attached to the request
// context. It never carries the password hash. Handlers downstream may trust
// ID as an authenticated, active user; no handler re-validates status.
type Identity struct {
	ID       uint   `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	UserType string `json:"user_type"`
}

// IdentityFrom returns the identity stored by the Auth middleware.
// The second return is false on routes that did not pass through Auth.
func IdentityFrom(c echo.Context) (*Identity, bool) {
	identity, ok := c.Get(identityKey).(*Identity)
	return identity, ok
}

// Auth validates the bearer token from the Authorization header, loads the
// user it names and rejects missing or inactive accounts. This is the single
// place inactive accounts are excluded from all protected functionality.
func Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateAccessToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// The token names a user; that user must still exist and be active
		var user model.User
		if result := database.GetDB().First(&user, claims.UserID); result.Error != nil {
			log.Error("Token user not found", zap.Uint("user_id", claims.UserID))
			prometheus.RecordAuthError("user_not_found")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or inactive user"})
		}

		if user.Status != model.StatusActive {
			log.Warn("Inactive user rejected", zap.Uint("user_id", user.ID))
			prometheus.RecordAuthError("account_inactive")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or inactive user"})
		}

		c.Set(identityKey, &Identity{
			ID:       user.ID,
			Email:    user.Email,
			FullName: user.FullName,
			UserType: user.UserType,
		})

		return next(c)
	}
}
