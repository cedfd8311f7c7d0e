package auth

import (
	"strings"

	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

const (
	CtxUserIDKey   = "user_id"
	CtxUserRoleKey = "user_role"
	CtxClaimsKey   = "claims"
)

func JWTMiddleware(secret string, denylist Denylist) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return fiber.NewError(fiber.StatusUnauthorized, "Authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, strings.TrimSpace(parts[1]))
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}

		revoked, err := denylist.IsRevoked(c.UserContext(), claims.ID)
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "token check unavailable, try again later")
		}
		if revoked {
			return fiber.NewError(fiber.StatusUnauthorized, "token has been revoked")
		}

		c.Locals(CtxUserIDKey, claims.UserID)
		c.Locals(CtxUserRoleKey, claims.Role)
		c.Locals(CtxClaimsKey, claims)

		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "role information missing")
		}

		for _, r := range allowedRoles {
			if r == role {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "you are not allowed to perform this action")
	}
}

// UserID returns the authenticated user's ID, or 0 outside protected routes.
func UserID(c *fiber.Ctx) uint {
	id, _ := c.Locals(CtxUserIDKey).(uint)
	return id
}

// CurrentClaims returns the verified token claims, or nil outside protected routes.
func CurrentClaims(c *fiber.Ctx) *Claims {
	claims, _ := c.Locals(CtxClaimsKey).(*Claims)
	return claims
}

// Actor is the user recorded on audit and stock log rows.
func Actor(c *fiber.Ctx) (uint, string) {
	if claims := CurrentClaims(c); claims != nil {
		return claims.UserID, claims.Name
	}
	return 0, ""
}
