package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/domain"
	apperrors "github.com/fieldops/workorder-service/pkg/util"
)

// RequireAuthenticated ensures the caller carries a valid principal.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the principal has the admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.Actor.Role != domain.RoleAdmin {
			return apperrors.NewPermissionDenied("admin role required")
		}
		return c.Next()
	}
}
