package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-platform/internal/domain"
	apperrors "github.com/spec-kit/support-platform/pkg/util"
)

// RequireAdmin ensures the caller holds the administrative tier.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.User == nil || principal.User.Role != domain.UserRoleAdmin {
			return apperrors.NewForbidden("admin required")
		}
		return c.Next()
	}
}
