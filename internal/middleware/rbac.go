package middleware

import (
	"go-payroll/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

// RolePayrollAdmin may confirm imports and trigger rollbacks.
const RolePayrollAdmin = "payroll_admin"

// RequireRole rejects principals that do not carry role.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		if !claims.HasRole(role) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Insufficient permissions",
			})
		}

		return c.Next()
	}
}
