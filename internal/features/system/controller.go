package system

import (
	"context"
	"time"

	"go-payroll/internal/database"
	"go-payroll/pkg/utils"

	"github.com/gofiber/fiber/v2"
)

type SystemController struct {
	Store   database.DocumentStore
	started time.Time
}

func NewSystemController(store database.DocumentStore) *SystemController {
	return &SystemController{Store: store, started: time.Now()}
}

// Health godoc
// @Summary      Health Check
// @Tags         system
// @Produce      json
// @Router       /health [get]
func (ctrl *SystemController) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	strategy := "compensating"
	if ctrl.Store.SupportsTransactions(ctx) {
		strategy = "atomic"
	}
	return c.JSON(fiber.Map{
		"status":           "ok",
		"uptime":           time.Since(ctrl.started).Round(time.Second).String(),
		"rollbackStrategy": strategy,
	})
}

// WhoAmI returns the principal the auth middleware resolved.
func (ctrl *SystemController) WhoAmI(c *fiber.Ctx) error {
	claims, _ := c.Locals(utils.UserClaimsKey).(*utils.UserClaims)
	if claims == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "no principal"})
	}
	return c.JSON(fiber.Map{
		"user_id": claims.UserID,
		"name":    claims.Name,
		"roles":   claims.Roles,
	})
}
