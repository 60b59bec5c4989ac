package snapshot

import (
	"go-payroll/internal/common/api"
	"go-payroll/internal/config"
	"go-payroll/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type SnapshotApi struct {
	controller *SnapshotController
	config     *config.Config
}

func NewSnapshotApi(controller *SnapshotController, config *config.Config) api.Route {
	return &SnapshotApi{
		controller: controller,
		config:     config,
	}
}

func (h *SnapshotApi) Setup(app *fiber.App) {
	rollback := app.Group("/api/rollback", middleware.AuthMiddleware(h.config.SkipAuth))

	rollback.Post("/:operationId", middleware.RequireRole(middleware.RolePayrollAdmin), h.controller.Rollback)
	rollback.Get("/:operationId/status", h.controller.Status)
}
