package maintenance

import (
	"go-payroll/internal/common/api"
	"go-payroll/internal/config"
	"go-payroll/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RetentionApi struct {
	controller *RetentionController
	config     *config.Config
}

func NewRetentionApi(controller *RetentionController, config *config.Config) api.Route {
	return &RetentionApi{
		controller: controller,
		config:     config,
	}
}

func (h *RetentionApi) Setup(app *fiber.App) {
	group := app.Group("/api/maintenance", middleware.AuthMiddleware(h.config.SkipAuth), middleware.RequireRole(middleware.RolePayrollAdmin))

	group.Get("/retention", h.controller.Status)
	group.Post("/retention/run", h.controller.Run)
}
