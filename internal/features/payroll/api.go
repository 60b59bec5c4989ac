package payroll

import (
	"go-payroll/internal/common/api"
	"go-payroll/internal/config"
	"go-payroll/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type PayrollApi struct {
	controller *PayrollController
	config     *config.Config
}

func NewPayrollApi(controller *PayrollController, config *config.Config) api.Route {
	return &PayrollApi{
		controller: controller,
		config:     config,
	}
}

func (h *PayrollApi) Setup(app *fiber.App) {
	payroll := app.Group("/api/payroll", middleware.AuthMiddleware(h.config.SkipAuth))

	payroll.Get("/", h.controller.List)
}
