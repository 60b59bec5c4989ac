package payroll_import

import (
	"go-payroll/internal/common/api"
	"go-payroll/internal/config"
	"go-payroll/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type ImportApi struct {
	controller *ImportController
	progress   *ProgressController
	config     *config.Config
}

func NewImportApi(controller *ImportController, progress *ProgressController, config *config.Config) api.Route {
	return &ImportApi{
		controller: controller,
		progress:   progress,
		config:     config,
	}
}

func (h *ImportApi) Setup(app *fiber.App) {
	// browsers cannot send auth headers on a websocket handshake
	app.Use("/api/payroll-import/progress", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/api/payroll-import/progress/:uploadId", websocket.New(h.progress.Stream))

	imports := app.Group("/api/payroll-import", middleware.AuthMiddleware(h.config.SkipAuth))

	imports.Post("/preview", h.controller.Preview)
	imports.Post("/confirm", middleware.RequireRole(middleware.RolePayrollAdmin), h.controller.Confirm)
	imports.Get("/cache/stats", h.controller.CacheStats)
	imports.Get("/:token/guide", h.controller.Guide)
	imports.Get("/:token/corrected", h.controller.CorrectedFile)
}
