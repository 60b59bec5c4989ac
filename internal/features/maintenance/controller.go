package maintenance

import (
	"github.com/gofiber/fiber/v2"
)

type RetentionController struct {
	Service RetentionService
}

func NewRetentionController(service RetentionService) *RetentionController {
	return &RetentionController{Service: service}
}

// Run godoc
// @Summary Run retention now
// @Tags maintenance
// @Produce json
// @Success 200 {object} RunReport
// @Failure 500 {object} map[string]interface{}
// @Router /api/maintenance/retention/run [post]
func (ctrl *RetentionController) Run(c *fiber.Ctx) error {
	report, err := ctrl.Service.RunOnce(c.UserContext(), TriggerManual)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  err.Error(),
			"report": report,
		})
	}
	return c.JSON(report)
}

// Status godoc
// @Summary Retention schedule status
// @Tags maintenance
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/maintenance/retention [get]
func (ctrl *RetentionController) Status(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"lastRun": ctrl.Service.LastRun(),
		"nextRun": ctrl.Service.NextRun(),
	})
}
