package snapshot

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

type SnapshotController struct {
	Manager SnapshotManager
}

func NewSnapshotController(manager SnapshotManager) *SnapshotController {
	return &SnapshotController{Manager: manager}
}

// Rollback godoc
// @Summary Roll back an import
// @Description Restore the payroll period to the snapshot taken before the operation
// @Tags rollback
// @Produce json
// @Param operationId path string true "Operation ID"
// @Success 200 {object} RollbackResult
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/rollback/{operationId} [post]
func (ctrl *SnapshotController) Rollback(c *fiber.Ctx) error {
	operationID := c.Params("operationId")

	result, err := ctrl.Manager.Rollback(c.UserContext(), operationID)
	if err != nil {
		var rbErr *RollbackError
		if errors.As(err, &rbErr) {
			return c.Status(rollbackErrorStatus(rbErr.Kind)).JSON(fiber.Map{
				"success": false,
				"error":   rbErr.Kind,
				"message": rbErr.Message,
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	status := fiber.StatusOK
	if !result.Success {
		// partial or failed rollbacks need manual follow-up
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(result)
}

// Status godoc
// @Summary Operation status
// @Tags rollback
// @Produce json
// @Param operationId path string true "Operation ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/rollback/{operationId}/status [get]
func (ctrl *SnapshotController) Status(c *fiber.Ctx) error {
	status, err := ctrl.Manager.Status(c.UserContext(), c.Params("operationId"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(status)
}

func rollbackErrorStatus(kind RollbackKind) int {
	switch kind {
	case KindSnapshotNotFound:
		return fiber.StatusNotFound
	case KindSnapshotExpired:
		return fiber.StatusGone
	case KindAlreadyRolledBack:
		return fiber.StatusConflict
	}
	return fiber.StatusBadRequest
}
