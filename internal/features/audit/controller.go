package audit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type AuditController struct {
	Service AuditService
}

func NewAuditController(service AuditService) *AuditController {
	return &AuditController{Service: service}
}

// ListEvents godoc
// @Summary List rollback audit events
// @Tags audit
// @Produce json
// @Param operationId query string false "Operation ID"
// @Param eventType query string false "Event type"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Router /api/audit/rollback-events [get]
func (ctrl *AuditController) ListEvents(c *fiber.Ctx) error {
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)

	filter := ListFilter{
		OperationID: c.Query("operationId"),
		EventType:   EventType(c.Query("eventType")),
	}

	result, err := ctrl.Service.List(c.UserContext(), filter, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(result)
}
