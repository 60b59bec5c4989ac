package payroll

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

type PayrollController struct {
	Service PayrollService
}

func NewPayrollController(service PayrollService) *PayrollController {
	return &PayrollController{Service: service}
}

// List godoc
// @Summary List payroll records
// @Tags payroll
// @Produce json
// @Param year query int true "Payroll year"
// @Param month query int true "Payroll month"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/payroll [get]
func (ctrl *PayrollController) List(c *fiber.Ctx) error {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	page, _ := strconv.ParseInt(c.Query("page", "1"), 10, 64)
	limit, _ := strconv.ParseInt(c.Query("limit", "50"), 10, 64)

	result, err := ctrl.Service.List(c.UserContext(), year, month, page, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(result)
}
