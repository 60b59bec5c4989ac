package payroll_import

import (
	"errors"
	"io"
	"strconv"
	"time"

	"go-payroll/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ImportController struct {
	Service ImportService
}

func NewImportController(service ImportService) *ImportController {
	return &ImportController{Service: service}
}

// Preview godoc
// @Summary Preview payroll upload
// @Description Validate an .xlsx payroll sheet and issue a single-use preview token
// @Tags payroll-import
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Payroll workbook"
// @Param year formData int false "Payroll year"
// @Param month formData int false "Payroll month"
// @Param uploadId formData string false "Progress channel id"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/payroll-import/preview [post]
func (ctrl *ImportController) Preview(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "file is required",
		})
	}
	file, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "failed to open upload",
		})
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "failed to read upload",
		})
	}

	now := time.Now()
	year, _ := strconv.Atoi(c.FormValue("year", strconv.Itoa(now.Year())))
	month, _ := strconv.Atoi(c.FormValue("month", strconv.Itoa(int(now.Month()))))

	resp, err := ctrl.Service.Preview(c.UserContext(), PreviewRequest{
		FileName: fh.Filename,
		MIMEType: fh.Header.Get("Content-Type"),
		Data:     data,
		Period:   Period{Year: year, Month: month},
		Actor:    middleware.Principal(c),
		UploadID: c.FormValue("uploadId"),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"previewToken": resp.PreviewToken,
		"expiresIn":    resp.ExpiresIn,
		"data":         resp.Data,
	})
}

type confirmBody struct {
	PreviewToken   string `json:"previewToken"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// Confirm godoc
// @Summary Confirm payroll import
// @Description Commit the rows of a preview; retries with the same idempotency key replay the first outcome
// @Tags payroll-import
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Idempotency key when not in the body"
// @Success 200 {object} ConfirmResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Failure 422 {object} ConfirmResponse
// @Failure 500 {object} ConfirmResponse
// @Router /api/payroll-import/confirm [post]
func (ctrl *ImportController) Confirm(c *fiber.Ctx) error {
	var body confirmBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}
	if body.IdempotencyKey == "" {
		body.IdempotencyKey = c.Get("Idempotency-Key")
	}

	resp, err := ctrl.Service.Confirm(c.UserContext(), ConfirmRequest{
		Token:          body.PreviewToken,
		IdempotencyKey: body.IdempotencyKey,
		Actor:          middleware.Principal(c),
	})
	if err != nil {
		return writeError(c, err)
	}

	status := fiber.StatusOK
	switch {
	case resp.Success:
	case resp.OperationID == "":
		status = fiber.StatusUnprocessableEntity
	default:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(resp)
}

// Guide godoc
// @Summary Recovery guide
// @Tags payroll-import
// @Produce json
// @Param token path string true "Preview token"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 410 {object} map[string]interface{}
// @Router /api/payroll-import/{token}/guide [get]
func (ctrl *ImportController) Guide(c *fiber.Ctx) error {
	guide, err := ctrl.Service.Guide(c.UserContext(), c.Params("token"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"recoveryGuide": guide,
	})
}

// CorrectedFile godoc
// @Summary Download corrected workbook
// @Tags payroll-import
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param token path string true "Preview token"
// @Param substitutions query bool false "Return the substitution list as JSON instead"
// @Success 200 {file} file
// @Failure 404 {object} map[string]interface{}
// @Router /api/payroll-import/{token}/corrected [get]
func (ctrl *ImportController) CorrectedFile(c *fiber.Ctx) error {
	data, subs, err := ctrl.Service.CorrectedFile(c.UserContext(), c.Params("token"))
	if err != nil {
		return writeError(c, err)
	}
	if c.QueryBool("substitutions") {
		return c.JSON(fiber.Map{
			"success":       true,
			"substitutions": subs,
		})
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="payroll-corrected.xlsx"`)
	c.Set("X-Substitutions", strconv.Itoa(len(subs)))
	return c.Send(data)
}

// CacheStats godoc
// @Summary Preview cache statistics
// @Tags payroll-import
// @Produce json
// @Success 200 {object} CacheStats
// @Router /api/payroll-import/cache/stats [get]
func (ctrl *ImportController) CacheStats(c *fiber.Ctx) error {
	return c.JSON(ctrl.Service.CacheStats())
}

func writeError(c *fiber.Ctx, err error) error {
	if se, ok := AsStructural(err); ok {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"success":       false,
			"error":         se.Kind,
			"message":       se.Message,
			"recoveryGuide": StructuralGuideFor(se),
		})
	}
	if se, ok := AsSession(err); ok {
		return c.Status(sessionErrorStatus(se.Kind)).JSON(fiber.Map{
			"success": false,
			"error":   se.Kind,
			"message": se.Message,
		})
	}
	if errors.Is(err, ErrInvalidRequest) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"error":   err.Error(),
	})
}

func sessionErrorStatus(kind SessionKind) int {
	switch kind {
	case SessionNotFound:
		return fiber.StatusNotFound
	case SessionExpired:
		return fiber.StatusGone
	case SessionAlreadyConsumed:
		return fiber.StatusConflict
	}
	return fiber.StatusBadRequest
}
