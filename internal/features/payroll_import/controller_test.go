package payroll_import

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"go-payroll/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T) (*fiber.App, *serviceFixture) {
	t.Helper()
	f := newServiceFixture(t)
	app := fiber.New()
	NewImportApi(
		NewImportController(f.service),
		NewProgressController(f.service, zap.NewNop()),
		&config.Config{SkipAuth: true},
	).Setup(app)
	return app, f
}

func previewRequest(t *testing.T, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.WriteField("year", "2026"))
	require.NoError(t, w.WriteField("month", "3"))
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func decode(t *testing.T, app *fiber.App, method, path, contentType string, body *bytes.Buffer, headers map[string]string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if body != nil {
		req = httptest.NewRequest(method, path, body)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestPreviewAndConfirmOverHTTP(t *testing.T) {
	app, f := newTestApp(t)
	data := buildWorkbook(t, schemaHeaders(), [][]interface{}{payRow("E1", "a", "100"), payRow("E2", "b", "200")})

	body, ct := previewRequest(t, "march.xlsx", data)
	status, out := decode(t, app, "POST", "/api/payroll-import/preview", ct, body, nil)
	require.Equal(t, fiber.StatusOK, status, out)
	token, _ := out["previewToken"].(string)
	require.NotEmpty(t, token)

	confirm := bytes.NewBufferString(`{"previewToken":"` + token + `"}`)
	status, out = decode(t, app, "POST", "/api/payroll-import/confirm", "application/json", confirm,
		map[string]string{"Idempotency-Key": "key-1"})
	require.Equal(t, fiber.StatusOK, status, out)
	assert.Equal(t, true, out["success"])
	assert.Len(t, f.payroll(t), 2)

	confirm = bytes.NewBufferString(`{"previewToken":"` + token + `","idempotencyKey":"key-2"}`)
	status, out = decode(t, app, "POST", "/api/payroll-import/confirm", "application/json", confirm, nil)
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "ALREADY_CONSUMED", out["error"])
}

func TestPreviewStructuralErrorOverHTTP(t *testing.T) {
	app, _ := newTestApp(t)
	data := buildWorkbook(t, []string{"사번", "성명"}, [][]interface{}{{"E1", "a"}})

	body, ct := previewRequest(t, "march.xlsx", data)
	status, out := decode(t, app, "POST", "/api/payroll-import/preview", ct, body, nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
	assert.Equal(t, "MISSING_COLUMNS", out["error"])
	guide, ok := out["recoveryGuide"].(map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, guide["steps"])
}

func TestGuideUnknownTokenOverHTTP(t *testing.T) {
	app, _ := newTestApp(t)
	status, out := decode(t, app, "GET", "/api/payroll-import/nope/guide", "", nil, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.True(t, strings.Contains(out["error"].(string), "NOT_FOUND"))
}
