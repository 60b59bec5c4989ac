package payroll_import

import (
	"fmt"
	"path/filepath"
	"strings"
)

var allowedExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var allowedMIMETypes = map[string]bool{
	xlsxContentType:            true,
	"application/vnd.ms-excel": true,
	"application/octet-stream": true,
}

// FileMeta is what the validator sees of an upload. The content is never
// inspected here.
type FileMeta struct {
	Name     string
	MIMEType string
	Size     int64
}

type FileValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// FileValidator checks upload constraints before any parsing.
type FileValidator struct {
	MaxBytes int64
}

func NewFileValidator(maxBytes int64) *FileValidator {
	return &FileValidator{MaxBytes: maxBytes}
}

// Validate collects every reason the upload is rejected.
func (v *FileValidator) Validate(meta FileMeta) FileValidation {
	var errs []string

	ext := strings.ToLower(filepath.Ext(meta.Name))
	if !allowedExtensions[ext] {
		errs = append(errs, fmt.Sprintf("unsupported file extension %q: only .xlsx and .xls are accepted", ext))
	}

	mime := strings.ToLower(strings.TrimSpace(meta.MIMEType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if !allowedMIMETypes[mime] {
		errs = append(errs, fmt.Sprintf("unsupported content type %q", meta.MIMEType))
	}

	switch {
	case meta.Size <= 0:
		errs = append(errs, "file is empty")
	case v.MaxBytes > 0 && meta.Size > v.MaxBytes:
		errs = append(errs, fmt.Sprintf("file size %d bytes exceeds the %d byte limit", meta.Size, v.MaxBytes))
	}

	return FileValidation{Valid: len(errs) == 0, Errors: errs}
}
