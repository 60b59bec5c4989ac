package payroll_import

import (
	"errors"
	"fmt"
	"strings"
)

// StructuralKind identifies a failure that aborts an import before any row is
// validated.
type StructuralKind string

const (
	StructuralMissingColumns     StructuralKind = "MISSING_COLUMNS"
	StructuralEmptySheet         StructuralKind = "EMPTY_SHEET"
	StructuralUnreadableWorkbook StructuralKind = "UNREADABLE_WORKBOOK"
	StructuralInvalidFile        StructuralKind = "INVALID_FILE"
)

// StructuralError is returned by the parser and by Preview when the upload as
// a whole cannot be processed.
type StructuralError struct {
	Kind    StructuralKind
	Message string
	// Missing lists absent headers for MISSING_COLUMNS.
	Missing []string
	// Reasons lists FileValidator rejections for INVALID_FILE.
	Reasons []string
	Err     error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StructuralError) Unwrap() error { return e.Err }

func missingColumnsError(missing []string) *StructuralError {
	return &StructuralError{
		Kind:    StructuralMissingColumns,
		Message: "required columns missing: " + strings.Join(missing, ", "),
		Missing: missing,
	}
}

// SessionKind identifies a confirm-time failure.
type SessionKind string

const (
	SessionNotFound        SessionKind = "SESSION_NOT_FOUND"
	SessionExpired         SessionKind = "SESSION_EXPIRED"
	SessionAlreadyConsumed SessionKind = "ALREADY_CONSUMED"
)

var (
	ErrSessionNotFound = &SessionError{Kind: SessionNotFound, Message: "preview token not found"}
	ErrSessionExpired  = &SessionError{Kind: SessionExpired, Message: "preview token expired, upload the file again"}
	ErrAlreadyConsumed = &SessionError{Kind: SessionAlreadyConsumed, Message: "preview token was already confirmed"}
	errNothingToCommit = errors.New("no committable rows")
)

// SessionError reports a rejected confirm. No write has happened when it is
// returned.
type SessionError struct {
	Kind    SessionKind
	Message string
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches on Kind so wrapped copies compare equal to the sentinels.
func (e *SessionError) Is(target error) bool {
	t, ok := target.(*SessionError)
	return ok && t.Kind == e.Kind
}

// AsStructural extracts a StructuralError from err.
func AsStructural(err error) (*StructuralError, bool) {
	var se *StructuralError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// AsSession extracts a SessionError from err.
func AsSession(err error) (*SessionError, bool) {
	var se *SessionError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
