package snapshot

import (
	"errors"
	"fmt"
)

type RollbackKind string

const (
	KindSnapshotNotFound  RollbackKind = "SNAPSHOT_NOT_FOUND"
	KindSnapshotExpired   RollbackKind = "SNAPSHOT_EXPIRED"
	KindAlreadyRolledBack RollbackKind = "ALREADY_ROLLED_BACK"
)

var (
	ErrSnapshotNotFound  = &RollbackError{Kind: KindSnapshotNotFound, Message: "no snapshot exists for this operation"}
	ErrSnapshotExpired   = &RollbackError{Kind: KindSnapshotExpired, Message: "snapshot is past its retention window"}
	ErrAlreadyRolledBack = &RollbackError{Kind: KindAlreadyRolledBack, Message: "operation was already rolled back"}

	ErrSnapshotExists = errors.New("snapshot already exists for operation")
)

// RollbackError rejects a rollback before anything was changed.
type RollbackError struct {
	Kind        RollbackKind
	OperationID string
	Message     string
}

func (e *RollbackError) Error() string {
	if e.OperationID == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (operation %s)", e.Kind, e.Message, e.OperationID)
}

func (e *RollbackError) Is(target error) bool {
	t, ok := target.(*RollbackError)
	return ok && t.Kind == e.Kind
}

func rollbackError(base *RollbackError, operationID string) *RollbackError {
	return &RollbackError{Kind: base.Kind, OperationID: operationID, Message: base.Message}
}

// stepError tags a store failure with the rollback step it happened in.
type stepError struct {
	step string
	err  error
}

func (e *stepError) Error() string { return e.step + ": " + e.err.Error() }

func (e *stepError) Unwrap() error { return e.err }

func stepOf(err error) string {
	var se *stepError
	if errors.As(err, &se) {
		return se.step
	}
	return ""
}
