package snapshot

import (
	"time"

	"go-payroll/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CollectionName = "snapshots"

// Fields written on restored documents.
const (
	FieldCreatedAt            = "created_at"
	FieldOriginalID           = "original_id"
	FieldRestoredFromSnapshot = "restored_from_snapshot"
	FieldRestoredAt           = "restored_at"
	FieldRestoredBy           = "restored_by_operation"
)

// CollectionSnapshot is the "before" state of one collection.
type CollectionSnapshot struct {
	Name      string   `bson:"name" json:"name"`
	Selector  bson.M   `bson:"-" json:"selector"`
	Documents []bson.M `bson:"documents" json:"-"`
	// SelectorJSON is Selector as canonical Extended JSON; query operators
	// cannot be stored as field names.
	SelectorJSON string `bson:"selector" json:"-"`
}

// Snapshot is immutable once created. Rollback only reads it.
type Snapshot struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	OperationID   string               `bson:"operation_id" json:"operationId"`
	Timestamp     time.Time            `bson:"timestamp" json:"timestamp"`
	ExpiresAt     time.Time            `bson:"expires_at" json:"expiresAt"`
	Collections   []CollectionSnapshot `bson:"collections" json:"collections"`
	DocumentCount int                  `bson:"document_count" json:"documentCount"`
}

func (s *Snapshot) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// OperationState is where an operation stands, derived from its audit trail.
type OperationState string

const (
	StateNone            OperationState = "NONE"
	StateSnapshotted     OperationState = "SNAPSHOTTED"
	StateCommitted       OperationState = "COMMITTED"
	StateRolledBack      OperationState = "ROLLED_BACK"
	StateRollbackPartial OperationState = "ROLLBACK_PARTIAL"
	StateRollbackFailed  OperationState = "ROLLBACK_FAILED"
)

// DeriveState replays events in order; the last transition wins.
func DeriveState(events []audit.AuditEvent) OperationState {
	state := StateNone
	for _, ev := range events {
		switch ev.EventType {
		case audit.EventSnapshotCreated:
			state = StateSnapshotted
		case audit.EventOperationCommitted:
			state = StateCommitted
		case audit.EventRollbackCompleted:
			state = StateRolledBack
		case audit.EventRollbackPartial:
			state = StateRollbackPartial
		case audit.EventRollbackFailed:
			state = StateRollbackFailed
		}
	}
	return state
}

type RollbackStatus string

const (
	RollbackCompleted RollbackStatus = "COMPLETED"
	RollbackPartial   RollbackStatus = "PARTIAL"
	RollbackFailed    RollbackStatus = "FAILED"
)

// Rollback steps, in execution order.
const (
	StepDeleteNew     = "delete_new"
	StepDeleteCurrent = "delete_current"
	StepRestore       = "restore"
)

type CollectionResult struct {
	Name           string `json:"name"`
	NewDeleted     int64  `json:"newDeleted"`
	CurrentDeleted int64  `json:"currentDeleted"`
	Restored       int    `json:"restored"`
	Success        bool   `json:"success"`
	Error          string `json:"error,omitempty"`
}

type FailedStep struct {
	Collection string `json:"collection"`
	Step       string `json:"step"`
	Error      string `json:"error"`
}

// RollbackResult reports the outcome of a rollback. Partial and failed
// rollbacks are results, not errors; they need an operator.
type RollbackResult struct {
	OperationID string             `json:"operationId"`
	Success     bool               `json:"success"`
	Status      RollbackStatus     `json:"status"`
	Strategy    string             `json:"strategy"`
	Collections []CollectionResult `json:"collections"`
	FailedSteps []FailedStep       `json:"failedSteps,omitempty"`
	StartedAt   time.Time          `json:"startedAt"`
	FinishedAt  time.Time          `json:"finishedAt"`
}

type TimelineEntry struct {
	EventType audit.EventType `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Actor     string          `json:"actor,omitempty"`
	Data      bson.M          `json:"data,omitempty"`
}

type CollectionInfo struct {
	Name          string `json:"name"`
	DocumentCount int    `json:"documentCount"`
	Selector      bson.M `json:"selector"`
}

type OperationStatus struct {
	OperationID     string           `json:"operationId"`
	HasSnapshot     bool             `json:"hasSnapshot"`
	SnapshotExpired bool             `json:"snapshotExpired"`
	State           OperationState   `json:"state"`
	SnapshotTime    *time.Time       `json:"snapshotTime,omitempty"`
	ExpiresAt       *time.Time       `json:"expiresAt,omitempty"`
	Collections     []CollectionInfo `json:"collections,omitempty"`
	AuditEvents     int              `json:"auditEvents"`
	Timeline        []TimelineEntry  `json:"timeline"`
}

type CleanupResult struct {
	SnapshotsDeleted   int64 `json:"snapshotsDeleted"`
	AuditEventsDeleted int64 `json:"auditEventsDeleted"`
}
