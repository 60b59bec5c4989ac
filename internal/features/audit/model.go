package audit

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const CollectionName = "snapshot_audit"

type EventType string

const (
	EventSnapshotCreated    EventType = "SNAPSHOT_CREATED"
	EventOperationCommitted EventType = "OPERATION_COMMITTED"
	EventRollbackCompleted  EventType = "ROLLBACK_COMPLETED"
	EventRollbackPartial    EventType = "ROLLBACK_PARTIAL"
	EventRollbackFailed     EventType = "ROLLBACK_FAILED"
)

// AuditEvent is one append-only lifecycle record of a snapshot operation.
type AuditEvent struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	OperationID string             `bson:"operation_id" json:"operationId"`
	EventType   EventType          `bson:"event_type" json:"eventType"`
	Timestamp   time.Time          `bson:"timestamp" json:"timestamp"`
	Actor       string             `bson:"actor,omitempty" json:"actor,omitempty"`
	Data        bson.M             `bson:"data,omitempty" json:"data,omitempty"`
}

// ListFilter narrows an operator listing. Zero fields match everything.
type ListFilter struct {
	OperationID string
	EventType   EventType
	Since       time.Time
	Until       time.Time
}

type Page struct {
	Events []AuditEvent `json:"events"`
	Total  int64        `json:"total"`
	Page   int64        `json:"page"`
	Limit  int64        `json:"limit"`
}
