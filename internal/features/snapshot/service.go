package snapshot

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-payroll/internal/config"
	"go-payroll/internal/database"
	"go-payroll/internal/features/audit"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SnapshotManager captures the state a bulk write is about to change and can
// restore it afterwards.
type SnapshotManager interface {
	CreateSnapshot(ctx context.Context, operationID string, selectors map[string]bson.M) (*Snapshot, error)
	MarkCommitted(ctx context.Context, operationID string, data bson.M)
	Rollback(ctx context.Context, operationID string) (*RollbackResult, error)
	Status(ctx context.Context, operationID string) (*OperationStatus, error)
	CleanupExpiredData(ctx context.Context) (*CleanupResult, error)
}

type SnapshotManagerImpl struct {
	Repo   SnapshotRepository
	Audit  audit.AuditService
	Store  database.DocumentStore
	Config config.ImportConfig
	Logger *zap.Logger

	// Transactor overrides the strategy chosen from store capabilities.
	Transactor Transactor

	rollbacks singleflight.Group
	now       func() time.Time
}

func NewSnapshotManager(repo SnapshotRepository, auditService audit.AuditService, store database.DocumentStore, cfg *config.Config, logger *zap.Logger) SnapshotManager {
	return &SnapshotManagerImpl{
		Repo:   repo,
		Audit:  auditService,
		Store:  store,
		Config: cfg.Import,
		Logger: logger.Named("snapshot"),
		now:    time.Now,
	}
}

func (m *SnapshotManagerImpl) CreateSnapshot(ctx context.Context, operationID string, selectors map[string]bson.M) (*Snapshot, error) {
	existing, err := m.Repo.FindByOperation(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing snapshot: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotExists, operationID)
	}

	now := m.now().UTC().Truncate(time.Millisecond)
	snap := &Snapshot{
		ID:          primitive.NewObjectID(),
		OperationID: operationID,
		Timestamp:   now,
		ExpiresAt:   now.Add(m.Config.SnapshotRetention),
	}

	names := make([]string, 0, len(selectors))
	for name := range selectors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sel := selectors[name]
		if sel == nil {
			sel = bson.M{}
		}
		docs, err := m.Store.Find(ctx, name, sel)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s for snapshot: %w", name, err)
		}
		snap.Collections = append(snap.Collections, CollectionSnapshot{Name: name, Selector: sel, Documents: docs})
		snap.DocumentCount += len(docs)
	}

	if err := m.Repo.Create(ctx, snap); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	snapshotsCreated.Inc()

	m.record(ctx, operationID, audit.EventSnapshotCreated, bson.M{
		"collections":    names,
		"document_count": snap.DocumentCount,
		"expires_at":     snap.ExpiresAt,
	})
	m.Logger.Info("snapshot created",
		zap.String("operation_id", operationID),
		zap.Strings("collections", names),
		zap.Int("documents", snap.DocumentCount))
	return snap, nil
}

func (m *SnapshotManagerImpl) MarkCommitted(ctx context.Context, operationID string, data bson.M) {
	m.record(ctx, operationID, audit.EventOperationCommitted, data)
}

// Rollback restores the snapshot of operationID. Concurrent calls for the
// same operation share one execution.
func (m *SnapshotManagerImpl) Rollback(ctx context.Context, operationID string) (*RollbackResult, error) {
	v, err, _ := m.rollbacks.Do(operationID, func() (interface{}, error) {
		return m.rollback(ctx, operationID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*RollbackResult), nil
}

func (m *SnapshotManagerImpl) rollback(ctx context.Context, operationID string) (*RollbackResult, error) {
	snap, err := m.Repo.FindByOperation(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	if snap == nil {
		return nil, rollbackError(ErrSnapshotNotFound, operationID)
	}
	started := m.now().UTC()
	if snap.Expired(started) {
		return nil, rollbackError(ErrSnapshotExpired, operationID)
	}

	events, err := m.Audit.ListByOperation(ctx, operationID)
	if err != nil {
		m.Logger.Warn("failed to read audit trail before rollback", zap.String("operation_id", operationID), zap.Error(err))
	} else if DeriveState(events) == StateRolledBack {
		return nil, rollbackError(ErrAlreadyRolledBack, operationID)
	}

	plans := buildPlans(snap, operationID, started)
	tx := m.transactor(ctx)
	collections, failed := tx.Execute(ctx, plans)

	result := &RollbackResult{
		OperationID: operationID,
		Strategy:    tx.Strategy(),
		Collections: collections,
		FailedSteps: failed,
		StartedAt:   started,
		FinishedAt:  m.now().UTC(),
	}
	succeeded := 0
	for _, c := range collections {
		if c.Success {
			succeeded++
		}
	}
	eventType := audit.EventRollbackCompleted
	switch {
	case len(failed) == 0:
		result.Status = RollbackCompleted
		result.Success = true
	case succeeded > 0:
		result.Status = RollbackPartial
		eventType = audit.EventRollbackPartial
	default:
		result.Status = RollbackFailed
		eventType = audit.EventRollbackFailed
	}
	rollbackTotal.WithLabelValues(string(result.Status), result.Strategy).Inc()

	m.record(ctx, operationID, eventType, bson.M{
		"strategy":     result.Strategy,
		"status":       string(result.Status),
		"collections":  collectionSummary(collections),
		"failed_steps": failedSummary(failed),
	})

	fields := []zap.Field{
		zap.String("operation_id", operationID),
		zap.String("strategy", result.Strategy),
		zap.String("status", string(result.Status)),
	}
	if result.Success {
		m.Logger.Info("rollback completed", fields...)
	} else {
		m.Logger.Error("rollback needs operator attention", append(fields, zap.Any("failed_steps", failed))...)
	}
	return result, nil
}

func (m *SnapshotManagerImpl) transactor(ctx context.Context) Transactor {
	if m.Transactor != nil {
		return m.Transactor
	}
	if !m.Config.ForceCompensating && m.Store.SupportsTransactions(ctx) {
		return NewAtomicTransactor(m.Store)
	}
	return NewCompensatingTransactor(m.Store)
}

func buildPlans(snap *Snapshot, operationID string, now time.Time) []CollectionPlan {
	plans := make([]CollectionPlan, 0, len(snap.Collections))
	for _, c := range snap.Collections {
		plan := CollectionPlan{
			Collection: c.Name,
			Selector:   c.Selector,
			Since:      snap.Timestamp,
		}
		seen := make(map[interface{}]bool)
		addID := func(id interface{}) {
			if id == nil {
				return
			}
			key := fmt.Sprintf("%T:%v", id, id)
			if !seen[key] {
				seen[key] = true
				plan.IDs = append(plan.IDs, id)
			}
		}
		for _, doc := range c.Documents {
			restored := make(bson.M, len(doc)+4)
			for k, v := range doc {
				if k != "_id" {
					restored[k] = v
				}
			}
			addID(doc["_id"])
			if orig, ok := doc[FieldOriginalID]; ok && orig != nil {
				addID(orig)
			} else {
				restored[FieldOriginalID] = doc["_id"]
			}
			restored[FieldRestoredFromSnapshot] = true
			restored[FieldRestoredAt] = now
			restored[FieldRestoredBy] = operationID
			plan.Restore = append(plan.Restore, restored)
		}
		plans = append(plans, plan)
	}
	return plans
}

func collectionSummary(results []CollectionResult) bson.A {
	out := bson.A{}
	for _, r := range results {
		out = append(out, bson.M{
			"name":            r.Name,
			"success":         r.Success,
			"new_deleted":     r.NewDeleted,
			"current_deleted": r.CurrentDeleted,
			"restored":        r.Restored,
		})
	}
	return out
}

func failedSummary(failed []FailedStep) bson.A {
	out := bson.A{}
	for _, f := range failed {
		out = append(out, bson.M{"collection": f.Collection, "step": f.Step, "error": f.Error})
	}
	return out
}

func (m *SnapshotManagerImpl) Status(ctx context.Context, operationID string) (*OperationStatus, error) {
	snap, err := m.Repo.FindByOperation(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	events, err := m.Audit.ListByOperation(ctx, operationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit trail: %w", err)
	}

	status := &OperationStatus{
		OperationID: operationID,
		State:       DeriveState(events),
		AuditEvents: len(events),
		Timeline:    make([]TimelineEntry, 0, len(events)),
	}
	if snap != nil {
		status.HasSnapshot = true
		status.SnapshotExpired = snap.Expired(m.now())
		ts, exp := snap.Timestamp, snap.ExpiresAt
		status.SnapshotTime = &ts
		status.ExpiresAt = &exp
		for _, c := range snap.Collections {
			status.Collections = append(status.Collections, CollectionInfo{
				Name:          c.Name,
				DocumentCount: len(c.Documents),
				Selector:      c.Selector,
			})
		}
	}
	for _, ev := range events {
		status.Timeline = append(status.Timeline, TimelineEntry{
			EventType: ev.EventType,
			Timestamp: ev.Timestamp,
			Actor:     ev.Actor,
			Data:      ev.Data,
		})
	}
	return status, nil
}

// CleanupExpiredData enforces both retention windows.
func (m *SnapshotManagerImpl) CleanupExpiredData(ctx context.Context) (*CleanupResult, error) {
	now := m.now().UTC()
	snaps, err := m.Repo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}
	events, err := m.Audit.DeleteOlderThan(ctx, now.Add(-m.Config.AuditRetention))
	if err != nil {
		return &CleanupResult{SnapshotsDeleted: snaps}, fmt.Errorf("failed to delete expired audit events: %w", err)
	}
	if snaps > 0 || events > 0 {
		m.Logger.Info("retention cleanup",
			zap.Int64("snapshots_deleted", snaps),
			zap.Int64("audit_events_deleted", events))
	}
	return &CleanupResult{SnapshotsDeleted: snaps, AuditEventsDeleted: events}, nil
}

// record persists an audit event. Failures are logged and dropped so they
// never change the outcome reported to the caller.
func (m *SnapshotManagerImpl) record(ctx context.Context, operationID string, eventType audit.EventType, data bson.M) {
	if err := m.Audit.Record(ctx, operationID, eventType, data); err != nil {
		auditWriteFailures.Inc()
		m.Logger.Error("failed to record audit event",
			zap.String("operation_id", operationID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}
