package audit

import (
	"context"
	"sort"
	"time"

	"go-payroll/internal/database"

	"go.mongodb.org/mongo-driver/bson"
)

type AuditRepository interface {
	Create(ctx context.Context, event AuditEvent) error
	ListByOperation(ctx context.Context, operationID string) ([]AuditEvent, error)
	List(ctx context.Context, filter ListFilter, limit, offset int64) ([]AuditEvent, error)
	Count(ctx context.Context, filter ListFilter) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditRepositoryImpl struct {
	Store database.DocumentStore
}

func NewAuditRepository(store database.DocumentStore) AuditRepository {
	return &AuditRepositoryImpl{Store: store}
}

func (r *AuditRepositoryImpl) Create(ctx context.Context, event AuditEvent) error {
	doc, err := database.ToDocument(event)
	if err != nil {
		return err
	}
	return r.Store.InsertMany(ctx, CollectionName, []bson.M{doc})
}

func (r *AuditRepositoryImpl) ListByOperation(ctx context.Context, operationID string) ([]AuditEvent, error) {
	docs, err := r.Store.Find(ctx, CollectionName, bson.M{"operation_id": operationID}, database.SortBy("timestamp", false))
	if err != nil {
		return nil, err
	}
	events, err := decodeEvents(docs)
	if err != nil {
		return nil, err
	}
	// events recorded within the same millisecond keep their creation order
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		return events[i].ID.Hex() < events[j].ID.Hex()
	})
	return events, nil
}

func (r *AuditRepositoryImpl) List(ctx context.Context, filter ListFilter, limit, offset int64) ([]AuditEvent, error) {
	docs, err := r.Store.Find(ctx, CollectionName, filter.query(),
		database.SortBy("timestamp", true), database.Limit(limit), database.Skip(offset))
	if err != nil {
		return nil, err
	}
	return decodeEvents(docs)
}

func (r *AuditRepositoryImpl) Count(ctx context.Context, filter ListFilter) (int64, error) {
	return r.Store.Count(ctx, CollectionName, filter.query())
}

func (r *AuditRepositoryImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.Store.DeleteMany(ctx, CollectionName, bson.M{"timestamp": bson.M{"$lt": cutoff}})
}

func (f ListFilter) query() bson.M {
	query := bson.M{}
	if f.OperationID != "" {
		query["operation_id"] = f.OperationID
	}
	if f.EventType != "" {
		query["event_type"] = string(f.EventType)
	}
	ts := bson.M{}
	if !f.Since.IsZero() {
		ts["$gte"] = f.Since
	}
	if !f.Until.IsZero() {
		ts["$lt"] = f.Until
	}
	if len(ts) > 0 {
		query["timestamp"] = ts
	}
	return query
}

func decodeEvents(docs []bson.M) ([]AuditEvent, error) {
	events := make([]AuditEvent, 0, len(docs))
	for _, doc := range docs {
		var ev AuditEvent
		if err := database.Decode(doc, &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
