package snapshot

import (
	"context"
	"fmt"
	"time"

	"go-payroll/internal/database"

	"go.mongodb.org/mongo-driver/bson"
)

type SnapshotRepository interface {
	Create(ctx context.Context, snap *Snapshot) error
	FindByOperation(ctx context.Context, operationID string) (*Snapshot, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	EnsureIndexes(ctx context.Context) error
}

type SnapshotRepositoryImpl struct {
	Store database.DocumentStore
}

func NewSnapshotRepository(store database.DocumentStore) SnapshotRepository {
	return &SnapshotRepositoryImpl{Store: store}
}

func (r *SnapshotRepositoryImpl) Create(ctx context.Context, snap *Snapshot) error {
	for i := range snap.Collections {
		raw, err := bson.MarshalExtJSON(snap.Collections[i].Selector, true, false)
		if err != nil {
			return fmt.Errorf("failed to encode selector for %s: %w", snap.Collections[i].Name, err)
		}
		snap.Collections[i].SelectorJSON = string(raw)
	}
	doc, err := database.ToDocument(snap)
	if err != nil {
		return err
	}
	return r.Store.InsertMany(ctx, CollectionName, []bson.M{doc})
}

// FindByOperation returns nil without error when no snapshot exists.
func (r *SnapshotRepositoryImpl) FindByOperation(ctx context.Context, operationID string) (*Snapshot, error) {
	docs, err := r.Store.Find(ctx, CollectionName, bson.M{"operation_id": operationID}, database.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	var snap Snapshot
	if err := database.Decode(docs[0], &snap); err != nil {
		return nil, err
	}
	for i := range snap.Collections {
		var sel bson.M
		if err := bson.UnmarshalExtJSON([]byte(snap.Collections[i].SelectorJSON), true, &sel); err != nil {
			return nil, fmt.Errorf("failed to decode selector for %s: %w", snap.Collections[i].Name, err)
		}
		snap.Collections[i].Selector = sel
	}
	return &snap, nil
}

func (r *SnapshotRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	return r.Store.DeleteMany(ctx, CollectionName, bson.M{"expires_at": bson.M{"$lte": now}})
}

// EnsureIndexes lets the store expire snapshots on its own as a backstop for
// the retention sweep.
func (r *SnapshotRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	return r.Store.EnsureTTLIndex(ctx, CollectionName, "expires_at", 0)
}
