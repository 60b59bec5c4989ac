package snapshot

import (
	"context"
	"errors"
	"time"

	"go-payroll/internal/database"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	StrategyAtomic       = "atomic"
	StrategyCompensating = "compensating"
)

// CollectionPlan undoes an operation on one collection.
type CollectionPlan struct {
	Collection string
	// Selector is the snapshot query; documents it matches that were created
	// at or after Since are writes to undo.
	Selector bson.M
	Since    time.Time
	// IDs holds the storage and original identities of every snapshotted
	// document, so current versions of them are found wherever they are.
	IDs []interface{}
	// Restore are the documents to insert, already carrying restoration
	// markers and no storage identity.
	Restore []bson.M
}

// Transactor executes rollback plans against a store.
type Transactor interface {
	Strategy() string
	Execute(ctx context.Context, plans []CollectionPlan) ([]CollectionResult, []FailedStep)
}

// AtomicTransactor runs every plan in one store transaction. Either all
// collections are restored or none is touched.
type AtomicTransactor struct {
	Store database.DocumentStore
}

func NewAtomicTransactor(store database.DocumentStore) *AtomicTransactor {
	return &AtomicTransactor{Store: store}
}

func (t *AtomicTransactor) Strategy() string { return StrategyAtomic }

func (t *AtomicTransactor) Execute(ctx context.Context, plans []CollectionPlan) ([]CollectionResult, []FailedStep) {
	var results []CollectionResult
	failedAt := ""
	err := t.Store.WithTransaction(ctx, func(txCtx context.Context) error {
		results = results[:0]
		for _, p := range plans {
			res, err := applyPlan(txCtx, t.Store, p)
			if err != nil {
				failedAt = p.Collection
				return err
			}
			results = append(results, res)
		}
		return nil
	})
	if err == nil {
		return results, nil
	}

	// the transaction aborted: nothing was applied anywhere
	aborted := make([]CollectionResult, len(plans))
	for i, p := range plans {
		aborted[i] = CollectionResult{Name: p.Collection, Error: "transaction aborted"}
	}
	step := stepOf(err)
	if step == "" {
		step = "transaction"
	}
	return aborted, []FailedStep{{Collection: failedAt, Step: step, Error: err.Error()}}
}

// CompensatingTransactor runs each collection's plan on its own. A failing
// collection is recorded and the remaining ones still run.
type CompensatingTransactor struct {
	Store database.DocumentStore
}

func NewCompensatingTransactor(store database.DocumentStore) *CompensatingTransactor {
	return &CompensatingTransactor{Store: store}
}

func (t *CompensatingTransactor) Strategy() string { return StrategyCompensating }

func (t *CompensatingTransactor) Execute(ctx context.Context, plans []CollectionPlan) ([]CollectionResult, []FailedStep) {
	results := make([]CollectionResult, 0, len(plans))
	var failed []FailedStep
	for _, p := range plans {
		res, err := applyPlan(ctx, t.Store, p)
		if err != nil {
			res.Error = err.Error()
			failed = append(failed, FailedStep{Collection: p.Collection, Step: stepOf(err), Error: errors.Unwrap(err).Error()})
		}
		results = append(results, res)
	}
	return results, failed
}

// applyPlan runs the three rollback steps for one collection. Re-running a
// plan after a partial failure converges on the same end state.
func applyPlan(ctx context.Context, store database.DocumentStore, p CollectionPlan) (CollectionResult, error) {
	res := CollectionResult{Name: p.Collection}

	newFilter := bson.M{"$and": bson.A{
		p.Selector,
		bson.M{FieldCreatedAt: bson.M{"$gte": p.Since}},
	}}
	n, err := store.DeleteMany(ctx, p.Collection, newFilter)
	if err != nil {
		return res, &stepError{step: StepDeleteNew, err: err}
	}
	res.NewDeleted = n

	if len(p.IDs) > 0 {
		currentFilter := bson.M{"$or": bson.A{
			bson.M{"_id": bson.M{"$in": p.IDs}},
			bson.M{FieldOriginalID: bson.M{"$in": p.IDs}},
		}}
		n, err = store.DeleteMany(ctx, p.Collection, currentFilter)
		if err != nil {
			return res, &stepError{step: StepDeleteCurrent, err: err}
		}
		res.CurrentDeleted = n
	}

	if len(p.Restore) > 0 {
		docs := make([]bson.M, len(p.Restore))
		for i, d := range p.Restore {
			docs[i] = copyDoc(d)
		}
		if err := store.InsertMany(ctx, p.Collection, docs); err != nil {
			return res, &stepError{step: StepRestore, err: err}
		}
	}
	res.Restored = len(p.Restore)
	res.Success = true
	return res, nil
}

func copyDoc(d bson.M) bson.M {
	out := make(bson.M, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
