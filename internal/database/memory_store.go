package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-payroll/pkg/condition"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Op names a store operation for fault injection.
type Op string

const (
	OpFind   Op = "find"
	OpCount  Op = "count"
	OpInsert Op = "insert"
	OpDelete Op = "delete"
)

// FaultFunc lets tests fail selected operations. Returning a non-nil error
// aborts the operation before it touches any data.
type FaultFunc func(op Op, collection string) error

// MemoryStore is an in-process DocumentStore. It backs the test suites and the
// offline CLI. Transactions are emulated with copy-on-write: the whole data set
// is cloned on entry and restored if fn fails.
type MemoryStore struct {
	mu            sync.Mutex
	txMu          sync.Mutex
	collections   map[string][]bson.M
	transactional bool
	fault         FaultFunc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections:   make(map[string][]bson.M),
		transactional: true,
	}
}

// SetTransactional toggles transaction support, so tests can exercise both
// rollback strategies against the same data.
func (s *MemoryStore) SetTransactional(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactional = enabled
}

func (s *MemoryStore) SetFault(f FaultFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault = f
}

func (s *MemoryStore) checkFault(op Op, collection string) error {
	if s.fault == nil {
		return nil
	}
	return s.fault(op, collection)
}

func (s *MemoryStore) Find(_ context.Context, collection string, filter bson.M, opts ...FindOption) ([]bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFault(OpFind, collection); err != nil {
		return nil, err
	}

	out := []bson.M{}
	for _, doc := range s.collections[collection] {
		ok, err := condition.Match(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, cloneDoc(doc))
		}
	}

	fo := applyFindOptions(opts)
	if fo.SortField != "" {
		sort.SliceStable(out, func(i, j int) bool {
			cmp, _ := condition.Compare(out[i][fo.SortField], out[j][fo.SortField])
			if fo.SortDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if fo.Skip > 0 {
		if fo.Skip >= int64(len(out)) {
			return []bson.M{}, nil
		}
		out = out[fo.Skip:]
	}
	if fo.Limit > 0 && fo.Limit < int64(len(out)) {
		out = out[:fo.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context, collection string, filter bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFault(OpCount, collection); err != nil {
		return 0, err
	}

	var n int64
	for _, doc := range s.collections[collection] {
		ok, err := condition.Match(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) InsertMany(_ context.Context, collection string, docs []bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFault(OpInsert, collection); err != nil {
		return err
	}

	existing := make(map[interface{}]bool, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		existing[idKey(doc["_id"])] = true
	}

	staged := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		c := cloneDoc(doc)
		if _, ok := c["_id"]; !ok {
			c["_id"] = primitive.NewObjectID()
		}
		key := idKey(c["_id"])
		if existing[key] {
			return fmt.Errorf("duplicate key error: collection %s _id %v", collection, c["_id"])
		}
		existing[key] = true
		staged = append(staged, c)
	}
	s.collections[collection] = append(s.collections[collection], staged...)
	return nil
}

func (s *MemoryStore) DeleteMany(_ context.Context, collection string, filter bson.M) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkFault(OpDelete, collection); err != nil {
		return 0, err
	}

	kept := make([]bson.M, 0, len(s.collections[collection]))
	var deleted int64
	for _, doc := range s.collections[collection] {
		ok, err := condition.Match(doc, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			deleted++
			continue
		}
		kept = append(kept, doc)
	}
	s.collections[collection] = kept
	return deleted, nil
}

func (s *MemoryStore) SupportsTransactions(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transactional
}

func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.SupportsTransactions(ctx) {
		return ErrTransactionsUnsupported
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	saved := cloneCollections(s.collections)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.collections = saved
		s.mu.Unlock()
		return err
	}
	return nil
}

// EnsureTTLIndex is a no-op; expiry is enforced by the retention sweep.
func (s *MemoryStore) EnsureTTLIndex(context.Context, string, string, time.Duration) error {
	return nil
}

func idKey(id interface{}) interface{} {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return id
}

func cloneCollections(in map[string][]bson.M) map[string][]bson.M {
	out := make(map[string][]bson.M, len(in))
	for name, docs := range in {
		copied := make([]bson.M, len(docs))
		for i, d := range docs {
			copied[i] = cloneDoc(d)
		}
		out[name] = copied
	}
	return out
}

func cloneDoc(doc bson.M) bson.M {
	out := make(bson.M, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch x := v.(type) {
	case bson.M:
		return cloneDoc(x)
	case map[string]interface{}:
		return cloneDoc(x)
	case bson.A:
		out := make(bson.A, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i := range x {
			out[i] = cloneValue(x[i])
		}
		return out
	}
	return v
}
