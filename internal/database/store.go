package database

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// ErrTransactionsUnsupported is returned by WithTransaction when the backing
// deployment cannot run multi-document transactions.
var ErrTransactionsUnsupported = errors.New("multi-document transactions are not supported by this store")

// DocumentStore is the narrow slice of a document database the import engine
// needs. Both the snapshot engine and the payroll writer go through it, so the
// same code runs against MongoDB and against MemoryStore in tests.
type DocumentStore interface {
	Find(ctx context.Context, collection string, filter bson.M, opts ...FindOption) ([]bson.M, error)
	Count(ctx context.Context, collection string, filter bson.M) (int64, error)
	InsertMany(ctx context.Context, collection string, docs []bson.M) error
	DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error)

	// SupportsTransactions reports whether WithTransaction gives
	// all-or-nothing semantics across collections.
	SupportsTransactions(ctx context.Context) bool
	// WithTransaction runs fn so that every store call made with the context
	// passed to fn commits or aborts together.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// EnsureTTLIndex asks the store to expire documents once field is older
	// than ttl. Stores without native expiry treat this as a no-op.
	EnsureTTLIndex(ctx context.Context, collection, field string, ttl time.Duration) error
}

// FindOptions tune a Find call.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Limit     int64
	Skip      int64
}

type FindOption func(*FindOptions)

func SortBy(field string, desc bool) FindOption {
	return func(o *FindOptions) {
		o.SortField = field
		o.SortDesc = desc
	}
}

func Limit(n int64) FindOption {
	return func(o *FindOptions) { o.Limit = n }
}

func Skip(n int64) FindOption {
	return func(o *FindOptions) { o.Skip = n }
}

func applyFindOptions(opts []FindOption) FindOptions {
	var fo FindOptions
	for _, opt := range opts {
		opt(&fo)
	}
	return fo
}

// ToDocument converts a bson-tagged struct into a generic document.
func ToDocument(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Decode converts a generic document back into a bson-tagged struct.
func Decode(doc bson.M, out interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	return bson.Unmarshal(raw, out)
}
