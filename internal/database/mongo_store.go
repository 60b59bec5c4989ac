package database

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements DocumentStore on top of the official driver.
type MongoStore struct {
	db *mongo.Database

	txOnce      sync.Once
	txSupported bool
}

func NewMongoStore(mongodb *MongodbDB) *MongoStore {
	return &MongoStore{db: mongodb.DB}
}

func (s *MongoStore) Find(ctx context.Context, collection string, filter bson.M, opts ...FindOption) ([]bson.M, error) {
	fo := applyFindOptions(opts)
	findOpts := options.Find()
	if fo.SortField != "" {
		dir := 1
		if fo.SortDesc {
			dir = -1
		}
		findOpts.SetSort(bson.D{{Key: fo.SortField, Value: dir}})
	}
	if fo.Limit > 0 {
		findOpts.SetLimit(fo.Limit)
	}
	if fo.Skip > 0 {
		findOpts.SetSkip(fo.Skip)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []bson.M{}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoStore) Count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	return s.db.Collection(collection).CountDocuments(ctx, filter)
}

func (s *MongoStore) InsertMany(ctx context.Context, collection string, docs []bson.M) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, len(docs))
	for i := range docs {
		batch[i] = docs[i]
	}
	_, err := s.db.Collection(collection).InsertMany(ctx, batch)
	return err
}

func (s *MongoStore) DeleteMany(ctx context.Context, collection string, filter bson.M) (int64, error) {
	res, err := s.db.Collection(collection).DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// SupportsTransactions checks the deployment once with the hello command.
// Transactions need a replica set member or a mongos router.
func (s *MongoStore) SupportsTransactions(ctx context.Context) bool {
	s.txOnce.Do(func() {
		var hello bson.M
		if err := s.db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
			return
		}
		if _, ok := hello["setName"]; ok {
			s.txSupported = true
		}
		if msg, ok := hello["msg"].(string); ok && msg == "isdbgrid" {
			s.txSupported = true
		}
	})
	return s.txSupported
}

func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.SupportsTransactions(ctx) {
		return ErrTransactionsUnsupported
	}

	// Start a session for transaction
	session, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// EnsureTTLIndex creates an expiring index on field. A zero ttl expires each
// document at the instant stored in field.
func (s *MongoStore) EnsureTTLIndex(ctx context.Context, collection, field string, ttl time.Duration) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	}
	_, err := s.db.Collection(collection).Indexes().CreateOne(ctx, model)
	return err
}
