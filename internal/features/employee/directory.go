package employee

import (
	"context"

	"go-payroll/internal/database"

	"go.mongodb.org/mongo-driver/bson"
)

const CollectionName = "employees"

// Directory answers whether employee ids are registered.
type Directory struct {
	Store database.DocumentStore
}

func NewDirectory(store database.DocumentStore) *Directory {
	return &Directory{Store: store}
}

// Known returns the subset of ids present in the employee register.
func (d *Directory) Known(ctx context.Context, ids []string) (map[string]bool, error) {
	known := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return known, nil
	}
	in := make(bson.A, len(ids))
	for i, id := range ids {
		in[i] = id
	}
	docs, err := d.Store.Find(ctx, CollectionName, bson.M{"employee_id": bson.M{"$in": in}})
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if id, ok := doc["employee_id"].(string); ok {
			known[id] = true
		}
	}
	return known, nil
}
