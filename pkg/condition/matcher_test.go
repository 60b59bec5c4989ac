package condition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMatch(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()
	doc := bson.M{
		"_id":         oid,
		"employee_id": "EMP001",
		"year":        int32(2026),
		"month":       int64(3),
		"base_pay":    1200000.0,
		"created_at":  primitive.NewDateTimeFromTime(created),
		"tags":        bson.A{"a", "b"},
		"meta":        bson.M{"source": "import"},
	}

	tests := []struct {
		name   string
		filter bson.M
		want   bool
	}{
		{"empty filter", bson.M{}, true},
		{"implicit equality across int widths", bson.M{"year": 2026, "month": 3}, true},
		{"equality mismatch", bson.M{"employee_id": "EMP002"}, false},
		{"object id equality", bson.M{"_id": oid}, true},
		{"$in strings", bson.M{"employee_id": bson.M{"$in": []string{"EMP009", "EMP001"}}}, true},
		{"$nin", bson.M{"employee_id": bson.M{"$nin": bson.A{"EMP001"}}}, false},
		{"$ne", bson.M{"employee_id": bson.M{"$ne": "EMP002"}}, true},
		{"$gt time against DateTime", bson.M{"created_at": bson.M{"$gt": created.Add(-time.Second)}}, true},
		{"$gt time equal is false", bson.M{"created_at": bson.M{"$gt": created}}, false},
		{"$gte time equal", bson.M{"created_at": bson.M{"$gte": created}}, true},
		{"$lt number", bson.M{"base_pay": bson.M{"$lt": 1000}}, false},
		{"$exists true", bson.M{"meta": bson.M{"$exists": true}}, true},
		{"$exists false on missing", bson.M{"original_id": bson.M{"$exists": false}}, true},
		{"dotted path", bson.M{"meta.source": "import"}, true},
		{"array contains scalar", bson.M{"tags": "b"}, true},
		{"nil matches missing", bson.M{"deleted_at": nil}, true},
		{"$or any", bson.M{"$or": []bson.M{{"employee_id": "X"}, {"_id": oid}}}, true},
		{"$or none", bson.M{"$or": bson.A{bson.M{"employee_id": "X"}, bson.M{"year": 1999}}}, false},
		{"$and all", bson.M{"$and": []bson.M{{"year": 2026}, {"month": 3}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(doc, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatch_UnknownOperator(t *testing.T) {
	_, err := Match(bson.M{"a": 1}, bson.M{"a": bson.M{"$regex": "x"}})
	assert.Error(t, err)
}
