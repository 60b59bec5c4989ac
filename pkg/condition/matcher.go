package condition

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Match reports whether doc satisfies a MongoDB-style filter. It understands
// the subset of the query language the rest of the service emits: implicit
// equality, $eq, $ne, $gt, $gte, $lt, $lte, $in, $nin, $exists, $or and $and.
func Match(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		switch key {
		case "$or", "$and":
			clauses, err := toClauses(cond)
			if err != nil {
				return false, fmt.Errorf("%s: %w", key, err)
			}
			ok, err := matchLogical(doc, key, clauses)
			if err != nil || !ok {
				return false, err
			}
			continue
		}

		value, present := lookup(doc, key)
		if ops, isOps := operatorMap(cond); isOps {
			for op, arg := range ops {
				ok, err := matchOperator(value, present, op, arg)
				if err != nil {
					return false, fmt.Errorf("field %s: %w", key, err)
				}
				if !ok {
					return false, nil
				}
			}
			continue
		}

		if !matchEquals(value, present, cond) {
			return false, nil
		}
	}
	return true, nil
}

func matchLogical(doc bson.M, op string, clauses []bson.M) (bool, error) {
	if op == "$or" {
		for _, c := range clauses {
			ok, err := Match(doc, c)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}

	for _, c := range clauses {
		ok, err := Match(doc, c)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(value interface{}, present bool, op string, arg interface{}) (bool, error) {
	switch op {
	case "$eq":
		return matchEquals(value, present, arg), nil
	case "$ne":
		return !matchEquals(value, present, arg), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !present {
			return false, nil
		}
		cmp, ok := compare(value, arg)
		if !ok {
			return false, nil
		}
		switch op {
		case "$gt":
			return cmp > 0, nil
		case "$gte":
			return cmp >= 0, nil
		case "$lt":
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}
	case "$in", "$nin":
		list, ok := toList(arg)
		if !ok {
			return false, fmt.Errorf("%s requires an array", op)
		}
		found := false
		for _, candidate := range list {
			if matchEquals(value, present, candidate) {
				found = true
				break
			}
		}
		if op == "$in" {
			return found, nil
		}
		return !found, nil
	case "$exists":
		want, ok := arg.(bool)
		if !ok {
			return false, fmt.Errorf("$exists requires a boolean")
		}
		return present == want, nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

func matchEquals(value interface{}, present bool, want interface{}) bool {
	if want == nil {
		return !present || value == nil
	}
	if !present {
		return false
	}
	if list, ok := toList(value); ok {
		if _, wantList := toList(want); !wantList {
			for _, elem := range list {
				if equal(elem, want) {
					return true
				}
			}
			return false
		}
	}
	return equal(value, want)
}

func equal(a, b interface{}) bool {
	if cmp, ok := compare(a, b); ok {
		return cmp == 0
	}
	return reflect.DeepEqual(normalize(a), normalize(b))
}

// compare orders two scalars of compatible kinds. The second return value is
// false when the kinds cannot be ordered against each other.
func compare(a, b interface{}) (int, bool) {
	na, nb := normalize(a), normalize(b)
	switch x := na.(type) {
	case float64:
		y, ok := nb.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case x < y:
			return -1, true
		case x > y:
			return 1, true
		}
		return 0, true
	case string:
		y, ok := nb.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	case time.Time:
		y, ok := nb.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case bool:
		y, ok := nb.(bool)
		if !ok {
			return 0, false
		}
		if x == y {
			return 0, true
		}
		if !x {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

// normalize maps the many numeric and temporal encodings a document can carry
// onto float64 and time.Time so that values decoded from BSON compare equal to
// values built in Go.
func normalize(v interface{}) interface{} {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case float32:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case primitive.DateTime:
		return x.Time().UTC()
	case time.Time:
		return x.UTC().Truncate(time.Millisecond)
	case primitive.ObjectID:
		return x.Hex()
	case primitive.M:
		return map[string]interface{}(x)
	case primitive.A:
		return []interface{}(x)
	}
	return v
}

func lookup(doc bson.M, path string) (interface{}, bool) {
	var current interface{} = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := asMap(current)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func operatorMap(cond interface{}) (map[string]interface{}, bool) {
	m, ok := asMap(cond)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]interface{}:
		return m, true
	case bson.D:
		return m.Map(), true
	}
	return nil, false
}

func toList(v interface{}) ([]interface{}, bool) {
	switch l := v.(type) {
	case bson.A:
		return l, true
	case []interface{}:
		return l, true
	case []string:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []primitive.ObjectID:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	case []int:
		out := make([]interface{}, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out, true
	}
	return nil, false
}

func toClauses(v interface{}) ([]bson.M, error) {
	switch l := v.(type) {
	case []bson.M:
		return l, nil
	}
	list, ok := toList(v)
	if !ok {
		return nil, fmt.Errorf("expected an array of clauses")
	}
	out := make([]bson.M, 0, len(list))
	for _, item := range list {
		m, ok := asMap(item)
		if !ok {
			return nil, fmt.Errorf("clause is not a document")
		}
		out = append(out, m)
	}
	return out, nil
}

// Compare orders two document values the way Match does. ok is false when the
// values are of kinds that cannot be ordered against each other.
func Compare(a, b interface{}) (cmp int, ok bool) {
	return compare(a, b)
}
