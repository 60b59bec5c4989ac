package payroll

import (
	"context"
	"fmt"

	"go-payroll/internal/database"

	"go.mongodb.org/mongo-driver/bson"
)

type PayrollRepository interface {
	ReplacePeriod(ctx context.Context, year, month int, records []PayrollRecord, batchSize int) (int, error)
	List(ctx context.Context, year, month int, limit, offset int64) ([]PayrollRecord, error)
	Count(ctx context.Context, year, month int) (int64, error)
}

type PayrollRepositoryImpl struct {
	Store database.DocumentStore
}

func NewPayrollRepository(store database.DocumentStore) PayrollRepository {
	return &PayrollRepositoryImpl{Store: store}
}

// PeriodSelector selects the rows of a period that an import of employeeIDs
// replaces. Snapshots use the same query so rollback covers exactly what
// ReplacePeriod touches.
func PeriodSelector(year, month int, employeeIDs []string) bson.M {
	ids := make(bson.A, len(employeeIDs))
	for i, id := range employeeIDs {
		ids[i] = id
	}
	return bson.M{
		"year":        year,
		"month":       month,
		"employee_id": bson.M{"$in": ids},
	}
}

// ReplacePeriod deletes the period rows of the imported employees and inserts
// records in batches. It is not atomic; callers snapshot first.
func (r *PayrollRepositoryImpl) ReplacePeriod(ctx context.Context, year, month int, records []PayrollRecord, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = len(records)
	}

	ids := make([]string, 0, len(records))
	docs := make([]bson.M, 0, len(records))
	for _, rec := range records {
		doc, err := database.ToDocument(rec)
		if err != nil {
			return 0, err
		}
		ids = append(ids, rec.EmployeeID)
		docs = append(docs, doc)
	}

	if _, err := r.Store.DeleteMany(ctx, CollectionName, PeriodSelector(year, month, ids)); err != nil {
		return 0, fmt.Errorf("failed to clear period rows: %w", err)
	}

	written := 0
	for start := 0; start < len(docs); start += batchSize {
		end := start + batchSize
		if end > len(docs) {
			end = len(docs)
		}
		if err := r.Store.InsertMany(ctx, CollectionName, docs[start:end]); err != nil {
			return written, fmt.Errorf("failed to insert batch at row %d: %w", start, err)
		}
		written = end
	}
	return written, nil
}

func (r *PayrollRepositoryImpl) List(ctx context.Context, year, month int, limit, offset int64) ([]PayrollRecord, error) {
	docs, err := r.Store.Find(ctx, CollectionName, periodFilter(year, month),
		database.SortBy("employee_id", false), database.Limit(limit), database.Skip(offset))
	if err != nil {
		return nil, err
	}
	records := make([]PayrollRecord, 0, len(docs))
	for _, doc := range docs {
		var rec PayrollRecord
		if err := database.Decode(doc, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (r *PayrollRepositoryImpl) Count(ctx context.Context, year, month int) (int64, error) {
	return r.Store.Count(ctx, CollectionName, periodFilter(year, month))
}

func periodFilter(year, month int) bson.M {
	filter := bson.M{}
	if year > 0 {
		filter["year"] = year
	}
	if month > 0 {
		filter["month"] = month
	}
	return filter
}
