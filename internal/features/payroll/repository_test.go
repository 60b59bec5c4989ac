package payroll

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-payroll/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func record(id string, year, month int, base float64) PayrollRecord {
	return PayrollRecord{
		EmployeeID: id,
		Name:       "name-" + id,
		Year:       year,
		Month:      month,
		BasePay:    base,
		CreatedAt:  time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC),
	}
}

func TestReplacePeriodReplacesOnlyImportedEmployees(t *testing.T) {
	store := database.NewMemoryStore()
	repo := NewPayrollRepository(store)
	ctx := context.Background()

	_, err := repo.ReplacePeriod(ctx, 2026, 3, []PayrollRecord{
		record("E1", 2026, 3, 100),
		record("E2", 2026, 3, 200),
	}, 0)
	require.NoError(t, err)
	_, err = repo.ReplacePeriod(ctx, 2026, 2, []PayrollRecord{record("E1", 2026, 2, 90)}, 0)
	require.NoError(t, err)

	n, err := repo.ReplacePeriod(ctx, 2026, 3, []PayrollRecord{
		record("E1", 2026, 3, 150),
		record("E3", 2026, 3, 300),
	}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	march, err := repo.List(ctx, 2026, 3, 0, 0)
	require.NoError(t, err)
	require.Len(t, march, 3)
	assert.Equal(t, "E1", march[0].EmployeeID)
	assert.Equal(t, 150.0, march[0].BasePay)
	assert.Equal(t, "E2", march[1].EmployeeID)
	assert.Equal(t, "E3", march[2].EmployeeID)

	feb, err := repo.Count(ctx, 2026, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 1, feb)
}

func TestReplacePeriodReportsRowsWrittenBeforeFailure(t *testing.T) {
	store := database.NewMemoryStore()
	repo := NewPayrollRepository(store)

	inserts := 0
	store.SetFault(func(op database.Op, _ string) error {
		if op != database.OpInsert {
			return nil
		}
		inserts++
		if inserts == 2 {
			return errors.New("connection reset")
		}
		return nil
	})

	n, err := repo.ReplacePeriod(context.Background(), 2026, 3, []PayrollRecord{
		record("E1", 2026, 3, 1), record("E2", 2026, 3, 2), record("E3", 2026, 3, 3),
	}, 2)
	require.Error(t, err)
	assert.Equal(t, 2, n)
}

func TestPeriodSelectorMatchesReplacedRows(t *testing.T) {
	store := database.NewMemoryStore()
	repo := NewPayrollRepository(store)
	ctx := context.Background()

	_, err := repo.ReplacePeriod(ctx, 2026, 3, []PayrollRecord{record("E1", 2026, 3, 1), record("E2", 2026, 3, 2)}, 0)
	require.NoError(t, err)

	n, err := store.Count(ctx, CollectionName, PeriodSelector(2026, 3, []string{"E2", "E9"}))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = store.Count(ctx, CollectionName, bson.M{"original_id": bson.M{"$exists": true}})
	require.NoError(t, err)
	assert.Zero(t, n)
}
