package maintenance

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-payroll/internal/config"
	"go-payroll/internal/features/payroll_import"
	"go-payroll/internal/features/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSnapshots struct {
	snapshot.SnapshotManager
	calls int
	err   error
}

func (f *fakeSnapshots) CleanupExpiredData(context.Context) (*snapshot.CleanupResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &snapshot.CleanupResult{SnapshotsDeleted: 2, AuditEventsDeleted: 5}, nil
}

type fakeImports struct {
	payroll_import.ImportService
	calls int
}

func (f *fakeImports) SweepExpired() payroll_import.SweepResult {
	f.calls++
	return payroll_import.SweepResult{Sessions: 3, CacheEntries: 1}
}

func newTestRetention(schedule string) (*RetentionServiceImpl, *fakeSnapshots, *fakeImports) {
	cfg := &config.Config{Import: config.DefaultImportConfig()}
	cfg.Import.CleanupSchedule = schedule
	snaps, imports := &fakeSnapshots{}, &fakeImports{}
	svc := NewRetentionService(cfg, snaps, imports, zap.NewNop()).(*RetentionServiceImpl)
	return svc, snaps, imports
}

func TestRunOnce(t *testing.T) {
	svc, snaps, imports := newTestRetention("@every 1h")
	assert.Nil(t, svc.LastRun())

	report, err := svc.RunOnce(context.Background(), TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, snaps.calls)
	assert.Equal(t, 1, imports.calls)
	assert.Equal(t, TriggerManual, report.Trigger)
	assert.EqualValues(t, 2, report.Cleanup.SnapshotsDeleted)
	assert.Equal(t, 3, report.Sweep.Sessions)

	last := svc.LastRun()
	require.NotNil(t, last)
	assert.Equal(t, report.StartedAt, last.StartedAt)
}

func TestRunOnceRecordsFailure(t *testing.T) {
	svc, snaps, _ := newTestRetention("@every 1h")
	snaps.err = errors.New("mongo unavailable")

	report, err := svc.RunOnce(context.Background(), TriggerManual)
	require.Error(t, err)
	assert.Equal(t, "mongo unavailable", report.Error)
	assert.Equal(t, "mongo unavailable", svc.LastRun().Error)
}

func TestSchedulerRunsJob(t *testing.T) {
	svc, snaps, _ := newTestRetention("@every 1s")
	require.NoError(t, svc.InitializeScheduler(context.Background()))
	require.NotNil(t, svc.NextRun())

	require.Eventually(t, func() bool {
		last := svc.LastRun()
		return last != nil && last.Trigger == TriggerSchedule
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, svc.StopScheduler())
	assert.Nil(t, svc.NextRun())
	assert.GreaterOrEqual(t, snaps.calls, 1)
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	svc, _, _ := newTestRetention("every now and then")
	assert.Error(t, svc.InitializeScheduler(context.Background()))
	assert.NoError(t, svc.StopScheduler())
}
