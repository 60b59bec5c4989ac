package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-payroll/internal/config"
	"go-payroll/internal/features/payroll_import"
	"go-payroll/internal/features/snapshot"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RetentionService removes expired snapshots, old audit events, stale preview
// sessions and cache entries, on a schedule or on demand.
type RetentionService interface {
	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
	RunOnce(ctx context.Context, trigger string) (*RunReport, error)
	LastRun() *RunReport
	NextRun() *time.Time
}

type RetentionServiceImpl struct {
	snapshots snapshot.SnapshotManager
	imports   payroll_import.ImportService
	schedule  string
	logger    *zap.Logger

	scheduler *cron.Cron
	entryID   cron.EntryID
	mu        sync.Mutex
	running   sync.Mutex
	last      *RunReport
	now       func() time.Time
}

func NewRetentionService(
	cfg *config.Config,
	snapshots snapshot.SnapshotManager,
	imports payroll_import.ImportService,
	logger *zap.Logger,
) RetentionService {
	return &RetentionServiceImpl{
		snapshots: snapshots,
		imports:   imports,
		schedule:  cfg.Import.CleanupSchedule,
		logger:    logger.Named("retention"),
		now:       time.Now,
	}
}

func (s *RetentionServiceImpl) InitializeScheduler(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cleanup schedule %q: %w", s.schedule, err)
	}

	s.scheduler = cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	id, err := s.scheduler.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx, TriggerSchedule); err != nil {
			s.logger.Error("scheduled retention failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add retention job: %w", err)
	}
	s.entryID = id
	s.scheduler.Start()

	s.logger.Info("retention scheduler started", zap.String("schedule", s.schedule))
	return nil
}

func (s *RetentionServiceImpl) StopScheduler() error {
	s.mu.Lock()
	scheduler := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
	return nil
}

// RunOnce performs one pass. Passes never overlap; a caller arriving while one
// is running waits for it and then runs its own.
func (s *RetentionServiceImpl) RunOnce(ctx context.Context, trigger string) (*RunReport, error) {
	s.running.Lock()
	defer s.running.Unlock()

	report := &RunReport{StartedAt: s.now(), Trigger: trigger}
	report.Sweep = s.imports.SweepExpired()

	cleanup, err := s.snapshots.CleanupExpiredData(ctx)
	report.Cleanup = cleanup
	report.FinishedAt = s.now()
	if err != nil {
		report.Error = err.Error()
	}

	s.mu.Lock()
	s.last = report
	s.mu.Unlock()

	if err != nil {
		return report, fmt.Errorf("retention cleanup failed: %w", err)
	}

	fields := []zap.Field{
		zap.String("trigger", trigger),
		zap.Int("sessions", report.Sweep.Sessions),
		zap.Int("cache_entries", report.Sweep.CacheEntries),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	}
	if cleanup != nil {
		fields = append(fields,
			zap.Int64("snapshots", cleanup.SnapshotsDeleted),
			zap.Int64("audit_events", cleanup.AuditEventsDeleted))
	}
	s.logger.Info("retention pass finished", fields...)
	return report, nil
}

func (s *RetentionServiceImpl) LastRun() *RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

func (s *RetentionServiceImpl) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scheduler == nil {
		return nil
	}
	next := s.scheduler.Entry(s.entryID).Next
	if next.IsZero() {
		return nil
	}
	return &next
}
