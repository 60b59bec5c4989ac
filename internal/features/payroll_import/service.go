package payroll_import

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-payroll/internal/config"
	"go-payroll/internal/features/payroll"
	"go-payroll/internal/features/snapshot"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidRequest marks malformed input that never reached the engine.
var ErrInvalidRequest = errors.New("invalid request")

type PreviewRequest struct {
	FileName string
	MIMEType string
	Data     []byte
	Period   Period
	Actor    string
	UploadID string
}

type PreviewData struct {
	Headers     []string    `json:"headers"`
	Rows        []ImportRow `json:"rows"`
	TotalRows   int         `json:"totalRows"`
	ValidRows   int         `json:"validRows"`
	InvalidRows int         `json:"invalidRows"`
	Summary     Summary     `json:"summary"`
	FromCache   bool        `json:"fromCache"`
	ContentHash string      `json:"contentHash"`
	Period      Period      `json:"period"`
}

type PreviewResponse struct {
	PreviewToken string      `json:"previewToken"`
	ExpiresIn    int         `json:"expiresIn"`
	Data         PreviewData `json:"data"`
}

type ConfirmRequest struct {
	Token          string
	IdempotencyKey string
	// Actor confirms the import; empty falls back to whoever previewed it.
	Actor string
}

type ConfirmSummary struct {
	Processed int `json:"processed"`
	Saved     int `json:"saved"`
	Failed    int `json:"failed"`
}

// ConfirmError explains why a row was not written, or, with Row 0, why the
// whole write failed.
type ConfirmError struct {
	Row      int       `json:"row,omitempty"`
	Status   RowStatus `json:"status,omitempty"`
	Messages []string  `json:"messages"`
}

type ConfirmResponse struct {
	Success         bool                     `json:"success"`
	Summary         ConfirmSummary           `json:"summary"`
	Errors          []ConfirmError           `json:"errors"`
	OperationID     string                   `json:"operationId,omitempty"`
	AlreadyConsumed bool                     `json:"alreadyConsumed,omitempty"`
	Rollback        *snapshot.RollbackResult `json:"rollback,omitempty"`
	Message         string                   `json:"message,omitempty"`
}

type SweepResult struct {
	Sessions     int `json:"sessions"`
	CacheEntries int `json:"cacheEntries"`
}

type ImportService interface {
	Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error)
	Guide(ctx context.Context, token string) (*RecoveryGuide, error)
	CorrectedFile(ctx context.Context, token string) ([]byte, []Substitution, error)
	CacheStats() CacheStats
	Subscribe(uploadID string) (<-chan ProgressUpdate, func())
	SweepExpired() SweepResult
}

type ImportServiceImpl struct {
	Engine    *Engine
	Cache     *PreviewCache
	Sessions  *SessionStore
	Hub       *ProgressHub
	Snapshots snapshot.SnapshotManager
	Payroll   payroll.PayrollRepository
	Config    config.ImportConfig
	Logger    *zap.Logger

	confirms singleflight.Group
	now      func() time.Time
}

func NewImportService(
	cfg *config.Config,
	engine *Engine,
	snapshots snapshot.SnapshotManager,
	payrollRepo payroll.PayrollRepository,
	logger *zap.Logger,
) ImportService {
	return &ImportServiceImpl{
		Engine:    engine,
		Cache:     NewPreviewCache(cfg.Import.CacheTTL, cfg.Import.MaxCacheEntries),
		Sessions:  NewSessionStore(cfg.Import.SessionTTL),
		Hub:       NewProgressHub(),
		Snapshots: snapshots,
		Payroll:   payrollRepo,
		Config:    cfg.Import,
		Logger:    logger.Named("payroll_import"),
		now:       time.Now,
	}
}

func (s *ImportServiceImpl) Preview(ctx context.Context, req PreviewRequest) (*PreviewResponse, error) {
	check := s.Engine.Files.Validate(FileMeta{Name: req.FileName, MIMEType: req.MIMEType, Size: int64(len(req.Data))})
	if !check.Valid {
		return nil, &StructuralError{
			Kind:    StructuralInvalidFile,
			Message: strings.Join(check.Errors, "; "),
			Reasons: check.Errors,
		}
	}
	if err := req.Period.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	result, err := s.Cache.GetOrParse(ctx, req.Data, func(ctx context.Context) (*PreviewResult, error) {
		run, err := s.Engine.Start(ctx, req.Data)
		if err != nil {
			return nil, err
		}
		for u := range run.Progress() {
			s.Hub.Publish(req.UploadID, u)
		}
		return run.Wait()
	})
	if err != nil {
		if se, ok := AsStructural(err); ok {
			s.Logger.Warn("upload rejected",
				zap.String("file", req.FileName),
				zap.String("kind", string(se.Kind)),
				zap.String("actor", req.Actor))
		}
		return nil, err
	}
	if result.FromCache {
		total := len(result.Rows)
		s.Hub.Publish(req.UploadID, ProgressUpdate{Processed: total, Total: total, ChunkCount: 1, Percentage: 100})
	} else {
		for _, r := range result.Rows {
			previewRows.WithLabelValues(string(r.Status)).Inc()
		}
	}

	sess := s.Sessions.Issue(result, req.Period, req.Actor)
	s.Logger.Info("preview issued",
		zap.String("content_hash", result.ContentHash),
		zap.String("period", req.Period.String()),
		zap.Int("rows", result.Summary.Total),
		zap.Bool("from_cache", result.FromCache),
		zap.String("actor", req.Actor))

	sum := result.Summary
	return &PreviewResponse{
		PreviewToken: sess.Token,
		ExpiresIn:    int(sess.ExpiresAt.Sub(sess.IssuedAt).Seconds()),
		Data: PreviewData{
			Headers:     result.Headers,
			Rows:        result.Rows,
			TotalRows:   sum.Total,
			ValidRows:   sum.Valid + sum.Warning,
			InvalidRows: sum.Invalid + sum.Duplicate + sum.Unmatched,
			Summary:     sum,
			FromCache:   result.FromCache,
			ContentHash: result.ContentHash,
			Period:      req.Period,
		},
	}, nil
}

// Confirm commits the rows of a preview. Retries with the same key replay the
// first outcome; concurrent duplicates share one execution.
func (s *ImportServiceImpl) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error) {
	if req.Token == "" || req.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: previewToken and idempotencyKey are required", ErrInvalidRequest)
	}

	v, err, _ := s.confirms.Do(req.Token+"|"+req.IdempotencyKey, func() (interface{}, error) {
		return s.confirm(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	resp := *v.(*ConfirmResponse)
	return &resp, nil
}

func (s *ImportServiceImpl) confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error) {
	sess, prior, err := s.Sessions.Claim(req.Token, req.IdempotencyKey)
	if err != nil {
		if se, ok := AsSession(err); ok {
			confirmTotal.WithLabelValues(string(se.Kind)).Inc()
		}
		return nil, err
	}
	if prior != nil {
		confirmTotal.WithLabelValues("replayed").Inc()
		if prior.err != nil {
			return nil, prior.err
		}
		resp := *prior.response
		resp.AlreadyConsumed = true
		return &resp, nil
	}

	actor := req.Actor
	if actor == "" {
		actor = sess.Actor
	}
	resp, err := s.commit(ctx, sess, actor)
	s.Sessions.Complete(req.Token, req.IdempotencyKey, resp, err, err == nil && resp.Success)
	return resp, err
}

func (s *ImportServiceImpl) commit(ctx context.Context, sess ImportSession, actor string) (*ConfirmResponse, error) {
	started := time.Now()
	defer func() { confirmDuration.Observe(time.Since(started).Seconds()) }()

	result := sess.Result()
	records, rowErrors := s.buildRecords(sess, actor)
	resp := &ConfirmResponse{
		Summary: ConfirmSummary{Processed: len(result.Rows), Failed: len(result.Rows) - len(records)},
		Errors:  rowErrors,
	}
	if len(records) == 0 {
		confirmTotal.WithLabelValues("empty").Inc()
		resp.Message = errNothingToCommit.Error()
		return resp, nil
	}

	operationID := uuid.NewString()
	resp.OperationID = operationID
	log := s.Logger.With(
		zap.String("operation_id", operationID),
		zap.String("actor", actor),
		zap.String("previewed_by", sess.Actor),
		zap.String("period", sess.Period.String()))

	ids := make([]string, len(records))
	for i := range records {
		records[i].OperationID = operationID
		ids[i] = records[i].EmployeeID
	}
	selectors := map[string]bson.M{
		payroll.CollectionName: payroll.PeriodSelector(sess.Period.Year, sess.Period.Month, ids),
	}
	snap, err := s.Snapshots.CreateSnapshot(ctx, operationID, selectors)
	if err != nil {
		confirmTotal.WithLabelValues("snapshot_failed").Inc()
		log.Error("snapshot failed, nothing written", zap.Error(err))
		return nil, fmt.Errorf("failed to snapshot payroll before import: %w", err)
	}

	// rollback removes rows created at or after the snapshot
	stamp := s.now().UTC()
	if stamp.Before(snap.Timestamp) {
		stamp = snap.Timestamp
	}
	for i := range records {
		records[i].CreatedAt = stamp
	}

	written, err := s.Payroll.ReplacePeriod(ctx, sess.Period.Year, sess.Period.Month, records, s.Config.WriteBatchSize)
	if err != nil {
		confirmTotal.WithLabelValues("write_failed").Inc()
		log.Error("bulk write failed, rolling back", zap.Int("written", written), zap.Error(err))

		resp.Summary.Saved = 0
		resp.Summary.Failed = len(result.Rows)
		resp.Message = "bulk write failed and was rolled back"
		resp.Errors = append(resp.Errors, ConfirmError{Messages: []string{err.Error()}})

		rb, rbErr := s.Snapshots.Rollback(ctx, operationID)
		switch {
		case rbErr != nil:
			resp.Message = "bulk write failed and rollback could not run"
			resp.Errors = append(resp.Errors, ConfirmError{Messages: []string{"rollback: " + rbErr.Error()}})
			log.Error("rollback after failed write did not run", zap.Error(rbErr))
		case !rb.Success:
			resp.Message = "bulk write failed and rollback needs operator attention"
			resp.Rollback = rb
		default:
			resp.Rollback = rb
		}
		return resp, nil
	}

	s.Snapshots.MarkCommitted(ctx, operationID, bson.M{
		"saved":        written,
		"year":         sess.Period.Year,
		"month":        sess.Period.Month,
		"content_hash": sess.ContentHash,
		"confirmed_by": actor,
	})
	confirmTotal.WithLabelValues("committed").Inc()
	log.Info("import committed", zap.Int("saved", written), zap.Int("skipped", resp.Summary.Failed))

	resp.Success = true
	resp.Summary.Saved = written
	return resp, nil
}

// buildRecords maps committable rows to payroll records and explains every
// row left out.
func (s *ImportServiceImpl) buildRecords(sess ImportSession, actor string) ([]payroll.PayrollRecord, []ConfirmError) {
	var records []payroll.PayrollRecord
	var skipped []ConfirmError
	for _, row := range sess.Result().Rows {
		if !row.Status.Committable() {
			msgs := make([]string, 0, len(row.Issues))
			for _, is := range row.Issues {
				msgs = append(msgs, is.Message)
			}
			skipped = append(skipped, ConfirmError{Row: row.RowIndex, Status: row.Status, Messages: msgs})
			continue
		}
		records = append(records, payroll.PayrollRecord{
			EmployeeID: strings.TrimSpace(row.Values[ColEmployeeID]),
			Name:       row.Values[ColName],
			Department: row.Values[ColDepartment],
			Title:      row.Values[ColTitle],
			Year:       sess.Period.Year,
			Month:      sess.Period.Month,
			BasePay:    row.Amounts[ColBasePay],
			Incentive:  row.Amounts[ColIncentive],
			Bonus:      row.Amounts[ColBonus],
			Award:      row.Amounts[ColAward],
			GrossPay:   row.Amounts[ColGrossPay],
			NetPay:     row.Amounts[ColNetPay],
			Difference: row.Amounts[ColDifference],
			CreatedBy:  actor,
		})
	}
	return records, skipped
}

func (s *ImportServiceImpl) Guide(_ context.Context, token string) (*RecoveryGuide, error) {
	sess, err := s.Sessions.Get(token)
	if err != nil {
		return nil, err
	}
	return s.Engine.Advisor.Guide(sess.Result()), nil
}

func (s *ImportServiceImpl) CorrectedFile(_ context.Context, token string) ([]byte, []Substitution, error) {
	sess, err := s.Sessions.Get(token)
	if err != nil {
		return nil, nil, err
	}
	return s.Engine.Advisor.CorrectedFile(sess.Result())
}

func (s *ImportServiceImpl) CacheStats() CacheStats {
	return s.Cache.Stats()
}

func (s *ImportServiceImpl) Subscribe(uploadID string) (<-chan ProgressUpdate, func()) {
	return s.Hub.Subscribe(uploadID)
}

func (s *ImportServiceImpl) SweepExpired() SweepResult {
	return SweepResult{
		Sessions:     s.Sessions.Sweep(s.now()),
		CacheEntries: s.Cache.Purge(),
	}
}
