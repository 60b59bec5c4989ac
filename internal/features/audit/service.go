package audit

import (
	"context"
	"time"

	"go-payroll/pkg/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditService interface {
	Record(ctx context.Context, operationID string, eventType EventType, data bson.M) error
	ListByOperation(ctx context.Context, operationID string) ([]AuditEvent, error)
	List(ctx context.Context, filter ListFilter, page, limit int64) (*Page, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type AuditServiceImpl struct {
	Repo AuditRepository
	now  func() time.Time
}

func NewAuditService(repo AuditRepository) AuditService {
	return &AuditServiceImpl{Repo: repo, now: time.Now}
}

func (s *AuditServiceImpl) Record(ctx context.Context, operationID string, eventType EventType, data bson.M) error {
	actor := "system"
	if claims, ok := utils.ClaimsFromContext(ctx); ok {
		actor = claims.UserID
	}

	event := AuditEvent{
		ID:          primitive.NewObjectID(),
		OperationID: operationID,
		EventType:   eventType,
		Timestamp:   s.now().UTC(),
		Actor:       actor,
		Data:        data,
	}
	return s.Repo.Create(ctx, event)
}

func (s *AuditServiceImpl) ListByOperation(ctx context.Context, operationID string) ([]AuditEvent, error) {
	return s.Repo.ListByOperation(ctx, operationID)
}

func (s *AuditServiceImpl) List(ctx context.Context, filter ListFilter, page, limit int64) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	offset := (page - 1) * limit

	events, err := s.Repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.Repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &Page{Events: events, Total: total, Page: page, Limit: limit}, nil
}

func (s *AuditServiceImpl) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.Repo.DeleteOlderThan(ctx, cutoff)
}
