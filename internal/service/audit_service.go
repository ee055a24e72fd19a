package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/models"
	"github.com/histotrack/pathlab-api/pkg/jobs"
)

type auditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// AuditService records mutations asynchronously through a background worker
// queue. A failed write is retried by the queue and never blocks or fails
// the request that produced it.
type AuditService struct {
	repo    auditRepository
	queue   *jobs.Queue
	logger  *zap.Logger
	enabled bool
}

// AuditConfig tunes the background queue.
type AuditConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
	MaxRetries int
}

// NewAuditService constructs the audit sink and its worker queue.
func NewAuditService(repo auditRepository, cfg AuditConfig, logger *zap.Logger) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger, enabled: cfg.Enabled && repo != nil}
	s.queue = jobs.NewQueue("audit", s.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return s
}

// Start launches the queue workers.
func (s *AuditService) Start(ctx context.Context) {
	if !s.enabled {
		return
	}
	s.queue.Start(ctx)
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	if !s.enabled {
		return
	}
	s.queue.Stop()
}

// Record enqueues one audit entry. Details are marshalled eagerly so the
// caller's payload cannot mutate before the worker runs.
func (s *AuditService) Record(tableName, recordID, action, actor string, details interface{}) {
	if !s.enabled {
		return
	}
	entry := models.AuditLog{
		ID:         uuid.NewString(),
		TableName:  tableName,
		RecordID:   recordID,
		Action:     action,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
	if actor == "" {
		entry.Actor = "system"
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			s.logger.Warn("audit details marshal failed",
				zap.String("table", tableName), zap.String("record", recordID), zap.Error(err))
		} else {
			entry.Details = raw
		}
	}
	if err := s.queue.Enqueue(jobs.Job{ID: entry.ID, Type: action, Payload: entry}); err != nil {
		s.logger.Warn("audit enqueue failed",
			zap.String("table", tableName), zap.String("record", recordID), zap.Error(err))
	}
}

func (s *AuditService) persist(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(models.AuditLog)
	if !ok {
		s.logger.Warn("audit job carried unexpected payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, &entry)
}
