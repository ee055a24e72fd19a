package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

// OverviewService summarises where samples and reports sit in the pipeline.
type OverviewService struct {
	samples sampleRepository
	reports reportRepository
	logger  *zap.Logger
}

// NewOverviewService constructs the overview service.
func NewOverviewService(samples sampleRepository, reports reportRepository, logger *zap.Logger) *OverviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverviewService{samples: samples, reports: reports, logger: logger}
}

// Workload aggregates sample and report counts into one snapshot.
func (s *OverviewService) Workload(ctx context.Context) (*models.WorkloadOverview, error) {
	total, err := s.samples.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count samples")
	}

	overview := &models.WorkloadOverview{
		TotalSamples: total,
		GeneratedAt:  time.Now().UTC(),
	}
	for _, status := range []models.SampleStatus{
		models.SampleStatusReceived, models.SampleStatusInProcessing, models.SampleStatusMeasured,
		models.SampleStatusAnalyzed, models.SampleStatusReported, models.SampleStatusReleased,
		models.SampleStatusCanceled,
	} {
		n, err := s.samples.CountByStatus(ctx, status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count samples by status")
		}
		overview.SamplesByStatus = append(overview.SamplesByStatus, models.SampleStatusBreakdown{Status: status, Count: n})
	}

	for _, status := range []models.ReportStatus{models.ReportStatusDraft, models.ReportStatusReview} {
		n, err := s.reports.CountByStatus(ctx, status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reports")
		}
		overview.PendingReview += n
	}
	ready, err := s.reports.CountByStatus(ctx, models.ReportStatusIssued)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reports")
	}
	overview.ReadyForRelease = ready

	return overview, nil
}
