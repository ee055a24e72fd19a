package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

type measurementRepository interface {
	ListBySample(ctx context.Context, sampleID string) ([]models.Measurement, error)
	FindActive(ctx context.Context, sampleID string) (*models.Measurement, error)
	CountBySample(ctx context.Context, sampleID string) (int, error)
	Record(ctx context.Context, sample *models.Sample, m *models.Measurement) error
	ActivateVersion(ctx context.Context, sampleID string, version int) (*models.Measurement, error)
}

type measurementSampleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Sample, error)
}

// RecordMeasurementRequest holds payload for recording a measurement.
type RecordMeasurementRequest struct {
	WidthMM    decimal.Decimal  `json:"width_mm" validate:"required"`
	HeightMM   decimal.Decimal  `json:"height_mm" validate:"required"`
	DepthMM    *decimal.Decimal `json:"depth_mm"`
	Method     string           `json:"method"`
	Equipment  string           `json:"equipment"`
	MeasuredBy string           `json:"measured_by" validate:"required"`
	MeasuredAt *time.Time       `json:"measured_at"`
	Notes      string           `json:"notes"`
}

// MeasurementView is a measurement with its derived volume.
type MeasurementView struct {
	models.Measurement
	VolumeMM3 decimal.Decimal `json:"volume_mm3"`
}

// MeasurementService maintains the versioned measurement ledger of each
// sample. All ledger mutations run under the per-sample lock.
type MeasurementService struct {
	repo      measurementRepository
	samples   measurementSampleRepository
	cache     *CacheService
	metrics   *MetricsService
	audit     *AuditService
	locks     *SampleLocks
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMeasurementService constructs the measurement service. The lock
// registry must be the one shared with the sample and report services.
func NewMeasurementService(repo measurementRepository, samples measurementSampleRepository,
	cache *CacheService, metrics *MetricsService, audit *AuditService, locks *SampleLocks,
	validate *validator.Validate, logger *zap.Logger) *MeasurementService {
	if locks == nil {
		locks = NewSampleLocks()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeasurementService{
		repo:      repo,
		samples:   samples,
		cache:     cache,
		metrics:   metrics,
		audit:     audit,
		locks:     locks,
		validator: validate,
		logger:    logger,
	}
}

// Record appends a new measurement version. Prior versions are deactivated,
// the version counter advances, and a sample still in RECEIVED or
// IN_PROCESSING moves to MEASURED.
func (s *MeasurementService) Record(ctx context.Context, sampleID string, req RecordMeasurementRequest) (*MeasurementView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid measurement payload")
	}
	if req.WidthMM.Sign() <= 0 || req.HeightMM.Sign() <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "width and height must be positive")
	}
	if req.DepthMM != nil && req.DepthMM.Sign() <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "depth must be positive when present")
	}

	unlock := s.locks.Lock(sampleID)
	defer unlock()

	sample, err := s.samples.FindByID(ctx, sampleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}
	if sample.Status == models.SampleStatusCanceled || sample.Status == models.SampleStatusReleased {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot measure a canceled or released sample")
	}

	measurement := &models.Measurement{
		SampleID:   sampleID,
		WidthMM:    req.WidthMM,
		HeightMM:   req.HeightMM,
		Method:     req.Method,
		Equipment:  req.Equipment,
		MeasuredBy: req.MeasuredBy,
		Notes:      req.Notes,
		CreatedBy:  actorFrom(ctx),
	}
	if req.DepthMM != nil {
		measurement.DepthMM = decimal.NewNullDecimal(*req.DepthMM)
	}
	if req.MeasuredAt != nil {
		measurement.MeasuredAt = *req.MeasuredAt
	}

	if sample.Status == models.SampleStatusReceived || sample.Status == models.SampleStatusInProcessing {
		if err := sample.TransitionTo(models.SampleStatusMeasured); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Record(ctx, sample, measurement); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record measurement")
	}

	s.invalidateSearchCache(ctx)
	s.metrics.ObserveMeasurementRecorded()
	s.metrics.ObserveSampleTransition(sample.Status)
	s.audit.Record("measurements", measurement.ID, "CREATE", actorFrom(ctx), measurement)
	return &MeasurementView{Measurement: *measurement, VolumeMM3: measurement.Volume()}, nil
}

// ActivateVersion makes a historical version the active one. The ledger is
// untouched when the version does not exist.
func (s *MeasurementService) ActivateVersion(ctx context.Context, sampleID string, version int) (*MeasurementView, error) {
	unlock := s.locks.Lock(sampleID)
	defer unlock()

	if _, err := s.samples.FindByID(ctx, sampleID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}

	measurement, err := s.repo.ActivateVersion(ctx, sampleID, version)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "measurement version not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate measurement version")
	}

	s.audit.Record("measurements", measurement.ID, "ACTIVATE", actorFrom(ctx), measurement)
	return &MeasurementView{Measurement: *measurement, VolumeMM3: measurement.Volume()}, nil
}

// Active returns the single active measurement of a sample.
func (s *MeasurementService) Active(ctx context.Context, sampleID string) (*MeasurementView, error) {
	measurement, err := s.repo.FindActive(ctx, sampleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no active measurement for sample")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active measurement")
	}
	return &MeasurementView{Measurement: *measurement, VolumeMM3: measurement.Volume()}, nil
}

// ListBySample returns the full ledger, newest version first.
func (s *MeasurementService) ListBySample(ctx context.Context, sampleID string) ([]MeasurementView, error) {
	measurements, err := s.repo.ListBySample(ctx, sampleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list measurements")
	}
	views := make([]MeasurementView, 0, len(measurements))
	for _, m := range measurements {
		views = append(views, MeasurementView{Measurement: m, VolumeMM3: m.Volume()})
	}
	return views, nil
}

// Delete is rejected unconditionally: the ledger is append-only and history
// is corrected by activating an earlier version.
func (s *MeasurementService) Delete(ctx context.Context, sampleID, measurementID string) error {
	return appErrors.Clone(appErrors.ErrBusinessRule, "measurements cannot be deleted; activate another version instead")
}

func (s *MeasurementService) invalidateSearchCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "samples:search:*"); err != nil {
		s.logger.Debug("sample search cache invalidate failed", zap.Error(err))
	}
}
