package service

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

type sampleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Sample, error)
	FindByTrackingCode(ctx context.Context, code string) (*models.Sample, error)
	ExistsByTrackingCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, sample *models.Sample) error
	Update(ctx context.Context, sample *models.Sample) error
	Delete(ctx context.Context, id string) error
	HasReport(ctx context.Context, sampleID string) (bool, error)
	ReadinessCounts(ctx context.Context, sampleID string) (int, int, error)
	Search(ctx context.Context, criteria filter.SampleCriteria, page, size int) ([]models.SampleSearchRow, int, error)
	CountByStatus(ctx context.Context, status models.SampleStatus) (int, error)
	CountByPatient(ctx context.Context, patientID string) (int, error)
	CountByDoctor(ctx context.Context, doctorID string) (int, error)
	Count(ctx context.Context) (int, error)
}

type patientLookup interface {
	FindByID(ctx context.Context, id string) (*models.Patient, error)
}

type doctorLookup interface {
	FindByID(ctx context.Context, id string) (*models.Doctor, error)
}

// CreateSampleRequest holds payload for registering samples.
type CreateSampleRequest struct {
	TrackingCode       string     `json:"tracking_code" validate:"required"`
	PatientID          string     `json:"patient_id" validate:"required"`
	RequestingDoctorID string     `json:"requesting_doctor_id" validate:"required"`
	TissueType         string     `json:"tissue_type" validate:"required"`
	AnatomicalSite     string     `json:"anatomical_site"`
	CollectionDate     time.Time  `json:"collection_date" validate:"required"`
	ReceiptDate        *time.Time `json:"receipt_date"`
	Notes              string     `json:"notes"`
	CreatedBy          string     `json:"-"`
}

// UpdateSampleRequest holds payload for editing sample fields. Status moves
// through its own endpoint.
type UpdateSampleRequest struct {
	TissueType     string     `json:"tissue_type" validate:"required"`
	AnatomicalSite string     `json:"anatomical_site"`
	CollectionDate time.Time  `json:"collection_date" validate:"required"`
	ReceiptDate    *time.Time `json:"receipt_date"`
	Notes          string     `json:"notes"`
}

// SampleReadiness is the derived analysis-readiness view of one sample.
type SampleReadiness struct {
	SampleID         string `json:"sample_id"`
	MeasurementCount int    `json:"measurement_count"`
	ImageCount       int    `json:"image_count"`
	Ready            bool   `json:"ready"`
}

// SampleService handles the sample lifecycle use-cases.
type SampleService struct {
	repo      sampleRepository
	patients  patientLookup
	doctors   doctorLookup
	cache     *CacheService
	metrics   *MetricsService
	audit     *AuditService
	locks     *SampleLocks
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSampleService constructs the sample service. The lock registry must be
// the same instance handed to the measurement and report services.
func NewSampleService(repo sampleRepository, patients patientLookup, doctors doctorLookup,
	cache *CacheService, metrics *MetricsService, audit *AuditService, locks *SampleLocks,
	validate *validator.Validate, logger *zap.Logger) *SampleService {
	if locks == nil {
		locks = NewSampleLocks()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SampleService{
		repo:      repo,
		patients:  patients,
		doctors:   doctors,
		cache:     cache,
		metrics:   metrics,
		audit:     audit,
		locks:     locks,
		validator: validate,
		logger:    logger,
	}
}

// Create registers a new sample in RECEIVED status.
func (s *SampleService) Create(ctx context.Context, req CreateSampleRequest) (*models.Sample, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sample payload")
	}

	if _, err := s.patients.FindByID(ctx, req.PatientID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrBusinessRule, "patient not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}

	doctor, err := s.doctors.FindByID(ctx, req.RequestingDoctorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrBusinessRule, "requesting doctor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load doctor")
	}
	if doctor.Role != models.DoctorRoleRequesting {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "doctor is not a requesting physician")
	}
	if !doctor.Active {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "requesting doctor is inactive")
	}

	exists, err := s.repo.ExistsByTrackingCode(ctx, req.TrackingCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate tracking code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "tracking code already in use")
	}

	sample := &models.Sample{
		TrackingCode:       req.TrackingCode,
		PatientID:          req.PatientID,
		RequestingDoctorID: req.RequestingDoctorID,
		TissueType:         req.TissueType,
		AnatomicalSite:     req.AnatomicalSite,
		CollectionDate:     req.CollectionDate,
		ReceiptDate:        req.ReceiptDate,
		Status:             models.SampleStatusReceived,
		Notes:              req.Notes,
		CreatedBy:          req.CreatedBy,
	}
	if err := sample.ValidateDates(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, sample); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sample")
	}

	s.invalidateSearchCache(ctx)
	s.metrics.ObserveSampleTransition(sample.Status)
	s.audit.Record("samples", sample.ID, "CREATE", req.CreatedBy, sample)
	return sample, nil
}

// Get returns a sample by id.
func (s *SampleService) Get(ctx context.Context, id string) (*models.Sample, error) {
	sample, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}
	return sample, nil
}

// GetByTrackingCode returns a sample by its tracking code.
func (s *SampleService) GetByTrackingCode(ctx context.Context, code string) (*models.Sample, error) {
	sample, err := s.repo.FindByTrackingCode(ctx, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}
	return sample, nil
}

// Search returns samples matching the criteria with pagination metadata.
// Zero criteria means an unfiltered listing. Results are cached per
// criteria+page when caching is enabled.
func (s *SampleService) Search(ctx context.Context, criteria filter.SampleCriteria, page, size int) ([]models.SampleSearchRow, *models.Pagination, error) {
	type cached struct {
		Rows       []models.SampleSearchRow `json:"rows"`
		Pagination models.Pagination        `json:"pagination"`
	}

	key := sampleSearchCacheKey(criteria, page, size)
	var hit cached
	if ok, _ := s.cache.Get(ctx, key, &hit); ok {
		p := hit.Pagination
		return hit.Rows, &p, nil
	}

	rows, total, err := s.repo.Search(ctx, criteria, page, size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search samples")
	}
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}

	if err := s.cache.Set(ctx, key, cached{Rows: rows, Pagination: *pagination}, 0); err != nil {
		s.logger.Debug("sample search cache set failed", zap.Error(err))
	}
	return rows, pagination, nil
}

// Readiness reports whether the sample can enter analysis.
func (s *SampleService) Readiness(ctx context.Context, id string) (*SampleReadiness, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	measurements, images, err := s.repo.ReadinessCounts(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load readiness counts")
	}
	return &SampleReadiness{
		SampleID:         id,
		MeasurementCount: measurements,
		ImageCount:       images,
		Ready:            measurements > 0 && images > 0,
	}, nil
}

// Update edits the descriptive fields of a sample.
func (s *SampleService) Update(ctx context.Context, id string, req UpdateSampleRequest) (*models.Sample, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid sample payload")
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	sample, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sample.Status == models.SampleStatusCanceled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot edit a canceled sample")
	}

	sample.TissueType = req.TissueType
	sample.AnatomicalSite = req.AnatomicalSite
	sample.CollectionDate = req.CollectionDate
	sample.ReceiptDate = req.ReceiptDate
	sample.Notes = req.Notes
	if err := sample.ValidateDates(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sample); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sample")
	}

	s.invalidateSearchCache(ctx)
	s.audit.Record("samples", sample.ID, "UPDATE", actorFrom(ctx), sample)
	return sample, nil
}

// UpdateStatus applies a status transition under the per-sample lock.
func (s *SampleService) UpdateStatus(ctx context.Context, id string, target models.SampleStatus) (*models.Sample, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	sample, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sample.TransitionTo(target); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, sample); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update sample status")
	}

	s.invalidateSearchCache(ctx)
	s.metrics.ObserveSampleTransition(sample.Status)
	s.audit.Record("samples", sample.ID, "STATUS_"+string(target), actorFrom(ctx), sample)
	return sample, nil
}

// Delete removes a sample. Samples with a report are protected.
func (s *SampleService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	sample, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	hasReport, err := s.repo.HasReport(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check sample report")
	}
	if hasReport {
		return appErrors.Clone(appErrors.ErrBusinessRule, "sample has a report and cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete sample")
	}

	s.invalidateSearchCache(ctx)
	s.audit.Record("samples", id, "DELETE", actorFrom(ctx), sample)
	return nil
}

// SampleCounts groups the tally endpoints behind one response shape.
type SampleCounts struct {
	Total    int                         `json:"total"`
	ByStatus map[models.SampleStatus]int `json:"by_status"`
}

// Counts returns the total and per-status sample tallies.
func (s *SampleService) Counts(ctx context.Context) (*SampleCounts, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count samples")
	}
	counts := &SampleCounts{Total: total, ByStatus: make(map[models.SampleStatus]int)}
	for _, status := range []models.SampleStatus{
		models.SampleStatusReceived, models.SampleStatusInProcessing, models.SampleStatusMeasured,
		models.SampleStatusAnalyzed, models.SampleStatusReported, models.SampleStatusReleased,
		models.SampleStatusCanceled,
	} {
		n, err := s.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count samples by status")
		}
		counts.ByStatus[status] = n
	}
	return counts, nil
}

// CountByPatient returns how many samples a patient owns.
func (s *SampleService) CountByPatient(ctx context.Context, patientID string) (int, error) {
	count, err := s.repo.CountByPatient(ctx, patientID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count samples by patient")
	}
	return count, nil
}

// CountByDoctor returns how many samples a doctor requested.
func (s *SampleService) CountByDoctor(ctx context.Context, doctorID string) (int, error) {
	count, err := s.repo.CountByDoctor(ctx, doctorID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count samples by doctor")
	}
	return count, nil
}

func (s *SampleService) invalidateSearchCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "samples:search:*"); err != nil {
		s.logger.Debug("sample search cache invalidate failed", zap.Error(err))
	}
}

func sampleSearchCacheKey(criteria filter.SampleCriteria, page, size int) string {
	raw, err := json.Marshal(struct {
		filter.SampleCriteria
		Page int
		Size int
	}{criteria, page, size})
	if err != nil {
		return fmt.Sprintf("samples:search:p%d:s%d", page, size)
	}
	sum := sha1.Sum(raw)
	return "samples:search:" + hex.EncodeToString(sum[:])
}
