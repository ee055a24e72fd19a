package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
	"github.com/histotrack/pathlab-api/pkg/export"
)

type reportRepository interface {
	FindByID(ctx context.Context, id string) (*models.Report, error)
	FindBySampleID(ctx context.Context, sampleID string) (*models.Report, error)
	List(ctx context.Context) ([]models.Report, error)
	ListByStatus(ctx context.Context, status models.ReportStatus) ([]models.Report, error)
	ListByPathologist(ctx context.Context, pathologistID string) ([]models.Report, error)
	ListPendingReview(ctx context.Context) ([]models.Report, error)
	ListReadyForRelease(ctx context.Context) ([]models.Report, error)
	Create(ctx context.Context, report *models.Report) error
	Update(ctx context.Context, report *models.Report) error
	SaveWithSample(ctx context.Context, report *models.Report, sample *models.Sample) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, status models.ReportStatus) (int, error)
}

type reportSampleRepository interface {
	FindByID(ctx context.Context, id string) (*models.Sample, error)
	ReadinessCounts(ctx context.Context, sampleID string) (int, int, error)
}

type reportMeasurementLookup interface {
	FindActive(ctx context.Context, sampleID string) (*models.Measurement, error)
}

// CreateReportRequest holds payload for opening a draft report.
type CreateReportRequest struct {
	SampleID           string `json:"sample_id" validate:"required"`
	PathologistID      string `json:"pathologist_id" validate:"required"`
	PrimaryDiagnosis   string `json:"primary_diagnosis"`
	SecondaryDiagnoses string `json:"secondary_diagnoses"`
	Conclusion         string `json:"conclusion"`
	Recommendations    string `json:"recommendations"`
	DiagnosisCode      string `json:"diagnosis_code"`
}

// UpdateReportRequest holds payload for editing report content.
type UpdateReportRequest struct {
	PrimaryDiagnosis   string `json:"primary_diagnosis"`
	SecondaryDiagnoses string `json:"secondary_diagnoses"`
	Conclusion         string `json:"conclusion"`
	Recommendations    string `json:"recommendations"`
	DiagnosisCode      string `json:"diagnosis_code"`
}

// ReportService orchestrates the report lifecycle and its cascades onto the
// owning sample. Lifecycle moves lock the sample so they cannot interleave
// with measurement or status mutations.
type ReportService struct {
	repo         reportRepository
	samples      reportSampleRepository
	doctors      doctorLookup
	patients     patientLookup
	measurements reportMeasurementLookup
	cache        *CacheService
	metrics      *MetricsService
	audit        *AuditService
	locks        *SampleLocks
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewReportService constructs the report service. The lock registry must be
// the one shared with the sample and measurement services, otherwise a
// cascade can race a concurrent measurement write on the same sample.
func NewReportService(repo reportRepository, samples reportSampleRepository, doctors doctorLookup,
	patients patientLookup, measurements reportMeasurementLookup,
	cache *CacheService, metrics *MetricsService, audit *AuditService, locks *SampleLocks,
	validate *validator.Validate, logger *zap.Logger) *ReportService {
	if locks == nil {
		locks = NewSampleLocks()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		repo:         repo,
		samples:      samples,
		doctors:      doctors,
		patients:     patients,
		measurements: measurements,
		cache:        cache,
		metrics:      metrics,
		audit:        audit,
		locks:        locks,
		validator:    validate,
		logger:       logger,
	}
}

// Create opens a draft report for a sample that is ready for analysis and
// not yet reported on.
func (s *ReportService) Create(ctx context.Context, req CreateReportRequest) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}

	unlock := s.locks.Lock(req.SampleID)
	defer unlock()

	sample, err := s.samples.FindByID(ctx, req.SampleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}
	if sample.Status == models.SampleStatusCanceled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot report on a canceled sample")
	}

	if _, err := s.repo.FindBySampleID(ctx, req.SampleID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "sample already has a report")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing report")
	}

	measurements, images, err := s.samples.ReadinessCounts(ctx, req.SampleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load readiness counts")
	}
	if measurements == 0 || images == 0 {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "sample is not ready for analysis")
	}

	pathologist, err := s.doctors.FindByID(ctx, req.PathologistID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrBusinessRule, "pathologist not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pathologist")
	}
	if pathologist.Role != models.DoctorRolePathologist {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "doctor is not a pathologist")
	}
	if !pathologist.Active {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "pathologist is inactive")
	}

	report := &models.Report{
		SampleID:           req.SampleID,
		PathologistID:      req.PathologistID,
		PrimaryDiagnosis:   req.PrimaryDiagnosis,
		SecondaryDiagnoses: req.SecondaryDiagnoses,
		Conclusion:         req.Conclusion,
		Recommendations:    req.Recommendations,
		DiagnosisCode:      req.DiagnosisCode,
		Status:             models.ReportStatusDraft,
		CreatedBy:          actorFrom(ctx),
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create report")
	}

	s.invalidateSearchCache(ctx)
	s.metrics.ObserveReportTransition(report.Status)
	s.audit.Record("reports", report.ID, "CREATE", actorFrom(ctx), report)
	return report, nil
}

// Get returns a report by id.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// GetBySample returns the report attached to a sample.
func (s *ReportService) GetBySample(ctx context.Context, sampleID string) (*models.Report, error) {
	report, err := s.repo.FindBySampleID(ctx, sampleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample has no report")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report")
	}
	return report, nil
}

// List returns reports, optionally narrowed to a status or pathologist.
func (s *ReportService) List(ctx context.Context, status *models.ReportStatus, pathologistID string) ([]models.Report, error) {
	var (
		reports []models.Report
		err     error
	)
	switch {
	case status != nil:
		reports, err = s.repo.ListByStatus(ctx, *status)
	case pathologistID != "":
		reports, err = s.repo.ListByPathologist(ctx, pathologistID)
	default:
		reports, err = s.repo.List(ctx)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reports")
	}
	return reports, nil
}

// PendingReview returns drafts and in-review reports awaiting sign-off.
func (s *ReportService) PendingReview(ctx context.Context) ([]models.Report, error) {
	reports, err := s.repo.ListPendingReview(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending reports")
	}
	return reports, nil
}

// ReadyForRelease returns issued reports not yet released.
func (s *ReportService) ReadyForRelease(ctx context.Context) ([]models.Report, error) {
	reports, err := s.repo.ListReadyForRelease(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list releasable reports")
	}
	return reports, nil
}

// Update edits report content while the report is still editable.
func (s *ReportService) Update(ctx context.Context, id string, req UpdateReportRequest) (*models.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report payload")
	}
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.IsEditable() {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "report content can only change while in draft or review")
	}

	report.PrimaryDiagnosis = req.PrimaryDiagnosis
	report.SecondaryDiagnoses = req.SecondaryDiagnoses
	report.Conclusion = req.Conclusion
	report.Recommendations = req.Recommendations
	report.DiagnosisCode = req.DiagnosisCode
	if err := s.repo.Update(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report")
	}

	s.audit.Record("reports", report.ID, "UPDATE", actorFrom(ctx), report)
	return report, nil
}

// SendToReview moves a draft into review.
func (s *ReportService) SendToReview(ctx context.Context, id string) (*models.Report, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := report.SendToReview(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update report")
	}

	s.metrics.ObserveReportTransition(report.Status)
	s.audit.Record("reports", report.ID, "REVIEW", actorFrom(ctx), report)
	return report, nil
}

// Issue signs off a complete report and cascades the sample to REPORTED.
func (s *ReportService) Issue(ctx context.Context, id string) (*models.Report, error) {
	return s.transition(ctx, id, "ISSUE", func(report *models.Report, now time.Time) (models.SampleStatus, error) {
		if !report.IsComplete() {
			return "", appErrors.Clone(appErrors.ErrIncompleteReport, "primary diagnosis, conclusion and diagnosis code are required to issue")
		}
		return report.Issue(now)
	})
}

// Release publishes an issued report and cascades the sample to RELEASED.
func (s *ReportService) Release(ctx context.Context, id string) (*models.Report, error) {
	return s.transition(ctx, id, "RELEASE", func(report *models.Report, now time.Time) (models.SampleStatus, error) {
		return report.Release(now)
	})
}

// Cancel voids a report and cascades the sample to CANCELED.
func (s *ReportService) Cancel(ctx context.Context, id string) (*models.Report, error) {
	return s.transition(ctx, id, "CANCEL", func(report *models.Report, now time.Time) (models.SampleStatus, error) {
		return report.Cancel()
	})
}

// transition runs one lifecycle move: the model method yields the sample
// cascade target, and both rows are saved in a single transaction under the
// sample lock.
func (s *ReportService) transition(ctx context.Context, id, action string,
	move func(*models.Report, time.Time) (models.SampleStatus, error)) (*models.Report, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(report.SampleID)
	defer unlock()

	// Reload under the lock so a concurrent transition cannot be replayed.
	report, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sample, err := s.samples.FindByID(ctx, report.SampleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}

	target, err := move(report, time.Now())
	if err != nil {
		return nil, err
	}
	if err := sample.TransitionTo(target); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithSample(ctx, report, sample); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save report transition")
	}

	s.invalidateSearchCache(ctx)
	s.metrics.ObserveReportTransition(report.Status)
	s.metrics.ObserveSampleTransition(sample.Status)
	s.audit.Record("reports", report.ID, action, actorFrom(ctx), report)
	return report, nil
}

// Delete removes a report still in draft or already canceled.
func (s *ReportService) Delete(ctx context.Context, id string) error {
	report, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !report.Deletable() {
		return appErrors.Clone(appErrors.ErrBusinessRule, "only draft or canceled reports can be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete report")
	}

	s.invalidateSearchCache(ctx)
	s.audit.Record("reports", id, "DELETE", actorFrom(ctx), report)
	return nil
}

// CountByStatus tallies reports per lifecycle state.
func (s *ReportService) CountByStatus(ctx context.Context) (map[models.ReportStatus]int, error) {
	counts := make(map[models.ReportStatus]int)
	for _, status := range []models.ReportStatus{
		models.ReportStatusDraft, models.ReportStatusReview, models.ReportStatusIssued,
		models.ReportStatusReleased, models.ReportStatusCanceled,
	} {
		n, err := s.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count reports")
		}
		counts[status] = n
	}
	return counts, nil
}

// RenderPDF renders an issued or released report as a PDF document.
func (s *ReportService) RenderPDF(ctx context.Context, id string) ([]byte, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != models.ReportStatusIssued && report.Status != models.ReportStatusReleased {
		return nil, appErrors.Clone(appErrors.ErrBusinessRule, "only issued or released reports can be exported")
	}

	sample, err := s.samples.FindByID(ctx, report.SampleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}
	patient, err := s.patients.FindByID(ctx, sample.PatientID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load patient")
	}
	pathologist, err := s.doctors.FindByID(ctx, report.PathologistID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pathologist")
	}

	doc := export.ReportDocument{
		TrackingCode:       sample.TrackingCode,
		TissueType:         sample.TissueType,
		AnatomicalSite:     sample.AnatomicalSite,
		CollectionDate:     sample.CollectionDate,
		PatientName:        patient.FullName,
		PatientAge:         patient.Age(time.Now()),
		PatientSex:         string(patient.Sex),
		PathologistName:    pathologist.FullName,
		PathologistLicense: pathologist.License + "/" + pathologist.LicenseRegion,
		Status:             string(report.Status),
		PrimaryDiagnosis:   report.PrimaryDiagnosis,
		SecondaryDiagnoses: report.SecondaryDiagnoses,
		Conclusion:         report.Conclusion,
		Recommendations:    report.Recommendations,
		DiagnosisCode:      report.DiagnosisCode,
		IssuedAt:           report.IssuedAt,
		ReleasedAt:         report.ReleasedAt,
	}
	if active, err := s.measurements.FindActive(ctx, report.SampleID); err == nil {
		doc.Measurement = &export.MeasurementLine{
			WidthMM:   active.WidthMM.StringFixed(2),
			HeightMM:  active.HeightMM.StringFixed(2),
			VolumeMM3: active.Volume().StringFixed(2),
			Version:   active.Version,
		}
		if active.DepthMM.Valid {
			doc.Measurement.DepthMM = active.DepthMM.Decimal.StringFixed(2)
		}
	}

	pdf, err := export.RenderReportPDF(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report pdf")
	}
	return pdf, nil
}

func (s *ReportService) invalidateSearchCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, "samples:search:*"); err != nil {
		s.logger.Debug("sample search cache invalidate failed", zap.Error(err))
	}
}
