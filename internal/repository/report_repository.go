package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/histotrack/pathlab-api/internal/models"
)

const reportColumns = `id, sample_id, pathologist_id, primary_diagnosis, secondary_diagnoses, conclusion,
        recommendations, status, diagnosis_code, issued_at, released_at, created_at, updated_at, created_by`

// ReportRepository manages persistence for diagnostic reports.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs a ReportRepository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// FindByID fetches a report by id.
func (r *ReportRepository) FindByID(ctx context.Context, id string) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE id = $1", reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, id); err != nil {
		return nil, err
	}
	return &report, nil
}

// FindBySampleID fetches the report attached to a sample, if any.
func (r *ReportRepository) FindBySampleID(ctx context.Context, sampleID string) (*models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE sample_id = $1", reportColumns)
	var report models.Report
	if err := r.db.GetContext(ctx, &report, query, sampleID); err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns every report, newest first.
func (r *ReportRepository) List(ctx context.Context) ([]models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports ORDER BY created_at DESC", reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return reports, nil
}

// ListByStatus returns reports in a given lifecycle state.
func (r *ReportRepository) ListByStatus(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE status = $1 ORDER BY created_at DESC", reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, string(status)); err != nil {
		return nil, fmt.Errorf("list reports by status: %w", err)
	}
	return reports, nil
}

// ListByPathologist returns reports authored by one pathologist.
func (r *ReportRepository) ListByPathologist(ctx context.Context, pathologistID string) ([]models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE pathologist_id = $1 ORDER BY created_at DESC", reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, pathologistID); err != nil {
		return nil, fmt.Errorf("list reports by pathologist: %w", err)
	}
	return reports, nil
}

// ListPendingReview returns drafts and in-review reports awaiting sign-off.
func (r *ReportRepository) ListPendingReview(ctx context.Context) ([]models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE status IN ($1, $2) ORDER BY created_at ASC", reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, string(models.ReportStatusDraft), string(models.ReportStatusReview)); err != nil {
		return nil, fmt.Errorf("list pending review reports: %w", err)
	}
	return reports, nil
}

// ListReadyForRelease returns issued reports not yet released.
func (r *ReportRepository) ListReadyForRelease(ctx context.Context) ([]models.Report, error) {
	query := fmt.Sprintf("SELECT %s FROM reports WHERE status = $1 ORDER BY issued_at ASC", reportColumns)
	var reports []models.Report
	if err := r.db.SelectContext(ctx, &reports, query, string(models.ReportStatusIssued)); err != nil {
		return nil, fmt.Errorf("list reports ready for release: %w", err)
	}
	return reports, nil
}

// Create inserts a new report record.
func (r *ReportRepository) Create(ctx context.Context, report *models.Report) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if report.CreatedAt.IsZero() {
		report.CreatedAt = now
	}
	report.UpdatedAt = now
	const query = `INSERT INTO reports (id, sample_id, pathologist_id, primary_diagnosis, secondary_diagnoses,
        conclusion, recommendations, status, diagnosis_code, issued_at, released_at, created_at, updated_at, created_by)
        VALUES (:id, :sample_id, :pathologist_id, :primary_diagnosis, :secondary_diagnoses,
        :conclusion, :recommendations, :status, :diagnosis_code, :issued_at, :released_at, :created_at, :updated_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	return nil
}

// Update persists report fields.
func (r *ReportRepository) Update(ctx context.Context, report *models.Report) error {
	report.UpdatedAt = time.Now().UTC()
	const query = `UPDATE reports SET primary_diagnosis = :primary_diagnosis, secondary_diagnoses = :secondary_diagnoses,
        conclusion = :conclusion, recommendations = :recommendations, status = :status, diagnosis_code = :diagnosis_code,
        issued_at = :issued_at, released_at = :released_at, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return nil
}

// SaveWithSample writes a report transition and the cascaded sample status
// as one transaction, so the two state machines never diverge.
func (r *ReportRepository) SaveWithSample(ctx context.Context, report *models.Report, sample *models.Sample) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin report save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	report.UpdatedAt = now
	const reportQuery = `UPDATE reports SET primary_diagnosis = :primary_diagnosis, secondary_diagnoses = :secondary_diagnoses,
        conclusion = :conclusion, recommendations = :recommendations, status = :status, diagnosis_code = :diagnosis_code,
        issued_at = :issued_at, released_at = :released_at, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, reportQuery, report); err != nil {
		return fmt.Errorf("update report: %w", err)
	}

	sample.UpdatedAt = now
	const sampleQuery = `UPDATE samples SET status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, sampleQuery, sample); err != nil {
		return fmt.Errorf("cascade sample status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit report save: %w", err)
	}
	return nil
}

// Delete removes a report. Lifecycle guards are the service's concern.
func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM reports WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return nil
}

// CountByStatus counts reports in one lifecycle state.
func (r *ReportRepository) CountByStatus(ctx context.Context, status models.ReportStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM reports WHERE status = $1", string(status)); err != nil {
		return 0, fmt.Errorf("count reports by status: %w", err)
	}
	return count, nil
}
