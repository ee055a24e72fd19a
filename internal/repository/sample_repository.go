package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/models"
)

const sampleSearchColumns = `s.id, s.tracking_code, s.patient_id, s.requesting_doctor_id, s.tissue_type,
        s.anatomical_site, s.collection_date, s.receipt_date, s.status, s.notes, s.created_at, s.updated_at, s.created_by,
        (SELECT COUNT(*) FROM measurements m WHERE m.sample_id = s.id) AS measurement_count,
        (SELECT COUNT(*) FROM sample_images i WHERE i.sample_id = s.id) AS image_count,
        EXISTS (SELECT 1 FROM reports r WHERE r.sample_id = s.id) AS has_report`

// SampleRepository manages persistence for the sample aggregate.
type SampleRepository struct {
	db *sqlx.DB
}

// NewSampleRepository constructs a SampleRepository.
func NewSampleRepository(db *sqlx.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// FindByTrackingCode fetches a sample by its unique tracking code.
func (r *SampleRepository) FindByTrackingCode(ctx context.Context, code string) (*models.Sample, error) {
	const query = `SELECT id, tracking_code, patient_id, requesting_doctor_id, tissue_type, anatomical_site,
        collection_date, receipt_date, status, notes, created_at, updated_at, created_by
        FROM samples WHERE tracking_code = $1`
	var sample models.Sample
	if err := r.db.GetContext(ctx, &sample, query, code); err != nil {
		return nil, err
	}
	return &sample, nil
}

// FindByID fetches a sample by surrogate id.
func (r *SampleRepository) FindByID(ctx context.Context, id string) (*models.Sample, error) {
	const query = `SELECT id, tracking_code, patient_id, requesting_doctor_id, tissue_type, anatomical_site,
        collection_date, receipt_date, status, notes, created_at, updated_at, created_by
        FROM samples WHERE id = $1`
	var sample models.Sample
	if err := r.db.GetContext(ctx, &sample, query, id); err != nil {
		return nil, err
	}
	return &sample, nil
}

// ExistsByTrackingCode checks tracking code uniqueness.
func (r *SampleRepository) ExistsByTrackingCode(ctx context.Context, code string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM samples WHERE tracking_code = $1 LIMIT 1", code)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check tracking code: %w", err)
	}
	return true, nil
}

// Create inserts a new sample record.
func (r *SampleRepository) Create(ctx context.Context, sample *models.Sample) error {
	if sample.ID == "" {
		sample.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = now
	}
	sample.UpdatedAt = now
	const query = `INSERT INTO samples (id, tracking_code, patient_id, requesting_doctor_id, tissue_type,
        anatomical_site, collection_date, receipt_date, status, notes, created_at, updated_at, created_by)
        VALUES (:id, :tracking_code, :patient_id, :requesting_doctor_id, :tissue_type,
        :anatomical_site, :collection_date, :receipt_date, :status, :notes, :created_at, :updated_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, sample); err != nil {
		return fmt.Errorf("create sample: %w", err)
	}
	return nil
}

// Update persists mutable sample fields including status.
func (r *SampleRepository) Update(ctx context.Context, sample *models.Sample) error {
	sample.UpdatedAt = time.Now().UTC()
	const query = `UPDATE samples SET tissue_type = :tissue_type, anatomical_site = :anatomical_site,
        collection_date = :collection_date, receipt_date = :receipt_date, status = :status,
        notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, sample); err != nil {
		return fmt.Errorf("update sample: %w", err)
	}
	return nil
}

// Delete removes a sample and its owned children. Report protection is the
// service's concern.
func (r *SampleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM samples WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete sample: %w", err)
	}
	return nil
}

// HasReport reports whether a report row references the sample.
func (r *SampleRepository) HasReport(ctx context.Context, sampleID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM reports WHERE sample_id = $1 LIMIT 1", sampleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check sample report: %w", err)
	}
	return true, nil
}

// ReadinessCounts returns the measurement and image counts used by the
// ready-for-analysis check.
func (r *SampleRepository) ReadinessCounts(ctx context.Context, sampleID string) (int, int, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM measurements m WHERE m.sample_id = $1) AS measurement_count,
        (SELECT COUNT(*) FROM sample_images i WHERE i.sample_id = $1) AS image_count`
	var counts struct {
		MeasurementCount int `db:"measurement_count"`
		ImageCount       int `db:"image_count"`
	}
	if err := r.db.GetContext(ctx, &counts, query, sampleID); err != nil {
		return 0, 0, fmt.Errorf("readiness counts: %w", err)
	}
	return counts.MeasurementCount, counts.ImageCount, nil
}

// Search returns samples matching the compiled criteria with aggregate
// context, newest first.
func (r *SampleRepository) Search(ctx context.Context, criteria filter.SampleCriteria, page, size int) ([]models.SampleSearchRow, int, error) {
	where, args := criteria.Build().Where(1)
	base := "FROM samples s"
	if where != "" {
		base = fmt.Sprintf("%s WHERE %s", base, where)
	}

	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.created_at DESC LIMIT %d OFFSET %d",
		sampleSearchColumns, base, size, offset)

	var rows []models.SampleSearchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search samples: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count samples: %w", err)
	}
	return rows, total, nil
}

// CountByStatus counts samples carrying the given status.
func (r *SampleRepository) CountByStatus(ctx context.Context, status models.SampleStatus) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM samples WHERE status = $1", string(status)); err != nil {
		return 0, fmt.Errorf("count samples by status: %w", err)
	}
	return count, nil
}

// CountByPatient counts samples belonging to a patient.
func (r *SampleRepository) CountByPatient(ctx context.Context, patientID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM samples WHERE patient_id = $1", patientID); err != nil {
		return 0, fmt.Errorf("count samples by patient: %w", err)
	}
	return count, nil
}

// CountByDoctor counts samples requested by a doctor.
func (r *SampleRepository) CountByDoctor(ctx context.Context, doctorID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM samples WHERE requesting_doctor_id = $1", doctorID); err != nil {
		return 0, fmt.Errorf("count samples by doctor: %w", err)
	}
	return count, nil
}

// Count returns the total number of samples.
func (r *SampleRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM samples"); err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return count, nil
}
