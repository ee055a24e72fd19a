package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/histotrack/pathlab-api/internal/models"
)

const measurementColumns = `id, sample_id, width_mm, height_mm, depth_mm, method, equipment, version,
        measured_by, measured_at, notes, active, created_at, created_by`

// MeasurementRepository manages the versioned measurement ledger. The
// mutating operations run as single transactions over the whole ledger of a
// sample so the single-active-version invariant survives crashes.
type MeasurementRepository struct {
	db *sqlx.DB
}

// NewMeasurementRepository constructs a MeasurementRepository.
func NewMeasurementRepository(db *sqlx.DB) *MeasurementRepository {
	return &MeasurementRepository{db: db}
}

// ListBySample returns every measurement version, newest version first.
func (r *MeasurementRepository) ListBySample(ctx context.Context, sampleID string) ([]models.Measurement, error) {
	query := fmt.Sprintf("SELECT %s FROM measurements WHERE sample_id = $1 ORDER BY version DESC", measurementColumns)
	var measurements []models.Measurement
	if err := r.db.SelectContext(ctx, &measurements, query, sampleID); err != nil {
		return nil, fmt.Errorf("list measurements: %w", err)
	}
	return measurements, nil
}

// FindActive returns the single active measurement of the sample.
func (r *MeasurementRepository) FindActive(ctx context.Context, sampleID string) (*models.Measurement, error) {
	query := fmt.Sprintf("SELECT %s FROM measurements WHERE sample_id = $1 AND active = TRUE", measurementColumns)
	var measurement models.Measurement
	if err := r.db.GetContext(ctx, &measurement, query, sampleID); err != nil {
		return nil, err
	}
	return &measurement, nil
}

// CountBySample returns the measurement count for readiness checks.
func (r *MeasurementRepository) CountBySample(ctx context.Context, sampleID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM measurements WHERE sample_id = $1", sampleID); err != nil {
		return 0, fmt.Errorf("count measurements: %w", err)
	}
	return count, nil
}

// Record appends a new measurement version in one transaction: all prior
// versions are deactivated, the version counter advances past the current
// maximum, and the sample row is written back with any status change the
// caller applied.
func (r *MeasurementRepository) Record(ctx context.Context, sample *models.Sample, m *models.Measurement) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record measurement: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "UPDATE measurements SET active = FALSE WHERE sample_id = $1", sample.ID); err != nil {
		return fmt.Errorf("deactivate measurements: %w", err)
	}

	var maxVersion int
	if err := tx.GetContext(ctx, &maxVersion, "SELECT COALESCE(MAX(version), 0) FROM measurements WHERE sample_id = $1", sample.ID); err != nil {
		return fmt.Errorf("max measurement version: %w", err)
	}

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.SampleID = sample.ID
	m.Version = maxVersion + 1
	m.Active = true
	now := time.Now().UTC()
	if m.MeasuredAt.IsZero() {
		m.MeasuredAt = now
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}

	const insert = `INSERT INTO measurements (id, sample_id, width_mm, height_mm, depth_mm, method, equipment,
        version, measured_by, measured_at, notes, active, created_at, created_by)
        VALUES (:id, :sample_id, :width_mm, :height_mm, :depth_mm, :method, :equipment,
        :version, :measured_by, :measured_at, :notes, :active, :created_at, :created_by)`
	if _, err := tx.NamedExecContext(ctx, insert, m); err != nil {
		return fmt.Errorf("insert measurement: %w", err)
	}

	sample.UpdatedAt = now
	const updateSample = `UPDATE samples SET status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, updateSample, sample); err != nil {
		return fmt.Errorf("update sample status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record measurement: %w", err)
	}
	return nil
}

// ActivateVersion swaps the active flag to the given version in one
// transaction. sql.ErrNoRows is returned when the version does not exist,
// leaving the ledger untouched.
func (r *MeasurementRepository) ActivateVersion(ctx context.Context, sampleID string, version int) (*models.Measurement, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin activate version: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := fmt.Sprintf("SELECT %s FROM measurements WHERE sample_id = $1 AND version = $2", measurementColumns)
	var target models.Measurement
	if err := tx.GetContext(ctx, &target, query, sampleID, version); err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find measurement version: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "UPDATE measurements SET active = FALSE WHERE sample_id = $1", sampleID); err != nil {
		return nil, fmt.Errorf("deactivate measurements: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "UPDATE measurements SET active = TRUE WHERE id = $1", target.ID); err != nil {
		return nil, fmt.Errorf("activate measurement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit activate version: %w", err)
	}

	target.Active = true
	return &target, nil
}
