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

const patientColumns = `p.id, p.full_name, p.national_id, p.birth_date, p.sex, p.phone, p.email, p.address,
        p.created_at, p.updated_at, p.created_by`

// PatientRepository manages persistence for patients.
type PatientRepository struct {
	db *sqlx.DB
}

// NewPatientRepository constructs a PatientRepository.
func NewPatientRepository(db *sqlx.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// FindByID fetches a patient by id.
func (r *PatientRepository) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	query := fmt.Sprintf("SELECT %s FROM patients p WHERE p.id = $1", patientColumns)
	var patient models.Patient
	if err := r.db.GetContext(ctx, &patient, query, id); err != nil {
		return nil, err
	}
	return &patient, nil
}

// ExistsByNationalID checks national id uniqueness, optionally excluding an id.
func (r *PatientRepository) ExistsByNationalID(ctx context.Context, nationalID, excludeID string) (bool, error) {
	query := "SELECT 1 FROM patients WHERE national_id = $1"
	args := []interface{}{nationalID}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check national id: %w", err)
	}
	return true, nil
}

// Search returns patients matching the compiled criteria with their sample
// counts.
func (r *PatientRepository) Search(ctx context.Context, criteria filter.PatientCriteria, page, size int) ([]filter.PatientRow, int, error) {
	where, args := criteria.Build().Where(1)
	base := "FROM patients p"
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

	query := fmt.Sprintf(`SELECT %s,
        (SELECT COUNT(*) FROM samples s WHERE s.patient_id = p.id) AS sample_count
        %s ORDER BY p.full_name ASC LIMIT %d OFFSET %d`, patientColumns, base, size, offset)
	var patients []filter.PatientRow
	if err := r.db.SelectContext(ctx, &patients, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search patients: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	return patients, total, nil
}

// Create inserts a new patient record.
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	if patient.ID == "" {
		patient.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now
	const query = `INSERT INTO patients (id, full_name, national_id, birth_date, sex, phone, email, address,
        created_at, updated_at, created_by)
        VALUES (:id, :full_name, :national_id, :birth_date, :sex, :phone, :email, :address,
        :created_at, :updated_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("create patient: %w", err)
	}
	return nil
}

// Update persists mutable patient fields.
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	patient.UpdatedAt = time.Now().UTC()
	const query = `UPDATE patients SET full_name = :full_name, national_id = :national_id, birth_date = :birth_date,
        sex = :sex, phone = :phone, email = :email, address = :address, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, patient); err != nil {
		return fmt.Errorf("update patient: %w", err)
	}
	return nil
}

// HasSamples reports whether any sample references the patient.
func (r *PatientRepository) HasSamples(ctx context.Context, id string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM samples WHERE patient_id = $1 LIMIT 1", id); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check patient samples: %w", err)
	}
	return true, nil
}

// Delete removes a patient record.
func (r *PatientRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM patients WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}
	return nil
}
