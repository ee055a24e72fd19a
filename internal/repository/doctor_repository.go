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

const doctorColumns = `d.id, d.full_name, d.license, d.license_region, d.specialty, d.role, d.phone, d.email,
        d.active, d.created_at, d.updated_at, d.created_by`

// DoctorRepository manages persistence for doctors and doubles as the
// reference lookup consulted by the lifecycle services.
type DoctorRepository struct {
	db *sqlx.DB
}

// NewDoctorRepository constructs a DoctorRepository.
func NewDoctorRepository(db *sqlx.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// FindByID fetches a doctor by id.
func (r *DoctorRepository) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	query := fmt.Sprintf("SELECT %s FROM doctors d WHERE d.id = $1", doctorColumns)
	var doctor models.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, err
	}
	return &doctor, nil
}

// ExistsByLicense checks license+region uniqueness, optionally excluding an id.
func (r *DoctorRepository) ExistsByLicense(ctx context.Context, license, region, excludeID string) (bool, error) {
	query := "SELECT 1 FROM doctors WHERE license = $1 AND license_region = $2"
	args := []interface{}{license, region}
	if excludeID != "" {
		query += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check doctor license: %w", err)
	}
	return true, nil
}

// Search returns doctors matching the compiled criteria.
func (r *DoctorRepository) Search(ctx context.Context, criteria filter.DoctorCriteria, page, size int) ([]models.Doctor, int, error) {
	where, args := criteria.Build().Where(1)
	base := "FROM doctors d"
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY d.full_name ASC LIMIT %d OFFSET %d", doctorColumns, base, size, offset)
	var doctors []models.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query, args...); err != nil {
		return nil, 0, fmt.Errorf("search doctors: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}
	return doctors, total, nil
}

// Create inserts a new doctor record.
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	if doctor.ID == "" {
		doctor.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if doctor.CreatedAt.IsZero() {
		doctor.CreatedAt = now
	}
	doctor.UpdatedAt = now
	const query = `INSERT INTO doctors (id, full_name, license, license_region, specialty, role, phone, email,
        active, created_at, updated_at, created_by)
        VALUES (:id, :full_name, :license, :license_region, :specialty, :role, :phone, :email,
        :active, :created_at, :updated_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("create doctor: %w", err)
	}
	return nil
}

// Update persists mutable doctor fields.
func (r *DoctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	doctor.UpdatedAt = time.Now().UTC()
	const query = `UPDATE doctors SET full_name = :full_name, license = :license, license_region = :license_region,
        specialty = :specialty, role = :role, phone = :phone, email = :email, active = :active,
        updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, doctor); err != nil {
		return fmt.Errorf("update doctor: %w", err)
	}
	return nil
}

// SetActive toggles the active flag.
func (r *DoctorRepository) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE doctors SET active = $2, updated_at = $3 WHERE id = $1", id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set doctor active: %w", err)
	}
	return nil
}
