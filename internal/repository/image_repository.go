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

const imageColumns = `id, sample_id, file_name, file_path, access_url, file_type, size_bytes, description,
        captured_at, active, created_at, created_by`

// ImageRepository manages persistence for sample images. The lifecycle
// engine consumes only counts and the active-subset queries.
type ImageRepository struct {
	db *sqlx.DB
}

// NewImageRepository constructs an ImageRepository.
func NewImageRepository(db *sqlx.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// FindByID fetches an image by id.
func (r *ImageRepository) FindByID(ctx context.Context, id string) (*models.SampleImage, error) {
	query := fmt.Sprintf("SELECT %s FROM sample_images WHERE id = $1", imageColumns)
	var image models.SampleImage
	if err := r.db.GetContext(ctx, &image, query, id); err != nil {
		return nil, err
	}
	return &image, nil
}

// ListBySample returns every image of a sample, newest capture first.
func (r *ImageRepository) ListBySample(ctx context.Context, sampleID string) ([]models.SampleImage, error) {
	query := fmt.Sprintf("SELECT %s FROM sample_images WHERE sample_id = $1 ORDER BY captured_at DESC", imageColumns)
	var images []models.SampleImage
	if err := r.db.SelectContext(ctx, &images, query, sampleID); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}

// ListActiveBySample returns only the active images of a sample.
func (r *ImageRepository) ListActiveBySample(ctx context.Context, sampleID string) ([]models.SampleImage, error) {
	query := fmt.Sprintf("SELECT %s FROM sample_images WHERE sample_id = $1 AND active = TRUE ORDER BY captured_at DESC", imageColumns)
	var images []models.SampleImage
	if err := r.db.SelectContext(ctx, &images, query, sampleID); err != nil {
		return nil, fmt.Errorf("list active images: %w", err)
	}
	return images, nil
}

// CountBySample returns the image count used by readiness checks.
func (r *ImageRepository) CountBySample(ctx context.Context, sampleID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM sample_images WHERE sample_id = $1", sampleID); err != nil {
		return 0, fmt.Errorf("count images: %w", err)
	}
	return count, nil
}

// HasActive reports whether at least one active image exists.
func (r *ImageRepository) HasActive(ctx context.Context, sampleID string) (bool, error) {
	var exists int
	if err := r.db.GetContext(ctx, &exists, "SELECT 1 FROM sample_images WHERE sample_id = $1 AND active = TRUE LIMIT 1", sampleID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active images: %w", err)
	}
	return true, nil
}

// Create inserts a new image record.
func (r *ImageRepository) Create(ctx context.Context, image *models.SampleImage) error {
	if image.ID == "" {
		image.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if image.CreatedAt.IsZero() {
		image.CreatedAt = now
	}
	if image.CapturedAt.IsZero() {
		image.CapturedAt = now
	}
	const query = `INSERT INTO sample_images (id, sample_id, file_name, file_path, access_url, file_type,
        size_bytes, description, captured_at, active, created_at, created_by)
        VALUES (:id, :sample_id, :file_name, :file_path, :access_url, :file_type,
        :size_bytes, :description, :captured_at, :active, :created_at, :created_by)`
	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	return nil
}

// Update persists mutable image fields.
func (r *ImageRepository) Update(ctx context.Context, image *models.SampleImage) error {
	const query = `UPDATE sample_images SET file_name = :file_name, file_path = :file_path, access_url = :access_url,
        file_type = :file_type, size_bytes = :size_bytes, description = :description, captured_at = :captured_at,
        active = :active WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, image); err != nil {
		return fmt.Errorf("update image: %w", err)
	}
	return nil
}

// SetActive toggles the active flag.
func (r *ImageRepository) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := r.db.ExecContext(ctx, "UPDATE sample_images SET active = $2 WHERE id = $1", id, active); err != nil {
		return fmt.Errorf("set image active: %w", err)
	}
	return nil
}

// Delete removes an image record.
func (r *ImageRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sample_images WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
