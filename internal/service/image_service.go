package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

type imageRepository interface {
	FindByID(ctx context.Context, id string) (*models.SampleImage, error)
	ListBySample(ctx context.Context, sampleID string) ([]models.SampleImage, error)
	ListActiveBySample(ctx context.Context, sampleID string) ([]models.SampleImage, error)
	Create(ctx context.Context, image *models.SampleImage) error
	Update(ctx context.Context, image *models.SampleImage) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// AddImageRequest holds payload for attaching an image to a sample.
type AddImageRequest struct {
	FileName    string     `json:"file_name" validate:"required"`
	FilePath    string     `json:"file_path" validate:"required"`
	AccessURL   string     `json:"access_url"`
	FileType    string     `json:"file_type" validate:"required"`
	SizeBytes   int64      `json:"size_bytes" validate:"gte=0"`
	Description string     `json:"description"`
	CapturedAt  *time.Time `json:"captured_at"`
}

// UpdateImageRequest holds payload for editing image metadata.
type UpdateImageRequest struct {
	FileName    string `json:"file_name" validate:"required"`
	AccessURL   string `json:"access_url"`
	Description string `json:"description"`
}

// ImageService handles sample image use-cases. Image storage itself is
// external; this service tracks the catalogue consumed by readiness checks.
type ImageService struct {
	repo      imageRepository
	samples   measurementSampleRepository
	audit     *AuditService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewImageService constructs the image service.
func NewImageService(repo imageRepository, samples measurementSampleRepository,
	audit *AuditService, validate *validator.Validate, logger *zap.Logger) *ImageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageService{repo: repo, samples: samples, audit: audit, validator: validate, logger: logger}
}

// Add attaches an image to a sample.
func (s *ImageService) Add(ctx context.Context, sampleID string, req AddImageRequest) (*models.SampleImage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid image payload")
	}
	fileType, err := models.ParseImageFileType(req.FileType)
	if err != nil {
		return nil, err
	}

	sample, err := s.samples.FindByID(ctx, sampleID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "sample not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sample")
	}
	if sample.Status == models.SampleStatusCanceled {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "cannot attach images to a canceled sample")
	}

	image := &models.SampleImage{
		SampleID:    sampleID,
		FileName:    req.FileName,
		FilePath:    req.FilePath,
		AccessURL:   req.AccessURL,
		FileType:    fileType,
		SizeBytes:   req.SizeBytes,
		Description: req.Description,
		Active:      true,
		CreatedBy:   actorFrom(ctx),
	}
	if req.CapturedAt != nil {
		image.CapturedAt = *req.CapturedAt
	}
	if err := s.repo.Create(ctx, image); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create image")
	}

	s.audit.Record("sample_images", image.ID, "CREATE", actorFrom(ctx), image)
	return image, nil
}

// Get returns an image by id.
func (s *ImageService) Get(ctx context.Context, id string) (*models.SampleImage, error) {
	image, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "image not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load image")
	}
	return image, nil
}

// ListBySample returns images of a sample, optionally only active ones.
func (s *ImageService) ListBySample(ctx context.Context, sampleID string, activeOnly bool) ([]models.SampleImage, error) {
	var (
		images []models.SampleImage
		err    error
	)
	if activeOnly {
		images, err = s.repo.ListActiveBySample(ctx, sampleID)
	} else {
		images, err = s.repo.ListBySample(ctx, sampleID)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list images")
	}
	return images, nil
}

// Update edits image metadata.
func (s *ImageService) Update(ctx context.Context, id string, req UpdateImageRequest) (*models.SampleImage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid image payload")
	}
	image, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	image.FileName = req.FileName
	image.AccessURL = req.AccessURL
	image.Description = req.Description
	if err := s.repo.Update(ctx, image); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update image")
	}
	s.audit.Record("sample_images", image.ID, "UPDATE", actorFrom(ctx), image)
	return image, nil
}

// SetActive toggles an image's active flag.
func (s *ImageService) SetActive(ctx context.Context, id string, active bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change image activation")
	}
	action := "DEACTIVATE"
	if active {
		action = "ACTIVATE"
	}
	s.audit.Record("sample_images", id, action, actorFrom(ctx), nil)
	return nil
}

// Delete removes an image record.
func (s *ImageService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete image")
	}
	s.audit.Record("sample_images", id, "DELETE", actorFrom(ctx), nil)
	return nil
}
