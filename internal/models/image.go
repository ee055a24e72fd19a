package models

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

// ImageFileType enumerates the accepted image formats.
type ImageFileType string

const (
	ImageFileTypeJPG  ImageFileType = "jpg"
	ImageFileTypeJPEG ImageFileType = "jpeg"
	ImageFileTypePNG  ImageFileType = "png"
	ImageFileTypeTIFF ImageFileType = "tiff"
	ImageFileTypeBMP  ImageFileType = "bmp"
	ImageFileTypeGIF  ImageFileType = "gif"
)

// ParseImageFileType validates a raw extension, case-insensitively.
func ParseImageFileType(raw string) (ImageFileType, error) {
	switch ImageFileType(strings.ToLower(raw)) {
	case ImageFileTypeJPG, ImageFileTypeJPEG, ImageFileTypePNG,
		ImageFileTypeTIFF, ImageFileTypeBMP, ImageFileTypeGIF:
		return ImageFileType(strings.ToLower(raw)), nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported image file type %q", raw))
}

// SampleImage is a captured image attached to a sample. The lifecycle engine
// consumes only counts and the active subset for readiness checks.
type SampleImage struct {
	ID          string        `db:"id" json:"id"`
	SampleID    string        `db:"sample_id" json:"sample_id"`
	FileName    string        `db:"file_name" json:"file_name"`
	FilePath    string        `db:"file_path" json:"file_path"`
	AccessURL   string        `db:"access_url" json:"access_url"`
	FileType    ImageFileType `db:"file_type" json:"file_type"`
	SizeBytes   int64         `db:"size_bytes" json:"size_bytes"`
	Description string        `db:"description" json:"description"`
	CapturedAt  time.Time     `db:"captured_at" json:"captured_at"`
	Active      bool          `db:"active" json:"active"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	CreatedBy   string        `db:"created_by" json:"created_by"`
}
