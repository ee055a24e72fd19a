package models

import (
	"fmt"
	"time"

	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

// SampleStatus is the processing state of a sample.
type SampleStatus string

const (
	SampleStatusReceived     SampleStatus = "RECEIVED"
	SampleStatusInProcessing SampleStatus = "IN_PROCESSING"
	SampleStatusMeasured     SampleStatus = "MEASURED"
	SampleStatusAnalyzed     SampleStatus = "ANALYZED"
	SampleStatusReported     SampleStatus = "REPORTED"
	SampleStatusReleased     SampleStatus = "RELEASED"
	SampleStatusCanceled     SampleStatus = "CANCELED"
)

// ParseSampleStatus validates a raw status string.
func ParseSampleStatus(raw string) (SampleStatus, error) {
	switch SampleStatus(raw) {
	case SampleStatusReceived, SampleStatusInProcessing, SampleStatusMeasured,
		SampleStatusAnalyzed, SampleStatusReported, SampleStatusReleased, SampleStatusCanceled:
		return SampleStatus(raw), nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown sample status %q", raw))
}

// Sample is a physical pathology specimen tracked from collection to release.
type Sample struct {
	ID                 string       `db:"id" json:"id"`
	TrackingCode       string       `db:"tracking_code" json:"tracking_code"`
	PatientID          string       `db:"patient_id" json:"patient_id"`
	RequestingDoctorID string       `db:"requesting_doctor_id" json:"requesting_doctor_id"`
	TissueType         string       `db:"tissue_type" json:"tissue_type"`
	AnatomicalSite     string       `db:"anatomical_site" json:"anatomical_site"`
	CollectionDate     time.Time    `db:"collection_date" json:"collection_date"`
	ReceiptDate        *time.Time   `db:"receipt_date" json:"receipt_date,omitempty"`
	Status             SampleStatus `db:"status" json:"status"`
	Notes              string       `db:"notes" json:"notes"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
	CreatedBy          string       `db:"created_by" json:"created_by"`
}

// TransitionTo applies a status change. Canceled samples are frozen, and a
// released sample only accepts RELEASED again (a no-op). Every other move is
// allowed, including backward ones.
func (s *Sample) TransitionTo(target SampleStatus) error {
	if _, err := ParseSampleStatus(string(target)); err != nil {
		return err
	}
	if s.Status == SampleStatusCanceled {
		return appErrors.Clone(appErrors.ErrInvalidState, "cannot change status of a canceled sample")
	}
	if s.Status == SampleStatusReleased && target != SampleStatusReleased {
		return appErrors.Clone(appErrors.ErrInvalidState, "cannot change status of a released sample")
	}
	s.Status = target
	return nil
}

// Terminal reports whether no further status change is possible.
func (s *Sample) Terminal() bool {
	return s.Status == SampleStatusCanceled || s.Status == SampleStatusReleased
}

// ValidateDates enforces receipt date not preceding collection date.
func (s *Sample) ValidateDates() error {
	if s.ReceiptDate != nil && s.ReceiptDate.Before(s.CollectionDate) {
		return appErrors.Clone(appErrors.ErrValidation, "receipt_date cannot precede collection_date")
	}
	return nil
}

// SampleSearchRow is a sample with the aggregate context needed by the
// search filters and readiness checks.
type SampleSearchRow struct {
	Sample
	MeasurementCount int  `db:"measurement_count" json:"measurement_count"`
	ImageCount       int  `db:"image_count" json:"image_count"`
	HasReport        bool `db:"has_report" json:"has_report"`
}

// ReadyForAnalysis is derived: at least one measurement and one image.
func (r SampleSearchRow) ReadyForAnalysis() bool {
	return r.MeasurementCount > 0 && r.ImageCount > 0
}
