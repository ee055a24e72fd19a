package models

import (
	"fmt"
	"strings"
	"time"

	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

// ReportStatus is the lifecycle state of a diagnostic report.
type ReportStatus string

const (
	ReportStatusDraft    ReportStatus = "DRAFT"
	ReportStatusReview   ReportStatus = "REVIEW"
	ReportStatusIssued   ReportStatus = "ISSUED"
	ReportStatusReleased ReportStatus = "RELEASED"
	ReportStatusCanceled ReportStatus = "CANCELED"
)

// ParseReportStatus validates a raw status string.
func ParseReportStatus(raw string) (ReportStatus, error) {
	switch ReportStatus(raw) {
	case ReportStatusDraft, ReportStatusReview, ReportStatusIssued,
		ReportStatusReleased, ReportStatusCanceled:
		return ReportStatus(raw), nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report status %q", raw))
}

// Report is the diagnostic document written for a sample by a pathologist.
// A sample carries at most one report.
type Report struct {
	ID                 string       `db:"id" json:"id"`
	SampleID           string       `db:"sample_id" json:"sample_id"`
	PathologistID      string       `db:"pathologist_id" json:"pathologist_id"`
	PrimaryDiagnosis   string       `db:"primary_diagnosis" json:"primary_diagnosis"`
	SecondaryDiagnoses string       `db:"secondary_diagnoses" json:"secondary_diagnoses"`
	Conclusion         string       `db:"conclusion" json:"conclusion"`
	Recommendations    string       `db:"recommendations" json:"recommendations"`
	Status             ReportStatus `db:"status" json:"status"`
	DiagnosisCode      string       `db:"diagnosis_code" json:"diagnosis_code"`
	IssuedAt           *time.Time   `db:"issued_at" json:"issued_at,omitempty"`
	ReleasedAt         *time.Time   `db:"released_at" json:"released_at,omitempty"`
	CreatedAt          time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time    `db:"updated_at" json:"updated_at"`
	CreatedBy          string       `db:"created_by" json:"created_by"`
}

// Issue moves a draft or reviewed report to ISSUED, stamps the issue date,
// and returns the status the owning sample must be pushed to. Completeness
// is the caller's concern.
func (r *Report) Issue(now time.Time) (SampleStatus, error) {
	if r.Status != ReportStatusDraft && r.Status != ReportStatusReview {
		return "", appErrors.Clone(appErrors.ErrInvalidState, "only draft or in-review reports can be issued")
	}
	issued := dateOf(now)
	r.Status = ReportStatusIssued
	r.IssuedAt = &issued
	return SampleStatusReported, nil
}

// Release moves an issued report to RELEASED, stamps the release date, and
// returns the sample cascade target.
func (r *Report) Release(now time.Time) (SampleStatus, error) {
	if r.Status != ReportStatusIssued {
		return "", appErrors.Clone(appErrors.ErrInvalidState, "only issued reports can be released")
	}
	released := dateOf(now)
	if r.IssuedAt != nil && released.Before(*r.IssuedAt) {
		released = *r.IssuedAt
	}
	r.Status = ReportStatusReleased
	r.ReleasedAt = &released
	return SampleStatusReleased, nil
}

// Cancel voids the report unless it has already been released, and returns
// the sample cascade target.
func (r *Report) Cancel() (SampleStatus, error) {
	if r.Status == ReportStatusReleased {
		return "", appErrors.Clone(appErrors.ErrInvalidState, "released reports cannot be canceled")
	}
	r.Status = ReportStatusCanceled
	return SampleStatusCanceled, nil
}

// SendToReview moves a draft report into review.
func (r *Report) SendToReview() error {
	if r.Status != ReportStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidState, "only draft reports can be sent to review")
	}
	r.Status = ReportStatusReview
	return nil
}

// IsComplete reports whether all mandatory content is present.
func (r Report) IsComplete() bool {
	return strings.TrimSpace(r.PrimaryDiagnosis) != "" &&
		strings.TrimSpace(r.Conclusion) != "" &&
		strings.TrimSpace(r.DiagnosisCode) != ""
}

// IsEditable reports whether field edits are still allowed.
func (r Report) IsEditable() bool {
	return r.Status == ReportStatusDraft || r.Status == ReportStatusReview
}

// Deletable reports whether the report may be removed.
func (r Report) Deletable() bool {
	return r.Status == ReportStatusDraft || r.Status == ReportStatusCanceled
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
