package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

func TestReportIssue(t *testing.T) {
	now := time.Date(2026, 4, 15, 17, 30, 0, 0, time.FixedZone("BRT", -3*3600))

	for _, from := range []ReportStatus{ReportStatusDraft, ReportStatusReview} {
		r := Report{Status: from}
		cascade, err := r.Issue(now)
		require.NoError(t, err)
		assert.Equal(t, ReportStatusIssued, r.Status)
		assert.Equal(t, SampleStatusReported, cascade)
		require.NotNil(t, r.IssuedAt)
		assert.Equal(t, time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC), *r.IssuedAt)
	}

	for _, from := range []ReportStatus{ReportStatusIssued, ReportStatusReleased, ReportStatusCanceled} {
		r := Report{Status: from}
		_, err := r.Issue(now)
		require.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
	}
}

func TestReportRelease(t *testing.T) {
	issued := time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)
	r := Report{Status: ReportStatusIssued, IssuedAt: &issued}

	cascade, err := r.Release(time.Date(2026, 4, 17, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, ReportStatusReleased, r.Status)
	assert.Equal(t, SampleStatusReleased, cascade)
	require.NotNil(t, r.ReleasedAt)
	assert.Equal(t, time.Date(2026, 4, 17, 0, 0, 0, 0, time.UTC), *r.ReleasedAt)
}

func TestReportReleaseClampsDateToIssue(t *testing.T) {
	issued := time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)
	r := Report{Status: ReportStatusIssued, IssuedAt: &issued}

	// Clock skew: release attempted "before" the issue date.
	_, err := r.Release(time.Date(2026, 4, 19, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, r.ReleasedAt)
	assert.Equal(t, issued, *r.ReleasedAt)
}

func TestReportReleaseRequiresIssued(t *testing.T) {
	for _, from := range []ReportStatus{ReportStatusDraft, ReportStatusReview, ReportStatusReleased, ReportStatusCanceled} {
		r := Report{Status: from}
		_, err := r.Release(time.Now())
		require.Error(t, err)
		assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
	}
}

func TestReportCancel(t *testing.T) {
	for _, from := range []ReportStatus{ReportStatusDraft, ReportStatusReview, ReportStatusIssued, ReportStatusCanceled} {
		r := Report{Status: from}
		cascade, err := r.Cancel()
		require.NoError(t, err)
		assert.Equal(t, ReportStatusCanceled, r.Status)
		assert.Equal(t, SampleStatusCanceled, cascade)
	}

	r := Report{Status: ReportStatusReleased}
	_, err := r.Cancel()
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestReportSendToReview(t *testing.T) {
	r := Report{Status: ReportStatusDraft}
	require.NoError(t, r.SendToReview())
	assert.Equal(t, ReportStatusReview, r.Status)

	require.Error(t, r.SendToReview())
}

func TestReportIsComplete(t *testing.T) {
	r := Report{PrimaryDiagnosis: "Invasive carcinoma", Conclusion: "Malignant", DiagnosisCode: "C50.9"}
	assert.True(t, r.IsComplete())

	assert.False(t, Report{Conclusion: "x", DiagnosisCode: "y"}.IsComplete())
	assert.False(t, Report{PrimaryDiagnosis: "x", DiagnosisCode: "y"}.IsComplete())
	assert.False(t, Report{PrimaryDiagnosis: "x", Conclusion: "y"}.IsComplete())
	assert.False(t, Report{PrimaryDiagnosis: "   ", Conclusion: "y", DiagnosisCode: "z"}.IsComplete())
}

func TestReportEditableAndDeletable(t *testing.T) {
	assert.True(t, Report{Status: ReportStatusDraft}.IsEditable())
	assert.True(t, Report{Status: ReportStatusReview}.IsEditable())
	assert.False(t, Report{Status: ReportStatusIssued}.IsEditable())

	assert.True(t, Report{Status: ReportStatusDraft}.Deletable())
	assert.True(t, Report{Status: ReportStatusCanceled}.Deletable())
	assert.False(t, Report{Status: ReportStatusReview}.Deletable())
	assert.False(t, Report{Status: ReportStatusIssued}.Deletable())
	assert.False(t, Report{Status: ReportStatusReleased}.Deletable())
}
