package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

func TestSampleTransitionTo(t *testing.T) {
	cases := []struct {
		name   string
		from   SampleStatus
		to     SampleStatus
		wantOK bool
	}{
		{"forward", SampleStatusReceived, SampleStatusInProcessing, true},
		{"forward skip", SampleStatusReceived, SampleStatusAnalyzed, true},
		{"backward", SampleStatusMeasured, SampleStatusReceived, true},
		{"to canceled", SampleStatusReported, SampleStatusCanceled, true},
		{"canceled is frozen", SampleStatusCanceled, SampleStatusReceived, false},
		{"canceled stays canceled", SampleStatusCanceled, SampleStatusCanceled, false},
		{"released rejects change", SampleStatusReleased, SampleStatusMeasured, false},
		{"released noop", SampleStatusReleased, SampleStatusReleased, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Sample{Status: tc.from}
			err := s.TransitionTo(tc.to)
			if tc.wantOK {
				require.NoError(t, err)
				assert.Equal(t, tc.to, s.Status)
			} else {
				require.Error(t, err)
				assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
				assert.Equal(t, tc.from, s.Status)
			}
		})
	}
}

func TestSampleTransitionToUnknownStatus(t *testing.T) {
	s := Sample{Status: SampleStatusReceived}
	err := s.TransitionTo(SampleStatus("FROZEN"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
	assert.Equal(t, SampleStatusReceived, s.Status)
}

func TestSampleTerminal(t *testing.T) {
	assert.True(t, (&Sample{Status: SampleStatusCanceled}).Terminal())
	assert.True(t, (&Sample{Status: SampleStatusReleased}).Terminal())
	assert.False(t, (&Sample{Status: SampleStatusReported}).Terminal())
}

func TestSampleValidateDates(t *testing.T) {
	collected := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	s := Sample{CollectionDate: collected}
	require.NoError(t, s.ValidateDates())

	received := collected.AddDate(0, 0, 2)
	s.ReceiptDate = &received
	require.NoError(t, s.ValidateDates())

	early := collected.AddDate(0, 0, -1)
	s.ReceiptDate = &early
	err := s.ValidateDates()
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestSampleSearchRowReadyForAnalysis(t *testing.T) {
	assert.False(t, SampleSearchRow{}.ReadyForAnalysis())
	assert.False(t, SampleSearchRow{MeasurementCount: 2}.ReadyForAnalysis())
	assert.False(t, SampleSearchRow{ImageCount: 3}.ReadyForAnalysis())
	assert.True(t, SampleSearchRow{MeasurementCount: 1, ImageCount: 1}.ReadyForAnalysis())
}
