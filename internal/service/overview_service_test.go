package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/models"
)

func TestOverviewServiceWorkload(t *testing.T) {
	samples := &mockSampleRepo{items: map[string]*models.Sample{
		"s1": {ID: "s1", Status: models.SampleStatusReceived},
		"s2": {ID: "s2", Status: models.SampleStatusMeasured},
		"s3": {ID: "s3", Status: models.SampleStatusMeasured},
	}}
	reports := &mockReportRepo{items: map[string]*models.Report{
		"r1": {ID: "r1", Status: models.ReportStatusDraft},
		"r2": {ID: "r2", Status: models.ReportStatusReview},
		"r3": {ID: "r3", Status: models.ReportStatusIssued},
		"r4": {ID: "r4", Status: models.ReportStatusReleased},
	}}
	svc := NewOverviewService(samples, reports, zap.NewNop())

	overview, err := svc.Workload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, overview.TotalSamples)
	assert.Equal(t, 2, overview.PendingReview)
	assert.Equal(t, 1, overview.ReadyForRelease)
	assert.False(t, overview.GeneratedAt.IsZero())

	byStatus := make(map[models.SampleStatus]int)
	for _, row := range overview.SamplesByStatus {
		byStatus[row.Status] = row.Count
	}
	assert.Equal(t, 1, byStatus[models.SampleStatusReceived])
	assert.Equal(t, 2, byStatus[models.SampleStatusMeasured])
	assert.Zero(t, byStatus[models.SampleStatusCanceled])
}

func TestSampleLocksSerialisePerSample(t *testing.T) {
	locks := NewSampleLocks()

	unlock := locks.Lock("s1")
	acquired := make(chan struct{})
	go func() {
		u := locks.Lock("s1")
		close(acquired)
		u()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first still held")
	default:
	}

	// A different sample does not contend.
	other := locks.Lock("s2")
	other()

	unlock()
	<-acquired
}
