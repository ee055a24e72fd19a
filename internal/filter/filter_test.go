package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/histotrack/pathlab-api/internal/models"
)

func row(mut func(*models.SampleSearchRow)) models.SampleSearchRow {
	r := models.SampleSearchRow{
		Sample: models.Sample{
			ID:                 "s1",
			PatientID:          "p1",
			RequestingDoctorID: "d1",
			TissueType:         "Tecido Mamário",
			Status:             models.SampleStatusReceived,
			CollectionDate:     time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		},
	}
	if mut != nil {
		mut(&r)
	}
	return r
}

func TestEmptyCriteriaMatchesEverything(t *testing.T) {
	b := SampleCriteria{}.Build()
	assert.True(t, b.Empty())
	assert.True(t, b.Predicate()(row(nil)))

	clause, args := b.Where(1)
	assert.Empty(t, clause)
	assert.Nil(t, args)
}

func TestTissueTypeMatchesCaseInsensitively(t *testing.T) {
	pred := SampleCriteria{TissueType: "mam"}.Build().Predicate()

	assert.True(t, pred(row(nil)))
	assert.True(t, pred(row(func(r *models.SampleSearchRow) { r.TissueType = "tecido mamario tipo X" })))
	assert.False(t, pred(row(func(r *models.SampleSearchRow) { r.TissueType = "Tecido Ósseo" })))
}

func TestStatusAndIdentifierCriteria(t *testing.T) {
	status := models.SampleStatusMeasured
	pred := SampleCriteria{PatientID: "p1", DoctorID: "d1", Status: &status}.Build().Predicate()

	assert.True(t, pred(row(func(r *models.SampleSearchRow) { r.Status = models.SampleStatusMeasured })))
	assert.False(t, pred(row(nil)))
	assert.False(t, pred(row(func(r *models.SampleSearchRow) {
		r.Status = models.SampleStatusMeasured
		r.PatientID = "p2"
	})))
}

func TestCollectionDateRange(t *testing.T) {
	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
	pred := SampleCriteria{CollectedFrom: &from, CollectedTo: &to}.Build().Predicate()

	assert.True(t, pred(row(nil)))
	assert.True(t, pred(row(func(r *models.SampleSearchRow) { r.CollectionDate = from })))
	assert.True(t, pred(row(func(r *models.SampleSearchRow) { r.CollectionDate = to })))
	assert.False(t, pred(row(func(r *models.SampleSearchRow) {
		r.CollectionDate = to.AddDate(0, 0, 1)
	})))
}

func TestReadinessAndReportCriteria(t *testing.T) {
	ready := true
	noReport := true
	pred := SampleCriteria{ReadyForAnalysis: &ready, WithoutReport: &noReport}.Build().Predicate()

	assert.True(t, pred(row(func(r *models.SampleSearchRow) {
		r.MeasurementCount = 1
		r.ImageCount = 2
	})))
	assert.False(t, pred(row(func(r *models.SampleSearchRow) { r.MeasurementCount = 1 })))
	assert.False(t, pred(row(func(r *models.SampleSearchRow) {
		r.MeasurementCount = 1
		r.ImageCount = 1
		r.HasReport = true
	})))
}

func TestWhereRenumbersPlaceholders(t *testing.T) {
	status := models.SampleStatusReceived
	b := SampleCriteria{PatientID: "p1", Status: &status, TissueType: "mam"}.Build()

	clause, args := b.Where(3)
	assert.Equal(t, "s.patient_id = $3 AND s.status = $4 AND LOWER(s.tissue_type) LIKE $5", clause)
	require.Len(t, args, 3)
	assert.Equal(t, "p1", args[0])
	assert.Equal(t, "RECEIVED", args[1])
	assert.Equal(t, "%mam%", args[2])
}

func TestDoctorCriteria(t *testing.T) {
	role := models.DoctorRolePathologist
	active := true
	pred := DoctorCriteria{Name: "silva", Role: &role, Active: &active}.Build().Predicate()

	assert.True(t, pred(models.Doctor{FullName: "Dra. Ana Silva", Role: role, Active: true}))
	assert.False(t, pred(models.Doctor{FullName: "Dra. Ana Silva", Role: models.DoctorRoleRequesting, Active: true}))
	assert.False(t, pred(models.Doctor{FullName: "Dra. Ana Silva", Role: role, Active: false}))
}

func TestPatientCriteria(t *testing.T) {
	withSamples := true
	pred := PatientCriteria{Name: "maria", WithSamples: &withSamples}.Build().Predicate()

	assert.True(t, pred(PatientRow{
		Patient:     models.Patient{FullName: "Maria Souza"},
		SampleCount: 2,
	}))
	assert.False(t, pred(PatientRow{Patient: models.Patient{FullName: "Maria Souza"}}))
	assert.False(t, pred(PatientRow{
		Patient:     models.Patient{FullName: "Joana Lima"},
		SampleCount: 1,
	}))
}
