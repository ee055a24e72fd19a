package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

type mockSampleRepo struct {
	items         map[string]*models.Sample
	trackingIndex map[string]string
	hasReport     map[string]bool
	measurements  map[string]int
	images        map[string]int
	searchRows    []models.SampleSearchRow
	searchTotal   int
	searchErr     error
	deleted       []string
	updated       int
	onFind        func(id string)
}

func (m *mockSampleRepo) FindByID(ctx context.Context, id string) (*models.Sample, error) {
	if m.onFind != nil {
		m.onFind(id)
	}
	if s, ok := m.items[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSampleRepo) FindByTrackingCode(ctx context.Context, code string) (*models.Sample, error) {
	if id, ok := m.trackingIndex[code]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockSampleRepo) ExistsByTrackingCode(ctx context.Context, code string) (bool, error) {
	_, ok := m.trackingIndex[code]
	return ok, nil
}

func (m *mockSampleRepo) Create(ctx context.Context, sample *models.Sample) error {
	if m.items == nil {
		m.items = make(map[string]*models.Sample)
	}
	if m.trackingIndex == nil {
		m.trackingIndex = make(map[string]string)
	}
	if sample.ID == "" {
		sample.ID = "generated"
	}
	now := time.Now()
	sample.CreatedAt = now
	sample.UpdatedAt = now
	cp := *sample
	m.items[sample.ID] = &cp
	m.trackingIndex[sample.TrackingCode] = sample.ID
	return nil
}

func (m *mockSampleRepo) Update(ctx context.Context, sample *models.Sample) error {
	m.updated++
	cp := *sample
	m.items[sample.ID] = &cp
	return nil
}

func (m *mockSampleRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.items, id)
	return nil
}

func (m *mockSampleRepo) HasReport(ctx context.Context, sampleID string) (bool, error) {
	return m.hasReport[sampleID], nil
}

func (m *mockSampleRepo) ReadinessCounts(ctx context.Context, sampleID string) (int, int, error) {
	return m.measurements[sampleID], m.images[sampleID], nil
}

func (m *mockSampleRepo) Search(ctx context.Context, criteria filter.SampleCriteria, page, size int) ([]models.SampleSearchRow, int, error) {
	if m.searchErr != nil {
		return nil, 0, m.searchErr
	}
	return m.searchRows, m.searchTotal, nil
}

func (m *mockSampleRepo) CountByStatus(ctx context.Context, status models.SampleStatus) (int, error) {
	n := 0
	for _, s := range m.items {
		if s.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockSampleRepo) CountByPatient(ctx context.Context, patientID string) (int, error) {
	n := 0
	for _, s := range m.items {
		if s.PatientID == patientID {
			n++
		}
	}
	return n, nil
}

func (m *mockSampleRepo) CountByDoctor(ctx context.Context, doctorID string) (int, error) {
	n := 0
	for _, s := range m.items {
		if s.RequestingDoctorID == doctorID {
			n++
		}
	}
	return n, nil
}

func (m *mockSampleRepo) Count(ctx context.Context) (int, error) {
	return len(m.items), nil
}

type mockPatientLookup struct {
	items map[string]*models.Patient
}

func (m *mockPatientLookup) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	if p, ok := m.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type mockDoctorLookup struct {
	items map[string]*models.Doctor
}

func (m *mockDoctorLookup) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	if d, ok := m.items[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func disabledAudit() *AuditService {
	return NewAuditService(nil, AuditConfig{}, zap.NewNop())
}

func newSampleServiceForTest(repo *mockSampleRepo) *SampleService {
	patients := &mockPatientLookup{items: map[string]*models.Patient{
		"p1": {ID: "p1", FullName: "Maria Souza"},
	}}
	doctors := &mockDoctorLookup{items: map[string]*models.Doctor{
		"d1": {ID: "d1", FullName: "Dr. Paulo Reis", Role: models.DoctorRoleRequesting, Active: true},
		"d2": {ID: "d2", FullName: "Dra. Ana Silva", Role: models.DoctorRolePathologist, Active: true},
		"d3": {ID: "d3", FullName: "Dr. Inativo", Role: models.DoctorRoleRequesting, Active: false},
	}}
	return NewSampleService(repo, patients, doctors, nil, nil, disabledAudit(), nil, validator.New(), zap.NewNop())
}

func validCreateSampleRequest() CreateSampleRequest {
	return CreateSampleRequest{
		TrackingCode:       "PAT-2026-0001",
		PatientID:          "p1",
		RequestingDoctorID: "d1",
		TissueType:         "Tecido Mamário",
		CollectionDate:     time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestSampleServiceCreate(t *testing.T) {
	repo := &mockSampleRepo{}
	svc := newSampleServiceForTest(repo)

	sample, err := svc.Create(context.Background(), validCreateSampleRequest())
	require.NoError(t, err)
	assert.Equal(t, models.SampleStatusReceived, sample.Status)
	assert.Len(t, repo.items, 1)
}

func TestSampleServiceCreateUnknownPatient(t *testing.T) {
	svc := newSampleServiceForTest(&mockSampleRepo{})

	req := validCreateSampleRequest()
	req.PatientID = "missing"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
}

func TestSampleServiceCreateDoctorRoleAndActivity(t *testing.T) {
	svc := newSampleServiceForTest(&mockSampleRepo{})

	req := validCreateSampleRequest()
	req.RequestingDoctorID = "d2" // pathologist
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))

	req.RequestingDoctorID = "d3" // inactive
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
}

func TestSampleServiceCreateDuplicateTrackingCode(t *testing.T) {
	repo := &mockSampleRepo{trackingIndex: map[string]string{"PAT-2026-0001": "other"}}
	svc := newSampleServiceForTest(repo)

	_, err := svc.Create(context.Background(), validCreateSampleRequest())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
}

func TestSampleServiceCreateReceiptBeforeCollection(t *testing.T) {
	svc := newSampleServiceForTest(&mockSampleRepo{})

	req := validCreateSampleRequest()
	early := req.CollectionDate.AddDate(0, 0, -1)
	req.ReceiptDate = &early
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation))
}

func TestSampleServiceUpdateStatus(t *testing.T) {
	repo := &mockSampleRepo{items: map[string]*models.Sample{
		"s1": {ID: "s1", Status: models.SampleStatusReceived},
	}}
	svc := newSampleServiceForTest(repo)

	sample, err := svc.UpdateStatus(context.Background(), "s1", models.SampleStatusInProcessing)
	require.NoError(t, err)
	assert.Equal(t, models.SampleStatusInProcessing, sample.Status)
	assert.Equal(t, 1, repo.updated)
}

func TestSampleServiceUpdateStatusCanceledFrozen(t *testing.T) {
	repo := &mockSampleRepo{items: map[string]*models.Sample{
		"s1": {ID: "s1", Status: models.SampleStatusCanceled},
	}}
	svc := newSampleServiceForTest(repo)

	_, err := svc.UpdateStatus(context.Background(), "s1", models.SampleStatusReceived)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
	assert.Zero(t, repo.updated)
}

func TestSampleServiceUpdateRejectsCanceled(t *testing.T) {
	repo := &mockSampleRepo{items: map[string]*models.Sample{
		"s1": {ID: "s1", Status: models.SampleStatusCanceled},
	}}
	svc := newSampleServiceForTest(repo)

	_, err := svc.Update(context.Background(), "s1", UpdateSampleRequest{
		TissueType:     "Tecido Ósseo",
		CollectionDate: time.Now(),
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestSampleServiceGetNotFound(t *testing.T) {
	svc := newSampleServiceForTest(&mockSampleRepo{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestSampleServiceReadiness(t *testing.T) {
	repo := &mockSampleRepo{
		items:        map[string]*models.Sample{"s1": {ID: "s1", Status: models.SampleStatusMeasured}},
		measurements: map[string]int{"s1": 2},
		images:       map[string]int{"s1": 1},
	}
	svc := newSampleServiceForTest(repo)

	readiness, err := svc.Readiness(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, readiness.Ready)
	assert.Equal(t, 2, readiness.MeasurementCount)
	assert.Equal(t, 1, readiness.ImageCount)

	repo.images["s1"] = 0
	readiness, err = svc.Readiness(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, readiness.Ready)
}

func TestSampleServiceDeleteGuardedByReport(t *testing.T) {
	repo := &mockSampleRepo{
		items:     map[string]*models.Sample{"s1": {ID: "s1", Status: models.SampleStatusReported}},
		hasReport: map[string]bool{"s1": true},
	}
	svc := newSampleServiceForTest(repo)

	err := svc.Delete(context.Background(), "s1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
	assert.Empty(t, repo.deleted)

	repo.hasReport["s1"] = false
	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.Equal(t, []string{"s1"}, repo.deleted)
}

func TestSampleServiceSearchPaginationDefaults(t *testing.T) {
	repo := &mockSampleRepo{
		searchRows:  []models.SampleSearchRow{{Sample: models.Sample{ID: "s1"}}},
		searchTotal: 41,
	}
	svc := newSampleServiceForTest(repo)

	rows, pagination, err := svc.Search(context.Background(), filter.SampleCriteria{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 41, pagination.TotalCount)
}

func TestSampleServiceCounts(t *testing.T) {
	repo := &mockSampleRepo{items: map[string]*models.Sample{
		"s1": {ID: "s1", Status: models.SampleStatusReceived, PatientID: "p1", RequestingDoctorID: "d1"},
		"s2": {ID: "s2", Status: models.SampleStatusReceived, PatientID: "p1", RequestingDoctorID: "d9"},
		"s3": {ID: "s3", Status: models.SampleStatusReleased, PatientID: "p2", RequestingDoctorID: "d1"},
	}}
	svc := newSampleServiceForTest(repo)

	counts, err := svc.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts.Total)
	assert.Equal(t, 2, counts.ByStatus[models.SampleStatusReceived])
	assert.Equal(t, 1, counts.ByStatus[models.SampleStatusReleased])
	assert.Zero(t, counts.ByStatus[models.SampleStatusCanceled])

	byPatient, err := svc.CountByPatient(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, byPatient)

	byDoctor, err := svc.CountByDoctor(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, byDoctor)
}
