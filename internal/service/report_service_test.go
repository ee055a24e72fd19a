package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/models"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
)

type mockReportRepo struct {
	items       map[string]*models.Report
	sampleIndex map[string]string
	samples     *mockSampleRepo
	deleted     []string
}

func (m *mockReportRepo) FindByID(ctx context.Context, id string) (*models.Report, error) {
	if r, ok := m.items[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportRepo) FindBySampleID(ctx context.Context, sampleID string) (*models.Report, error) {
	if id, ok := m.sampleIndex[sampleID]; ok {
		return m.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (m *mockReportRepo) List(ctx context.Context) ([]models.Report, error) {
	out := make([]models.Report, 0, len(m.items))
	for _, r := range m.items {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockReportRepo) ListByStatus(ctx context.Context, status models.ReportStatus) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.items {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReportRepo) ListByPathologist(ctx context.Context, pathologistID string) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.items {
		if r.PathologistID == pathologistID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReportRepo) ListPendingReview(ctx context.Context) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.items {
		if r.Status == models.ReportStatusDraft || r.Status == models.ReportStatusReview {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReportRepo) ListReadyForRelease(ctx context.Context) ([]models.Report, error) {
	var out []models.Report
	for _, r := range m.items {
		if r.Status == models.ReportStatusIssued {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockReportRepo) Create(ctx context.Context, report *models.Report) error {
	if m.items == nil {
		m.items = make(map[string]*models.Report)
	}
	if m.sampleIndex == nil {
		m.sampleIndex = make(map[string]string)
	}
	if report.ID == "" {
		report.ID = "generated"
	}
	cp := *report
	m.items[report.ID] = &cp
	m.sampleIndex[report.SampleID] = report.ID
	return nil
}

func (m *mockReportRepo) Update(ctx context.Context, report *models.Report) error {
	cp := *report
	m.items[report.ID] = &cp
	return nil
}

func (m *mockReportRepo) SaveWithSample(ctx context.Context, report *models.Report, sample *models.Sample) error {
	cp := *report
	m.items[report.ID] = &cp
	if m.samples != nil {
		scp := *sample
		m.samples.items[sample.ID] = &scp
	}
	return nil
}

func (m *mockReportRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	if r, ok := m.items[id]; ok {
		delete(m.sampleIndex, r.SampleID)
	}
	delete(m.items, id)
	return nil
}

func (m *mockReportRepo) CountByStatus(ctx context.Context, status models.ReportStatus) (int, error) {
	n := 0
	for _, r := range m.items {
		if r.Status == status {
			n++
		}
	}
	return n, nil
}

type reportFixture struct {
	svc          *ReportService
	repo         *mockReportRepo
	samples      *mockSampleRepo
	measurements *mockMeasurementRepo
	locks        *SampleLocks
}

func newReportFixture() reportFixture {
	samples := &mockSampleRepo{
		items: map[string]*models.Sample{
			"s1": {ID: "s1", PatientID: "p1", Status: models.SampleStatusAnalyzed, TrackingCode: "PAT-2026-0001"},
		},
		measurements: map[string]int{"s1": 1},
		images:       map[string]int{"s1": 1},
	}
	repo := &mockReportRepo{samples: samples}
	doctors := &mockDoctorLookup{items: map[string]*models.Doctor{
		"d1": {ID: "d1", FullName: "Dr. Paulo Reis", Role: models.DoctorRoleRequesting, Active: true},
		"d2": {ID: "d2", FullName: "Dra. Ana Silva", Role: models.DoctorRolePathologist, Active: true, License: "12345", LicenseRegion: "SP"},
		"d4": {ID: "d4", FullName: "Dra. Inativa", Role: models.DoctorRolePathologist, Active: false},
	}}
	patients := &mockPatientLookup{items: map[string]*models.Patient{
		"p1": {ID: "p1", FullName: "Maria Souza", Sex: models.SexFemale, BirthDate: time.Date(1980, 5, 1, 0, 0, 0, 0, time.UTC)},
	}}
	measurements := &mockMeasurementRepo{samples: samples}
	locks := NewSampleLocks()
	svc := NewReportService(repo, samples, doctors, patients, measurements,
		nil, nil, disabledAudit(), locks, validator.New(), zap.NewNop())
	return reportFixture{svc: svc, repo: repo, samples: samples, measurements: measurements, locks: locks}
}

func completeReport(id, status string) *models.Report {
	return &models.Report{
		ID:               id,
		SampleID:         "s1",
		PathologistID:    "d2",
		PrimaryDiagnosis: "Invasive carcinoma",
		Conclusion:       "Malignant",
		DiagnosisCode:    "C50.9",
		Status:           models.ReportStatus(status),
	}
}

func TestReportServiceCreate(t *testing.T) {
	f := newReportFixture()

	report, err := f.svc.Create(context.Background(), CreateReportRequest{SampleID: "s1", PathologistID: "d2"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDraft, report.Status)
	assert.Len(t, f.repo.items, 1)
}

func TestReportServiceCreateRequiresReadiness(t *testing.T) {
	f := newReportFixture()
	f.samples.images["s1"] = 0

	_, err := f.svc.Create(context.Background(), CreateReportRequest{SampleID: "s1", PathologistID: "d2"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
}

func TestReportServiceCreateOnePerSample(t *testing.T) {
	f := newReportFixture()

	_, err := f.svc.Create(context.Background(), CreateReportRequest{SampleID: "s1", PathologistID: "d2"})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), CreateReportRequest{SampleID: "s1", PathologistID: "d2"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
}

func TestReportServiceCreatePathologistChecks(t *testing.T) {
	f := newReportFixture()

	// Requesting physician cannot author reports.
	_, err := f.svc.Create(context.Background(), CreateReportRequest{SampleID: "s1", PathologistID: "d1"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))

	// Inactive pathologist.
	_, err = f.svc.Create(context.Background(), CreateReportRequest{SampleID: "s1", PathologistID: "d4"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
}

func TestReportServiceCreateRejectsCanceledSample(t *testing.T) {
	f := newReportFixture()
	f.samples.items["s1"].Status = models.SampleStatusCanceled

	_, err := f.svc.Create(context.Background(), CreateReportRequest{SampleID: "s1", PathologistID: "d2"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestReportServiceIssueCascadesSample(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.repo.Create(context.Background(), completeReport("r1", "DRAFT")))

	report, err := f.svc.Issue(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusIssued, report.Status)
	require.NotNil(t, report.IssuedAt)
	assert.Equal(t, models.SampleStatusReported, f.samples.items["s1"].Status)
}

func TestReportServiceIssueSerialisedWithMeasurementRecording(t *testing.T) {
	f := newReportFixture()
	ctx := context.Background()
	require.NoError(t, f.repo.Create(ctx, completeReport("r1", "DRAFT")))

	measurements := NewMeasurementService(f.measurements, f.samples,
		nil, nil, disabledAudit(), f.locks, validator.New(), zap.NewNop())

	// Hold the first sample load open so the recording sits mid-flight
	// inside its critical section.
	var once sync.Once
	entered := make(chan struct{})
	gate := make(chan struct{})
	f.samples.onFind = func(string) {
		once.Do(func() {
			close(entered)
			<-gate
		})
	}

	recordDone := make(chan error, 1)
	go func() {
		_, err := measurements.Record(ctx, "s1", recordRequest())
		recordDone <- err
	}()
	<-entered

	issueDone := make(chan error, 1)
	go func() {
		_, err := f.svc.Issue(ctx, "r1")
		issueDone <- err
	}()

	select {
	case <-issueDone:
		t.Fatal("report issued while a measurement recording held the sample")
	case <-time.After(50 * time.Millisecond):
	}

	close(gate)
	require.NoError(t, <-recordDone)
	require.NoError(t, <-issueDone)

	// The cascade lands after the recording, so it is not overwritten by
	// the measurement's sample write-back.
	assert.Equal(t, models.SampleStatusReported, f.samples.items["s1"].Status)
	assert.Equal(t, models.ReportStatusIssued, f.repo.items["r1"].Status)
	assert.Len(t, f.measurements.ledger["s1"], 1)
}

func TestReportServiceIssueIncomplete(t *testing.T) {
	f := newReportFixture()
	draft := completeReport("r1", "DRAFT")
	draft.Conclusion = ""
	require.NoError(t, f.repo.Create(context.Background(), draft))

	_, err := f.svc.Issue(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIncompleteReport))
	assert.Equal(t, models.ReportStatusDraft, f.repo.items["r1"].Status)
	assert.Equal(t, models.SampleStatusAnalyzed, f.samples.items["s1"].Status)
}

func TestReportServiceReleaseCascadesSample(t *testing.T) {
	f := newReportFixture()
	issued := completeReport("r1", "ISSUED")
	issuedAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	issued.IssuedAt = &issuedAt
	require.NoError(t, f.repo.Create(context.Background(), issued))
	f.samples.items["s1"].Status = models.SampleStatusReported

	report, err := f.svc.Release(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusReleased, report.Status)
	require.NotNil(t, report.ReleasedAt)
	assert.Equal(t, models.SampleStatusReleased, f.samples.items["s1"].Status)
}

func TestReportServiceReleaseRequiresIssued(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.repo.Create(context.Background(), completeReport("r1", "DRAFT")))

	_, err := f.svc.Release(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestReportServiceCancelCascadesSample(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.repo.Create(context.Background(), completeReport("r1", "REVIEW")))

	report, err := f.svc.Cancel(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusCanceled, report.Status)
	assert.Equal(t, models.SampleStatusCanceled, f.samples.items["s1"].Status)
}

func TestReportServiceCancelReleasedRejected(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.repo.Create(context.Background(), completeReport("r1", "RELEASED")))

	_, err := f.svc.Cancel(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestReportServiceSendToReview(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.repo.Create(context.Background(), completeReport("r1", "DRAFT")))

	report, err := f.svc.SendToReview(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusReview, report.Status)

	_, err = f.svc.SendToReview(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidState))
}

func TestReportServiceUpdateOnlyWhileEditable(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.repo.Create(context.Background(), completeReport("r1", "ISSUED")))

	_, err := f.svc.Update(context.Background(), "r1", UpdateReportRequest{PrimaryDiagnosis: "changed"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))

	require.NoError(t, f.repo.Create(context.Background(), completeReport("r2", "DRAFT")))
	report, err := f.svc.Update(context.Background(), "r2", UpdateReportRequest{PrimaryDiagnosis: "changed"})
	require.NoError(t, err)
	assert.Equal(t, "changed", report.PrimaryDiagnosis)
}

func TestReportServiceDelete(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.repo.Create(context.Background(), completeReport("r1", "ISSUED")))

	err := f.svc.Delete(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))

	require.NoError(t, f.repo.Create(context.Background(), completeReport("r2", "CANCELED")))
	require.NoError(t, f.svc.Delete(context.Background(), "r2"))
	assert.Equal(t, []string{"r2"}, f.repo.deleted)
}

func TestReportServiceRenderPDF(t *testing.T) {
	f := newReportFixture()
	issued := completeReport("r1", "ISSUED")
	issuedAt := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	issued.IssuedAt = &issuedAt
	require.NoError(t, f.repo.Create(context.Background(), issued))

	pdf, err := f.svc.RenderPDF(context.Background(), "r1")
	require.NoError(t, err)
	assert.NotEmpty(t, pdf)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}

func TestReportServiceRenderPDFRequiresIssued(t *testing.T) {
	f := newReportFixture()
	require.NoError(t, f.repo.Create(context.Background(), completeReport("r1", "DRAFT")))

	_, err := f.svc.RenderPDF(context.Background(), "r1")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrBusinessRule))
}
