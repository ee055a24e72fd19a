package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/middleware"
	"github.com/histotrack/pathlab-api/internal/models"
	"github.com/histotrack/pathlab-api/internal/service"
	"github.com/histotrack/pathlab-api/pkg/response"
)

type sampleRepoStub struct {
	items       map[string]*models.Sample
	tracking    map[string]string
	searchRows  []models.SampleSearchRow
	searchPages [][]models.SampleSearchRow
	searchTotal int
	created     *models.Sample
}

func (s *sampleRepoStub) FindByID(ctx context.Context, id string) (*models.Sample, error) {
	if sample, ok := s.items[id]; ok {
		cp := *sample
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (s *sampleRepoStub) FindByTrackingCode(ctx context.Context, code string) (*models.Sample, error) {
	if id, ok := s.tracking[code]; ok {
		return s.FindByID(ctx, id)
	}
	return nil, sql.ErrNoRows
}

func (s *sampleRepoStub) ExistsByTrackingCode(ctx context.Context, code string) (bool, error) {
	_, ok := s.tracking[code]
	return ok, nil
}

func (s *sampleRepoStub) Create(ctx context.Context, sample *models.Sample) error {
	sample.ID = "s-created"
	s.created = sample
	return nil
}

func (s *sampleRepoStub) Update(ctx context.Context, sample *models.Sample) error {
	cp := *sample
	s.items[sample.ID] = &cp
	return nil
}

func (s *sampleRepoStub) Delete(ctx context.Context, id string) error { return nil }

func (s *sampleRepoStub) HasReport(ctx context.Context, sampleID string) (bool, error) {
	return false, nil
}

func (s *sampleRepoStub) ReadinessCounts(ctx context.Context, sampleID string) (int, int, error) {
	return 0, 0, nil
}

func (s *sampleRepoStub) Search(ctx context.Context, criteria filter.SampleCriteria, page, size int) ([]models.SampleSearchRow, int, error) {
	if s.searchPages != nil {
		if page >= 1 && page <= len(s.searchPages) {
			return s.searchPages[page-1], s.searchTotal, nil
		}
		return nil, s.searchTotal, nil
	}
	return s.searchRows, s.searchTotal, nil
}

func (s *sampleRepoStub) CountByStatus(ctx context.Context, status models.SampleStatus) (int, error) {
	return 0, nil
}

func (s *sampleRepoStub) CountByPatient(ctx context.Context, patientID string) (int, error) {
	return 0, nil
}

func (s *sampleRepoStub) CountByDoctor(ctx context.Context, doctorID string) (int, error) {
	return 0, nil
}

func (s *sampleRepoStub) Count(ctx context.Context) (int, error) { return 0, nil }

type patientLookupStub struct{ items map[string]*models.Patient }

func (s *patientLookupStub) FindByID(ctx context.Context, id string) (*models.Patient, error) {
	if p, ok := s.items[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

type doctorLookupStub struct{ items map[string]*models.Doctor }

func (s *doctorLookupStub) FindByID(ctx context.Context, id string) (*models.Doctor, error) {
	if d, ok := s.items[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func newSampleHandlerForTest(repo *sampleRepoStub) *SampleHandler {
	patients := &patientLookupStub{items: map[string]*models.Patient{"p1": {ID: "p1"}}}
	doctors := &doctorLookupStub{items: map[string]*models.Doctor{
		"d1": {ID: "d1", Role: models.DoctorRoleRequesting, Active: true},
	}}
	svc := service.NewSampleService(repo, patients, doctors, nil, nil,
		service.NewAuditService(nil, service.AuditConfig{}, zap.NewNop()), nil, nil, zap.NewNop())
	return NewSampleHandler(svc)
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestSampleHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSampleHandlerForTest(&sampleRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/samples/missing", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "NOT_FOUND", envelope.Error.Code)
}

func TestSampleHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &sampleRepoStub{}
	handler := newSampleHandlerForTest(repo)

	payload, _ := json.Marshal(service.CreateSampleRequest{
		TrackingCode:       "PAT-2026-0001",
		PatientID:          "p1",
		RequestingDoctorID: "d1",
		TissueType:         "Tecido Mamário",
		CollectionDate:     time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/samples", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Set(middleware.ContextActorKey, models.ActorClaims{Subject: "user-1"})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.created)
	assert.Equal(t, "user-1", repo.created.CreatedBy)
	assert.Equal(t, models.SampleStatusReceived, repo.created.Status)
}

func TestSampleHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSampleHandlerForTest(&sampleRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/samples", bytes.NewBufferString(`{"tracking_code":`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSampleHandlerUpdateStatusInvalidTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &sampleRepoStub{items: map[string]*models.Sample{
		"s1": {ID: "s1", Status: models.SampleStatusCanceled},
	}}
	handler := newSampleHandlerForTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/samples/s1/status", bytes.NewBufferString(`{"status":"received"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "s1"}}

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusConflict, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "INVALID_STATE", envelope.Error.Code)
}

func TestSampleHandlerSearchRejectsUnknownStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSampleHandlerForTest(&sampleRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/samples?status=FROZEN", nil)
	c.Request = req

	handler.Search(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSampleHandlerSearchRejectsMalformedDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newSampleHandlerForTest(&sampleRepoStub{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/samples?collectedFrom=10-02-2026", nil)
	c.Request = req

	handler.Search(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
}

func TestSampleHandlerSearchReturnsPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &sampleRepoStub{
		searchRows:  []models.SampleSearchRow{{Sample: models.Sample{ID: "s1", TrackingCode: "PAT-2026-0001"}}},
		searchTotal: 1,
	}
	handler := newSampleHandlerForTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/samples?page=1&limit=10", nil)
	c.Request = req

	handler.Search(c)
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 10, envelope.Pagination.PageSize)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestSampleHandlerExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &sampleRepoStub{
		searchRows: []models.SampleSearchRow{{
			Sample: models.Sample{
				ID:             "s1",
				TrackingCode:   "PAT-2026-0001",
				Status:         models.SampleStatusMeasured,
				TissueType:     "Tecido Mamário",
				CollectionDate: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
			},
			MeasurementCount: 2,
			ImageCount:       1,
		}},
		searchTotal: 1,
	}
	handler := newSampleHandlerForTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/samples/export", nil)
	c.Request = req

	handler.ExportCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "samples.csv")
	body := w.Body.String()
	assert.Contains(t, body, "tracking_code")
	assert.Contains(t, body, "PAT-2026-0001")
	assert.Contains(t, body, "2026-02-10")
}

func TestSampleHandlerExportCSVWalksAllPages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	row := func(code string) models.SampleSearchRow {
		return models.SampleSearchRow{Sample: models.Sample{
			TrackingCode:   code,
			Status:         models.SampleStatusMeasured,
			CollectionDate: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		}}
	}
	repo := &sampleRepoStub{
		searchPages: [][]models.SampleSearchRow{
			{row("PAT-2026-0001")},
			{row("PAT-2026-0002")},
		},
		searchTotal: 2,
	}
	handler := newSampleHandlerForTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/samples/export", nil)
	c.Request = req

	handler.ExportCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "PAT-2026-0001")
	assert.Contains(t, body, "PAT-2026-0002")
}
