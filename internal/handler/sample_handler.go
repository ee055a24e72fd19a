package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/models"
	"github.com/histotrack/pathlab-api/internal/service"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
	"github.com/histotrack/pathlab-api/pkg/export"
	"github.com/histotrack/pathlab-api/pkg/response"
)

// SampleHandler exposes sample lifecycle endpoints.
type SampleHandler struct {
	samples *service.SampleService
	csv     *export.CSVExporter
}

// NewSampleHandler constructs SampleHandler.
func NewSampleHandler(samples *service.SampleService) *SampleHandler {
	return &SampleHandler{samples: samples, csv: export.NewCSVExporter()}
}

// Search godoc
// @Summary Search samples
// @Tags Samples
// @Produce json
// @Param patientId query string false "Filter by patient"
// @Param doctorId query string false "Filter by requesting doctor"
// @Param status query string false "Filter by status"
// @Param tissueType query string false "Substring match on tissue type"
// @Param collectedFrom query string false "Collection date lower bound (YYYY-MM-DD)"
// @Param collectedTo query string false "Collection date upper bound (YYYY-MM-DD)"
// @Param ready query bool false "Only samples ready for analysis"
// @Param withoutReport query bool false "Only samples without a report"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /samples [get]
func (h *SampleHandler) Search(c *gin.Context) {
	criteria, err := h.criteria(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, size := pageParams(c)

	rows, pagination, err := h.samples.Search(c.Request.Context(), criteria, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, pagination)
}

// ExportCSV godoc
// @Summary Export matching samples as CSV
// @Tags Samples
// @Produce text/csv
// @Success 200 {string} string
// @Router /samples/export [get]
func (h *SampleHandler) ExportCSV(c *gin.Context) {
	criteria, err := h.criteria(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The export walks every matching page; it is not capped like the
	// paginated search endpoint.
	const exportPageSize = 100
	var rows []models.SampleSearchRow
	for page := 1; ; page++ {
		batch, pagination, err := h.samples.Search(c.Request.Context(), criteria, page, exportPageSize)
		if err != nil {
			response.Error(c, err)
			return
		}
		rows = append(rows, batch...)
		if len(batch) == 0 || len(rows) >= pagination.TotalCount {
			break
		}
	}

	dataset := export.Dataset{
		Headers: []string{"tracking_code", "status", "tissue_type", "anatomical_site", "collection_date", "measurements", "images", "has_report"},
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"tracking_code":   row.TrackingCode,
			"status":          string(row.Status),
			"tissue_type":     row.TissueType,
			"anatomical_site": row.AnatomicalSite,
			"collection_date": row.CollectionDate.Format("2006-01-02"),
			"measurements":    intString(row.MeasurementCount),
			"images":          intString(row.ImageCount),
			"has_report":      boolString(row.HasReport),
		})
	}
	payload, err := h.csv.Render(dataset)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="samples.csv"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

// Get godoc
// @Summary Get a sample
// @Tags Samples
// @Produce json
// @Param id path string true "Sample ID"
// @Success 200 {object} response.Envelope
// @Router /samples/{id} [get]
func (h *SampleHandler) Get(c *gin.Context) {
	sample, err := h.samples.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sample, nil)
}

// GetByTrackingCode godoc
// @Summary Get a sample by tracking code
// @Tags Samples
// @Produce json
// @Param code path string true "Tracking code"
// @Success 200 {object} response.Envelope
// @Router /samples/tracking/{code} [get]
func (h *SampleHandler) GetByTrackingCode(c *gin.Context) {
	sample, err := h.samples.GetByTrackingCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sample, nil)
}

// Readiness godoc
// @Summary Check analysis readiness of a sample
// @Tags Samples
// @Produce json
// @Param id path string true "Sample ID"
// @Success 200 {object} response.Envelope
// @Router /samples/{id}/readiness [get]
func (h *SampleHandler) Readiness(c *gin.Context) {
	readiness, err := h.samples.Readiness(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, readiness, nil)
}

// Create godoc
// @Summary Register a sample
// @Tags Samples
// @Accept json
// @Produce json
// @Param payload body service.CreateSampleRequest true "Sample payload"
// @Success 201 {object} response.Envelope
// @Router /samples [post]
func (h *SampleHandler) Create(c *gin.Context) {
	var req service.CreateSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if actor := actorFromContext(c); actor != nil {
		req.CreatedBy = actor.Subject
	}
	sample, err := h.samples.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, sample)
}

// Update godoc
// @Summary Edit sample fields
// @Tags Samples
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param payload body service.UpdateSampleRequest true "Sample payload"
// @Success 200 {object} response.Envelope
// @Router /samples/{id} [put]
func (h *SampleHandler) Update(c *gin.Context) {
	var req service.UpdateSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	sample, err := h.samples.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sample, nil)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus godoc
// @Summary Change sample status
// @Tags Samples
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param payload body updateStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /samples/{id}/status [patch]
func (h *SampleHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	status, err := models.ParseSampleStatus(strings.ToUpper(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}
	sample, err := h.samples.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sample, nil)
}

// Delete godoc
// @Summary Delete a sample
// @Tags Samples
// @Produce json
// @Param id path string true "Sample ID"
// @Success 204
// @Router /samples/{id} [delete]
func (h *SampleHandler) Delete(c *gin.Context) {
	if err := h.samples.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Counts godoc
// @Summary Sample totals per status
// @Tags Samples
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /samples/counts [get]
func (h *SampleHandler) Counts(c *gin.Context) {
	counts, err := h.samples.Counts(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

func (h *SampleHandler) criteria(c *gin.Context) (filter.SampleCriteria, error) {
	collectedFrom, err := dateQuery(c, "collectedFrom")
	if err != nil {
		return filter.SampleCriteria{}, err
	}
	collectedTo, err := dateQuery(c, "collectedTo")
	if err != nil {
		return filter.SampleCriteria{}, err
	}
	criteria := filter.SampleCriteria{
		PatientID:        c.Query("patientId"),
		DoctorID:         c.Query("doctorId"),
		TissueType:       strings.TrimSpace(c.Query("tissueType")),
		CollectedFrom:    collectedFrom,
		CollectedTo:      collectedTo,
		ReadyForAnalysis: boolQuery(c, "ready"),
		WithoutReport:    boolQuery(c, "withoutReport"),
	}
	if raw := c.Query("status"); raw != "" {
		status, err := models.ParseSampleStatus(strings.ToUpper(raw))
		if err != nil {
			return filter.SampleCriteria{}, err
		}
		criteria.Status = &status
	}
	return criteria, nil
}

func intString(v int) string {
	return strconv.Itoa(v)
}

func boolString(v bool) string {
	return strconv.FormatBool(v)
}
