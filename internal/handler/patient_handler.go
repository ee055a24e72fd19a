package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/histotrack/pathlab-api/internal/filter"
	"github.com/histotrack/pathlab-api/internal/models"
	"github.com/histotrack/pathlab-api/internal/service"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
	"github.com/histotrack/pathlab-api/pkg/response"
)

// PatientHandler exposes patient reference-data endpoints.
type PatientHandler struct {
	patients *service.PatientService
	samples  *service.SampleService
}

// NewPatientHandler constructs PatientHandler.
func NewPatientHandler(patients *service.PatientService, samples *service.SampleService) *PatientHandler {
	return &PatientHandler{patients: patients, samples: samples}
}

// Search godoc
// @Summary Search patients
// @Tags Patients
// @Produce json
// @Param name query string false "Substring match on name"
// @Param nationalId query string false "Exact national id"
// @Param sex query string false "M, F or O"
// @Param bornFrom query string false "Birth date lower bound (YYYY-MM-DD)"
// @Param bornTo query string false "Birth date upper bound (YYYY-MM-DD)"
// @Param withSamples query bool false "Only patients with samples"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /patients [get]
func (h *PatientHandler) Search(c *gin.Context) {
	bornFrom, err := dateQuery(c, "bornFrom")
	if err != nil {
		response.Error(c, err)
		return
	}
	bornTo, err := dateQuery(c, "bornTo")
	if err != nil {
		response.Error(c, err)
		return
	}
	criteria := filter.PatientCriteria{
		Name:        strings.TrimSpace(c.Query("name")),
		NationalID:  c.Query("nationalId"),
		BornFrom:    bornFrom,
		BornTo:      bornTo,
		WithSamples: boolQuery(c, "withSamples"),
	}
	if raw := c.Query("sex"); raw != "" {
		sex, err := models.ParseSex(strings.ToUpper(raw))
		if err != nil {
			response.Error(c, err)
			return
		}
		criteria.Sex = &sex
	}
	page, size := pageParams(c)

	patients, pagination, err := h.patients.Search(c.Request.Context(), criteria, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patients, pagination)
}

// Get godoc
// @Summary Get a patient
// @Tags Patients
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /patients/{id} [get]
func (h *PatientHandler) Get(c *gin.Context) {
	patient, err := h.patients.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// SampleCount godoc
// @Summary Count samples of a patient
// @Tags Patients
// @Produce json
// @Param id path string true "Patient ID"
// @Success 200 {object} response.Envelope
// @Router /patients/{id}/samples/count [get]
func (h *PatientHandler) SampleCount(c *gin.Context) {
	if _, err := h.patients.Get(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	count, err := h.samples.CountByPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}

// Create godoc
// @Summary Register a patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param payload body service.CreatePatientRequest true "Patient payload"
// @Success 201 {object} response.Envelope
// @Router /patients [post]
func (h *PatientHandler) Create(c *gin.Context) {
	var req service.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	patient, err := h.patients.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, patient)
}

// Update godoc
// @Summary Update a patient
// @Tags Patients
// @Accept json
// @Produce json
// @Param id path string true "Patient ID"
// @Param payload body service.UpdatePatientRequest true "Patient payload"
// @Success 200 {object} response.Envelope
// @Router /patients/{id} [put]
func (h *PatientHandler) Update(c *gin.Context) {
	var req service.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	patient, err := h.patients.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patient, nil)
}

// Delete godoc
// @Summary Delete a patient without samples
// @Tags Patients
// @Produce json
// @Param id path string true "Patient ID"
// @Success 204
// @Router /patients/{id} [delete]
func (h *PatientHandler) Delete(c *gin.Context) {
	if err := h.patients.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
