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

// DoctorHandler exposes doctor reference-data endpoints.
type DoctorHandler struct {
	doctors *service.DoctorService
	samples *service.SampleService
}

// NewDoctorHandler constructs DoctorHandler.
func NewDoctorHandler(doctors *service.DoctorService, samples *service.SampleService) *DoctorHandler {
	return &DoctorHandler{doctors: doctors, samples: samples}
}

// Search godoc
// @Summary Search doctors
// @Tags Doctors
// @Produce json
// @Param name query string false "Substring match on name"
// @Param license query string false "Exact license"
// @Param region query string false "License region"
// @Param specialty query string false "Substring match on specialty"
// @Param role query string false "REQUESTING or PATHOLOGIST"
// @Param active query bool false "Filter by active state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /doctors [get]
func (h *DoctorHandler) Search(c *gin.Context) {
	criteria := filter.DoctorCriteria{
		Name:          strings.TrimSpace(c.Query("name")),
		License:       c.Query("license"),
		LicenseRegion: c.Query("region"),
		Specialty:     strings.TrimSpace(c.Query("specialty")),
		Active:        boolQuery(c, "active"),
	}
	if raw := c.Query("role"); raw != "" {
		role, err := models.ParseDoctorRole(strings.ToUpper(raw))
		if err != nil {
			response.Error(c, err)
			return
		}
		criteria.Role = &role
	}
	page, size := pageParams(c)

	doctors, pagination, err := h.doctors.Search(c.Request.Context(), criteria, page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctors, pagination)
}

// Get godoc
// @Summary Get a doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [get]
func (h *DoctorHandler) Get(c *gin.Context) {
	doctor, err := h.doctors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// SampleCount godoc
// @Summary Count samples requested by a doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id}/samples/count [get]
func (h *DoctorHandler) SampleCount(c *gin.Context) {
	if _, err := h.doctors.Get(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	count, err := h.samples.CountByDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"count": count}, nil)
}

// Create godoc
// @Summary Register a doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param payload body service.CreateDoctorRequest true "Doctor payload"
// @Success 201 {object} response.Envelope
// @Router /doctors [post]
func (h *DoctorHandler) Create(c *gin.Context) {
	var req service.CreateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.doctors.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doctor)
}

// Update godoc
// @Summary Update a doctor
// @Tags Doctors
// @Accept json
// @Produce json
// @Param id path string true "Doctor ID"
// @Param payload body service.UpdateDoctorRequest true "Doctor payload"
// @Success 200 {object} response.Envelope
// @Router /doctors/{id} [put]
func (h *DoctorHandler) Update(c *gin.Context) {
	var req service.UpdateDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	doctor, err := h.doctors.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doctor, nil)
}

// Activate godoc
// @Summary Activate a doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 204
// @Router /doctors/{id}/activate [post]
func (h *DoctorHandler) Activate(c *gin.Context) {
	if err := h.doctors.SetActive(c.Request.Context(), c.Param("id"), true); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Deactivate godoc
// @Summary Deactivate a doctor
// @Tags Doctors
// @Produce json
// @Param id path string true "Doctor ID"
// @Success 204
// @Router /doctors/{id}/deactivate [post]
func (h *DoctorHandler) Deactivate(c *gin.Context) {
	if err := h.doctors.SetActive(c.Request.Context(), c.Param("id"), false); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
