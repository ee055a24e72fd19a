package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/histotrack/pathlab-api/internal/service"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
	"github.com/histotrack/pathlab-api/pkg/response"
)

// MeasurementHandler exposes the measurement ledger endpoints.
type MeasurementHandler struct {
	measurements *service.MeasurementService
}

// NewMeasurementHandler constructs MeasurementHandler.
func NewMeasurementHandler(measurements *service.MeasurementService) *MeasurementHandler {
	return &MeasurementHandler{measurements: measurements}
}

// List godoc
// @Summary List measurement versions of a sample
// @Tags Measurements
// @Produce json
// @Param id path string true "Sample ID"
// @Success 200 {object} response.Envelope
// @Router /samples/{id}/measurements [get]
func (h *MeasurementHandler) List(c *gin.Context) {
	views, err := h.measurements.ListBySample(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Active godoc
// @Summary Get the active measurement of a sample
// @Tags Measurements
// @Produce json
// @Param id path string true "Sample ID"
// @Success 200 {object} response.Envelope
// @Router /samples/{id}/measurements/active [get]
func (h *MeasurementHandler) Active(c *gin.Context) {
	view, err := h.measurements.Active(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Record godoc
// @Summary Record a new measurement version
// @Tags Measurements
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param payload body service.RecordMeasurementRequest true "Measurement payload"
// @Success 201 {object} response.Envelope
// @Router /samples/{id}/measurements [post]
func (h *MeasurementHandler) Record(c *gin.Context) {
	var req service.RecordMeasurementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	view, err := h.measurements.Record(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, view)
}

// ActivateVersion godoc
// @Summary Activate a historical measurement version
// @Tags Measurements
// @Produce json
// @Param id path string true "Sample ID"
// @Param version path int true "Version"
// @Success 200 {object} response.Envelope
// @Router /samples/{id}/measurements/{version}/activate [post]
func (h *MeasurementHandler) ActivateVersion(c *gin.Context) {
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil || version < 1 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "version must be a positive integer"))
		return
	}
	view, err := h.measurements.ActivateVersion(c.Request.Context(), c.Param("id"), version)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Delete godoc
// @Summary Delete a measurement (always rejected)
// @Tags Measurements
// @Produce json
// @Param id path string true "Sample ID"
// @Param measurementId path string true "Measurement ID"
// @Success 422 {object} response.Envelope
// @Router /samples/{id}/measurements/{measurementId} [delete]
func (h *MeasurementHandler) Delete(c *gin.Context) {
	if err := h.measurements.Delete(c.Request.Context(), c.Param("id"), c.Param("measurementId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
