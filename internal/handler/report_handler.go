package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/histotrack/pathlab-api/internal/models"
	"github.com/histotrack/pathlab-api/internal/service"
	appErrors "github.com/histotrack/pathlab-api/pkg/errors"
	"github.com/histotrack/pathlab-api/pkg/response"
)

// ReportHandler exposes report lifecycle endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// List godoc
// @Summary List reports
// @Tags Reports
// @Produce json
// @Param status query string false "Filter by status"
// @Param pathologistId query string false "Filter by pathologist"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) List(c *gin.Context) {
	var status *models.ReportStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseReportStatus(strings.ToUpper(raw))
		if err != nil {
			response.Error(c, err)
			return
		}
		status = &parsed
	}
	reports, err := h.reports.List(c.Request.Context(), status, c.Query("pathologistId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// PendingReview godoc
// @Summary List reports awaiting sign-off
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/pending-review [get]
func (h *ReportHandler) PendingReview(c *gin.Context) {
	reports, err := h.reports.PendingReview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// ReadyForRelease godoc
// @Summary List issued reports not yet released
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/ready-for-release [get]
func (h *ReportHandler) ReadyForRelease(c *gin.Context) {
	reports, err := h.reports.ReadyForRelease(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Counts godoc
// @Summary Report totals per status
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/counts [get]
func (h *ReportHandler) Counts(c *gin.Context) {
	counts, err := h.reports.CountByStatus(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, counts, nil)
}

// Get godoc
// @Summary Get a report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) Get(c *gin.Context) {
	report, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// GetBySample godoc
// @Summary Get the report of a sample
// @Tags Reports
// @Produce json
// @Param id path string true "Sample ID"
// @Success 200 {object} response.Envelope
// @Router /samples/{id}/report [get]
func (h *ReportHandler) GetBySample(c *gin.Context) {
	report, err := h.reports.GetBySample(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Create godoc
// @Summary Open a draft report for a sample
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body service.CreateReportRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Router /reports [post]
func (h *ReportHandler) Create(c *gin.Context) {
	var req service.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.reports.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// Update godoc
// @Summary Edit report content
// @Tags Reports
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body service.UpdateReportRequest true "Report payload"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [put]
func (h *ReportHandler) Update(c *gin.Context) {
	var req service.UpdateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.reports.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// SendToReview godoc
// @Summary Send a draft report to review
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/review [post]
func (h *ReportHandler) SendToReview(c *gin.Context) {
	report, err := h.reports.SendToReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Issue godoc
// @Summary Issue a report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/issue [post]
func (h *ReportHandler) Issue(c *gin.Context) {
	report, err := h.reports.Issue(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Release godoc
// @Summary Release an issued report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/release [post]
func (h *ReportHandler) Release(c *gin.Context) {
	report, err := h.reports.Release(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Cancel godoc
// @Summary Cancel a report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id}/cancel [post]
func (h *ReportHandler) Cancel(c *gin.Context) {
	report, err := h.reports.Cancel(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Delete godoc
// @Summary Delete a draft or canceled report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 204
// @Router /reports/{id} [delete]
func (h *ReportHandler) Delete(c *gin.Context) {
	if err := h.reports.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// PDF godoc
// @Summary Download an issued or released report as PDF
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Report ID"
// @Success 200 {string} string
// @Router /reports/{id}/pdf [get]
func (h *ReportHandler) PDF(c *gin.Context) {
	payload, err := h.reports.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="report-%s.pdf"`, c.Param("id")))
	c.Data(http.StatusOK, "application/pdf", payload)
}
