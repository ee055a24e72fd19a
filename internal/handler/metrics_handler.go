package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/histotrack/pathlab-api/internal/service"
	"github.com/histotrack/pathlab-api/pkg/response"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics  *service.MetricsService
	overview *service.OverviewService
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, overview *service.OverviewService) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, overview: overview}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for readiness/liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Snapshot godoc
// @Summary Aggregated runtime metrics
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /metrics/snapshot [get]
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}

// Workload godoc
// @Summary Pipeline workload overview
// @Tags Metrics
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /overview [get]
func (h *MetricsHandler) Workload(c *gin.Context) {
	overview, err := h.overview.Workload(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview, nil)
}
