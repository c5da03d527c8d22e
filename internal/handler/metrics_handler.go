package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/service"
	"github.com/noah-isme/sma-room-schedule/pkg/response"
)

type statusProvider interface {
	Status() dto.IndexStatus
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	status  statusProvider
}

// NewMetricsHandler constructs a metrics handler.
func NewMetricsHandler(metrics *service.MetricsService, status statusProvider) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, status: status}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Snapshot returns the JSON metrics summary.
func (h *MetricsHandler) Snapshot(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.metrics.Snapshot())
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports 200 once an index is loaded and 503 before.
func (h *MetricsHandler) Ready(c *gin.Context) {
	status := h.status.Status()
	code := http.StatusOK
	if status.State != dto.IndexStateLoaded {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status.State, "rooms": status.Rooms})
}
