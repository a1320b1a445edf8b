package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/authcore/internal/monitoring"
	"github.com/charlesng35/authcore/pkg/response"
)

// HealthHandler exposes liveness and readiness probes.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

// NewHealthHandler constructs a HealthHandler. A nil manager reports healthy with no checks.
func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	if manager == nil {
		manager = monitoring.NewHealthManager()
	}
	return &HealthHandler{manager: manager}
}

// GET /health/live
func (h *HealthHandler) Liveness(c *gin.Context) {
	h.respond(c, h.manager.Liveness)
}

// GET /health and /health/ready
func (h *HealthHandler) Readiness(c *gin.Context) {
	h.respond(c, h.manager.Readiness)
}

func (h *HealthHandler) respond(c *gin.Context, evaluate func(context.Context) monitoring.HealthReport) {
	report := evaluate(requestContext(c))
	if report.Healthy {
		response.Success(c, http.StatusOK, report)
		return
	}

	c.JSON(http.StatusServiceUnavailable, response.Response{
		Success: false,
		Data:    report,
		Error:   &response.ErrorInfo{Code: "UNAVAILABLE", Message: "dependency unavailable"},
	})
}
