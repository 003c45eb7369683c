package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"resumeanalyzer/internal/port"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	audit port.AuditRepository
}

// NewHealthHandler creates a new HealthHandler. With a nil audit repository
// readiness does not depend on a database.
func NewHealthHandler(audit port.AuditRepository) *HealthHandler {
	return &HealthHandler{audit: audit}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.audit != nil {
		if err := h.audit.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not reachable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
