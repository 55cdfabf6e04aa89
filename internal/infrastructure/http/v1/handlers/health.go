package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check probes one dependency.
type Check func(ctx context.Context) error

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	checks map[string]Check
}

// NewHealthHandler creates a health handler over named checks.
func NewHealthHandler(checks map[string]Check) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// Live handles the liveness probe.
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready runs every check.
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = "unhealthy: " + err.Error()
			continue
		}
		results[name] = "healthy"
	}

	body := gin.H{"status": "ok", "checks": results}
	if status != http.StatusOK {
		body["status"] = "error"
	}
	c.JSON(status, body)
}
