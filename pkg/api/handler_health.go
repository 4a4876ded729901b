package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health. Only this process's own dependency
// (the database pool) is checked; the LLM and geocoding services are
// external and excluded so their outages don't flap this process's
// readiness status.
func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := healthStatusHealthy
	httpStatus := http.StatusOK
	if err := s.db.Pool.Ping(ctx); err != nil {
		status = healthStatusUnhealthy
		httpStatus = http.StatusServiceUnavailable
		c.JSON(httpStatus, gin.H{"status": status, "database": err.Error()})
		return
	}

	c.JSON(httpStatus, gin.H{"status": status})
}
