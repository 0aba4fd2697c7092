package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prowl/scraper"
)

// Health returns a handler for GET /api/v1/health.
func Health(registry *scraper.Registry, startTime time.Time, version string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "healthy",
			"uptime":         time.Since(startTime).Round(time.Second).String(),
			"named_sessions": registry.Count(),
			"version":        version,
		})
	}
}
