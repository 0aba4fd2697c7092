package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prowl/models"
	"github.com/use-agent/prowl/server"
)

// Extract returns a handler for POST /api/v1/extract.
func Extract(svc *server.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		req.Defaults()

		record := svc.ExtractStructured(c.Request.Context(), req.URL, req.Selectors, req.StealthLevel)
		c.JSON(http.StatusOK, record)
	}
}
