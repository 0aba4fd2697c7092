package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prowl/models"
	"github.com/use-agent/prowl/server"
)

// bindError writes a 400 with the binding failure message.
func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error": models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: err.Error(),
		},
	})
}

// ScrapeSimple returns a handler for POST /api/v1/scrape/simple.
//
// Scrape failures are reported inside the record's error field with a
// 200 status; only malformed request bodies produce a 400. This keeps
// the HTTP surface aligned with the tool surface.
func ScrapeSimple(svc *server.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SimpleScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		req.Defaults()

		record := svc.ScrapeSimple(c.Request.Context(), req.URL, req.Selector, req.Extract, req.Timeout)
		c.JSON(http.StatusOK, record)
	}
}

// ScrapeStealth returns a handler for POST /api/v1/scrape/stealth.
func ScrapeStealth(svc *server.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.StealthScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		req.Defaults()

		record := svc.ScrapeStealth(c.Request.Context(), req.URL, server.StealthParams{
			Level:          req.StealthLevel,
			SolveChallenge: req.SolveChallenge,
			NetworkIdle:    *req.NetworkIdle,
			WaitForDOM:     *req.WaitForDOM,
			TimeoutMS:      req.Timeout,
			Proxy:          req.Proxy,
		})
		c.JSON(http.StatusOK, record)
	}
}

// ScrapeSession returns a handler for POST /api/v1/scrape/session.
func ScrapeSession(svc *server.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SessionScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		req.Defaults()

		record := svc.ScrapeSession(c.Request.Context(), req.URL, req.SessionID, req.Cookies, req.StealthLevel)
		c.JSON(http.StatusOK, record)
	}
}

// ScrapeBatch returns a handler for POST /api/v1/scrape/batch.
func ScrapeBatch(svc *server.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchScrapeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
		req.Defaults()

		result := svc.ScrapeBatch(c.Request.Context(), req.URLs, req.StealthLevel, *req.Delay)
		c.JSON(http.StatusOK, result)
	}
}
