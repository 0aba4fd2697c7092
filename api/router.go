package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/prowl/api/handler"
	"github.com/use-agent/prowl/api/middleware"
	"github.com/use-agent/prowl/config"
	"github.com/use-agent/prowl/scraper"
	"github.com/use-agent/prowl/server"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(svc *server.Service, registry *scraper.Registry, cfg *config.Config, startTime time.Time, version string) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(registry, startTime, version))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/scrape/simple", handler.ScrapeSimple(svc))
	protected.POST("/scrape/stealth", handler.ScrapeStealth(svc))
	protected.POST("/scrape/session", handler.ScrapeSession(svc))
	protected.POST("/scrape/batch", handler.ScrapeBatch(svc))
	protected.POST("/extract", handler.Extract(svc))

	return r
}
