package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novaiq/backend/internal/auth"
)

// Handlers bundles the API surface for route registration.
type Handlers struct {
	Ingest  *IngestHandler
	Catalog *CatalogHandler
	Ask     *AskHandler
	Jobs    *JobsHandler
}

// SetupRoutes configures all API routes.
// Write paths (ingest trigger, jobs) are public: they are called
// service-to-service inside the network. Read paths and /ask are protected
// with JWT when a secret is configured. The webhook requires its own shared
// secret and rejects everything when none is set.
func SetupRoutes(router *gin.Engine, h *Handlers, jwtSecret, webhookSecret string, metricsHandler http.Handler) {
	v1 := router.Group("/api/v1")

	protected := v1.Group("")
	if jwtSecret != "" {
		protected.Use(auth.JWTMiddleware(jwtSecret))
	}

	// Ingestion (write path)
	v1.POST("/ingest/run", h.Ingest.RunIngestion)

	// Maintenance jobs (write path)
	jobs := v1.Group("/jobs")
	jobs.POST("/refresh-vectors", h.Jobs.RefreshVectors)
	jobs.POST("/generate-insights", h.Jobs.GenerateInsights)
	jobs.POST("/generate-hypotheses", h.Jobs.GenerateHypotheses)
	jobs.POST("/cleanup-runs", h.Jobs.CleanupRuns)

	// Catalog (read path)
	protected.GET("/articles", h.Catalog.ListArticles)
	protected.GET("/articles/:id", h.Catalog.GetArticle)
	protected.GET("/insights", h.Catalog.ListInsights)
	protected.GET("/insights/:id", h.Catalog.GetInsight)
	protected.GET("/hypotheses", h.Catalog.ListHypotheses)
	protected.GET("/hypotheses/:id", h.Catalog.GetHypothesis)
	protected.GET("/runs", h.Catalog.ListRuns)
	protected.GET("/runs/:id", h.Catalog.GetRun)

	// Question answering
	protected.POST("/ask", h.Ask.Ask)

	// Scheduler webhook
	router.POST("/webhook/ingest", auth.WebhookMiddleware(webhookSecret), h.Ingest.WebhookIngest)

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
