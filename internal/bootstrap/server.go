package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novaiq/backend/internal/api"
	"github.com/novaiq/backend/internal/config"
	"github.com/novaiq/backend/internal/database"
	"github.com/novaiq/backend/internal/ginserver"
	"github.com/novaiq/backend/internal/logger"
	"github.com/novaiq/backend/internal/metrics"
	"github.com/novaiq/backend/internal/service"
	"github.com/novaiq/backend/internal/vectorstore"
)

const (
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 60 * time.Second
	defaultIdleTimeout  = 120 * time.Second
	healthCheckTimeout  = 2 * time.Second
)

// SetupHTTPServer creates the HTTP server with all services and handlers
// wired.
func SetupHTTPServer(
	cfg *config.Config,
	db *database.Connection,
	caps *Capabilities,
	log logger.Logger,
) *ginserver.Server {
	repo := database.NewRepository(db.DB)
	m := metrics.New()

	ingestSvc := service.NewIngestService(
		repo, caps.Fetcher, caps.Vectors, m, log,
		cfg.Ingestion.DefaultQuery, cfg.Ingestion.MaxResults,
	)
	catalogSvc := service.NewCatalogService(repo)
	askSvc := service.NewAskService(repo, caps.Vectors, caps.LLM, m, log)
	jobSvc := service.NewJobService(
		repo, caps.Vectors, caps.LLM, log,
		cfg.Ingestion.InsightBatch, cfg.Ingestion.InsightTopN,
	)

	handlers := &api.Handlers{
		Ingest:  api.NewIngestHandler(ingestSvc),
		Catalog: api.NewCatalogHandler(catalogSvc, ingestSvc),
		Ask:     api.NewAskHandler(askSvc),
		Jobs:    api.NewJobsHandler(jobSvc),
	}

	builder := ginserver.NewBuilder(cfg.Service.Name, cfg.Service.Port).
		WithLogger(log).
		WithDebug(cfg.Service.Debug).
		WithVersion(cfg.Service.Version).
		WithCORS(ginserver.CORSConfig{
			Enabled:        cfg.CORS.Enabled,
			AllowedOrigins: cfg.CORS.AllowedOrigins,
		}).
		WithTimeouts(defaultReadTimeout, defaultWriteTimeout, defaultIdleTimeout).
		WithDatabaseHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return repo.Ping(ctx)
		}).
		WithHealthCheck("search", ginserver.CapabilityChecker(
			cfg.SearchEnabled, "search API key not configured")).
		WithHealthCheck("llm", ginserver.CapabilityChecker(
			func() bool { return caps.LLM != nil }, "LLM API key not configured")).
		WithHealthCheck("vectors", vectorsChecker(caps.Vectors)).
		WithRoutes(func(router *gin.Engine) {
			api.SetupRoutes(router, handlers, cfg.Auth.JWTSecret, cfg.Auth.WebhookSecret, m.Handler())
		})

	if caps.Vectors.Enabled() {
		builder = builder.WithElasticsearchHealthCheck(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
			defer cancel()
			return caps.Vectors.Ping(ctx)
		})
	}

	return builder.Build()
}

// vectorsChecker reports the vector capability. When live it includes the
// index size; a failing count degrades the check without failing health.
func vectorsChecker(store vectorstore.Store) ginserver.HealthChecker {
	return func() ginserver.CheckResult {
		if !store.Enabled() {
			return ginserver.CheckResult{
				Status:  ginserver.HealthDegraded,
				Message: "vector store not configured",
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), healthCheckTimeout)
		defer cancel()

		count, countErr := store.Count(ctx)
		if countErr != nil {
			return ginserver.CheckResult{
				Status:  ginserver.HealthDegraded,
				Message: countErr.Error(),
			}
		}

		return ginserver.CheckResult{
			Status:  ginserver.HealthOK,
			Message: fmt.Sprintf("%d documents indexed", count),
		}
	}
}
