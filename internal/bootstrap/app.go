// Package bootstrap handles application initialization and lifecycle
// management for the NovaIQ backend.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/novaiq/backend/internal/logger"
)

// Start initializes and runs the backend service until shutdown.
func Start(ctx context.Context) error {
	cfg, configErr := LoadConfig()
	if configErr != nil {
		return fmt.Errorf("config: %w", configErr)
	}

	log, logErr := CreateLogger(cfg)
	if logErr != nil {
		return fmt.Errorf("logger: %w", logErr)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting NovaIQ Backend",
		logger.String("name", cfg.Service.Name),
		logger.String("version", cfg.Service.Version),
		logger.Int("port", cfg.Service.Port),
	)

	db, dbErr := SetupDatabase(ctx, cfg)
	if dbErr != nil {
		return fmt.Errorf("database: %w", dbErr)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("Failed to close database", logger.Error(closeErr))
		}
	}()
	log.Info("Database ready")

	caps := SetupCapabilities(ctx, cfg, log)
	log.Info("Capabilities configured",
		logger.Bool("search", cfg.SearchEnabled()),
		logger.Bool("vectors", caps.Vectors.Enabled()),
		logger.Bool("llm", caps.LLM != nil),
	)

	server := SetupHTTPServer(cfg, db, caps, log)

	if runErr := server.RunWithGracefulShutdown(ctx); runErr != nil {
		log.Error("Server error", logger.Error(runErr))
		return fmt.Errorf("server: %w", runErr)
	}

	log.Info("NovaIQ Backend stopped")
	return nil
}
