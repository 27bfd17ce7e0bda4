package bootstrap

import (
	"context"

	"github.com/novaiq/backend/internal/ai"
	"github.com/novaiq/backend/internal/config"
	"github.com/novaiq/backend/internal/logger"
	"github.com/novaiq/backend/internal/service"
	"github.com/novaiq/backend/internal/vectorstore"
	"github.com/novaiq/backend/internal/websearch"
)

// Capabilities holds the optional external integrations. Each degrades
// independently: a missing API key or unreachable backend disables one
// capability without taking the service down.
type Capabilities struct {
	Fetcher *websearch.Fetcher
	Vectors vectorstore.Store
	LLM     service.LLM
}

// SetupCapabilities wires the search, vector and LLM capabilities from
// config. Setup failures are logged and leave the capability disabled.
func SetupCapabilities(ctx context.Context, cfg *config.Config, log logger.Logger) *Capabilities {
	caps := &Capabilities{
		Fetcher: websearch.New(websearch.Config{
			APIKey:           cfg.Search.APIKey,
			BaseURL:          cfg.Search.BaseURL,
			Timeout:          cfg.Search.Timeout,
			MinContentLength: cfg.Ingestion.MinContentLength,
		}, log),
		Vectors: vectorstore.NewDisabled(),
	}

	var embedder vectorstore.Embedder
	if cfg.AIEnabled() {
		client, aiErr := ai.New(ai.Config{
			APIKey:         cfg.AI.APIKey,
			BaseURL:        cfg.AI.BaseURL,
			Model:          cfg.AI.Model,
			EmbeddingModel: cfg.AI.EmbeddingModel,
		}, log)
		if aiErr != nil {
			log.Warn("LLM setup failed, insight generation disabled", logger.Error(aiErr))
		} else {
			caps.LLM = client
			embedder = client
		}
	}

	if cfg.VectorsEnabled() && embedder != nil {
		store, storeErr := vectorstore.NewElastic(ctx, vectorstore.Config{
			URL:        cfg.Vectors.URL,
			Username:   cfg.Vectors.Username,
			Password:   cfg.Vectors.Password,
			Index:      cfg.Vectors.Index,
			Dimensions: cfg.Vectors.Dimensions,
			BatchSize:  cfg.Vectors.BatchSize,
			MaxRetries: cfg.Vectors.MaxRetries,
			Timeout:    cfg.Vectors.Timeout,
		}, embedder, log)
		if storeErr != nil {
			log.Warn("vector store setup failed, running without vectors", logger.Error(storeErr))
		} else {
			caps.Vectors = store
		}
	}

	return caps
}
