// Package api provides HTTP handlers for the research ingestion service.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/novaiq/backend/internal/domain"
)

// maxResultsCap bounds how many articles one run may request.
const maxResultsCap = 100

// defaultRunResults is used when a run request omits max_results.
const defaultRunResults = 20

// IngestRunner defines the ingestion operations needed by the handler.
type IngestRunner interface {
	Run(ctx context.Context, query string, maxResults int) (*domain.IngestionRun, error)
}

// IngestHandler handles ingestion run HTTP requests.
type IngestHandler struct {
	svc IngestRunner
}

// NewIngestHandler creates a new ingest handler.
func NewIngestHandler(svc IngestRunner) *IngestHandler {
	return &IngestHandler{svc: svc}
}

// runRequest is the body of an ingestion trigger.
type runRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
}

// runResponse wraps a finished run with a human-readable message.
type runResponse struct {
	Message string               `json:"message"`
	Run     *domain.IngestionRun `json:"run"`
}

// RunIngestion handles POST /api/v1/ingest/run.
func (h *IngestHandler) RunIngestion(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength > 0 {
		if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
			return
		}
	}

	if req.MaxResults <= 0 {
		req.MaxResults = defaultRunResults
	}
	if req.MaxResults > maxResultsCap {
		req.MaxResults = maxResultsCap
	}

	run, runErr := h.svc.Run(c.Request.Context(), req.Query, req.MaxResults)
	if runErr != nil {
		body := gin.H{"error": runErr.Error()}
		if run != nil {
			body["run"] = run
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	c.JSON(http.StatusOK, runResponse{
		Message: fmt.Sprintf("Ingested %d new articles", run.ArticlesNew),
		Run:     run,
	})
}

// WebhookIngest handles POST /webhook/ingest, the entry point for external
// schedulers. The run result is returned as-is.
func (h *IngestHandler) WebhookIngest(c *gin.Context) {
	run, runErr := h.svc.Run(c.Request.Context(), "", defaultRunResults)
	if runErr != nil {
		body := gin.H{"error": runErr.Error()}
		if run != nil {
			body["run"] = run
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	c.JSON(http.StatusOK, run)
}
