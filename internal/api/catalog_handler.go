package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/novaiq/backend/internal/database"
	"github.com/novaiq/backend/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// CatalogReader defines the read operations needed by the handler.
type CatalogReader interface {
	ListArticles(ctx context.Context, limit, offset int) ([]domain.Article, int64, error)
	GetArticle(ctx context.Context, id int64) (*domain.Article, error)
	ListInsights(ctx context.Context, limit int) ([]domain.Insight, error)
	GetInsight(ctx context.Context, id int64) (*domain.Insight, error)
	ListHypotheses(ctx context.Context, limit int) ([]domain.Hypothesis, error)
	GetHypothesis(ctx context.Context, id int64) (*domain.Hypothesis, error)
}

// RunReader defines the run read operations needed by the handler.
type RunReader interface {
	ListRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error)
	GetRun(ctx context.Context, id int64) (*domain.IngestionRun, error)
}

// CatalogHandler handles read HTTP requests for stored articles, insights,
// hypotheses and ingestion runs.
type CatalogHandler struct {
	catalog CatalogReader
	runs    RunReader
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(catalog CatalogReader, runs RunReader) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, runs: runs}
}

// ListArticles handles GET /api/v1/articles.
func (h *CatalogHandler) ListArticles(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	articles, total, listErr := h.catalog.ListArticles(c.Request.Context(), limit, offset)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": listErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetArticle handles GET /api/v1/articles/:id.
func (h *CatalogHandler) GetArticle(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	article, getErr := h.catalog.GetArticle(c.Request.Context(), id)
	if getErr != nil {
		respondGetError(c, getErr, "article not found")
		return
	}

	c.JSON(http.StatusOK, article)
}

// ListInsights handles GET /api/v1/insights.
func (h *CatalogHandler) ListInsights(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)

	insights, listErr := h.catalog.ListInsights(c.Request.Context(), limit)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": listErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"insights": insights, "count": len(insights)})
}

// GetInsight handles GET /api/v1/insights/:id.
func (h *CatalogHandler) GetInsight(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	insight, getErr := h.catalog.GetInsight(c.Request.Context(), id)
	if getErr != nil {
		respondGetError(c, getErr, "insight not found")
		return
	}

	c.JSON(http.StatusOK, insight)
}

// ListHypotheses handles GET /api/v1/hypotheses.
func (h *CatalogHandler) ListHypotheses(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)

	hypotheses, listErr := h.catalog.ListHypotheses(c.Request.Context(), limit)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": listErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"hypotheses": hypotheses, "count": len(hypotheses)})
}

// GetHypothesis handles GET /api/v1/hypotheses/:id.
func (h *CatalogHandler) GetHypothesis(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	hypothesis, getErr := h.catalog.GetHypothesis(c.Request.Context(), id)
	if getErr != nil {
		respondGetError(c, getErr, "hypothesis not found")
		return
	}

	c.JSON(http.StatusOK, hypothesis)
}

// ListRuns handles GET /api/v1/runs.
func (h *CatalogHandler) ListRuns(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)

	runs, listErr := h.runs.ListRuns(c.Request.Context(), limit)
	if listErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": listErr.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}

// GetRun handles GET /api/v1/runs/:id.
func (h *CatalogHandler) GetRun(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	run, getErr := h.runs.GetRun(c.Request.Context(), id)
	if getErr != nil {
		respondGetError(c, getErr, "run not found")
		return
	}

	c.JSON(http.StatusOK, run)
}

// queryInt parses an integer query parameter, clamping list limits to
// [1, maxListLimit].
func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}

	value, parseErr := strconv.Atoi(raw)
	if parseErr != nil {
		return fallback
	}
	if name == "limit" {
		if value < 1 {
			return fallback
		}
		if value > maxListLimit {
			return maxListLimit
		}
	}
	return value
}

// pathID parses the :id path parameter, responding 400 on garbage.
func pathID(c *gin.Context) (int64, bool) {
	id, parseErr := strconv.ParseInt(c.Param("id"), 10, 64)
	if parseErr != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// respondGetError maps a lookup failure to 404 or 500.
func respondGetError(c *gin.Context, getErr error, notFoundMessage string) {
	if errors.Is(getErr, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMessage})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": getErr.Error()})
}
