package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/novaiq/backend/internal/service"
)

// hoursPerDay converts the max_age_days query parameter to a duration.
const hoursPerDay = 24

// JobRunner defines the maintenance jobs needed by the handler.
type JobRunner interface {
	RefreshVectors(ctx context.Context) (*service.VectorRefreshResult, error)
	GenerateInsights(ctx context.Context) (*service.InsightJobResult, error)
	GenerateHypotheses(ctx context.Context, insightID int64) (*service.HypothesisJobResult, error)
	CleanupRuns(ctx context.Context, maxAge time.Duration) (*service.CleanupResult, error)
}

// JobsHandler handles maintenance job HTTP requests.
type JobsHandler struct {
	svc JobRunner
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(svc JobRunner) *JobsHandler {
	return &JobsHandler{svc: svc}
}

// RefreshVectors handles POST /api/v1/jobs/refresh-vectors. A skipped result
// means the vector store is not configured, reported as 503 so schedulers can
// tell it apart from success.
func (h *JobsHandler) RefreshVectors(c *gin.Context) {
	result, jobErr := h.svc.RefreshVectors(c.Request.Context())
	if jobErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": jobErr.Error()})
		return
	}

	if result.Status == service.JobStatusSkipped {
		c.JSON(http.StatusServiceUnavailable, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GenerateInsights handles POST /api/v1/jobs/generate-insights. A skipped
// result (no LLM configured) is still 200: the job ran, it just had nothing
// to do.
func (h *JobsHandler) GenerateInsights(c *gin.Context) {
	result, jobErr := h.svc.GenerateInsights(c.Request.Context())
	if jobErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": jobErr.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GenerateHypotheses handles POST /api/v1/jobs/generate-hypotheses. An
// optional insight_id query parameter targets one insight.
func (h *JobsHandler) GenerateHypotheses(c *gin.Context) {
	var insightID int64
	if raw := c.Query("insight_id"); raw != "" {
		parsed, parseErr := strconv.ParseInt(raw, 10, 64)
		if parseErr != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid insight_id"})
			return
		}
		insightID = parsed
	}

	result, jobErr := h.svc.GenerateHypotheses(c.Request.Context(), insightID)
	if jobErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": jobErr.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CleanupRuns handles POST /api/v1/jobs/cleanup-runs. An optional
// max_age_days query parameter overrides the default retention.
func (h *JobsHandler) CleanupRuns(c *gin.Context) {
	var maxAge time.Duration
	if raw := c.Query("max_age_days"); raw != "" {
		days, parseErr := strconv.Atoi(raw)
		if parseErr != nil || days < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid max_age_days"})
			return
		}
		maxAge = time.Duration(days) * hoursPerDay * time.Hour
	}

	result, jobErr := h.svc.CleanupRuns(c.Request.Context(), maxAge)
	if jobErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": jobErr.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
