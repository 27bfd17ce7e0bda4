package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/novaiq/backend/internal/service"
)

// maxQuestionLen rejects pathological question bodies.
const maxQuestionLen = 2000

// Asker defines the question-answering operation needed by the handler.
type Asker interface {
	Ask(ctx context.Context, question string, contextLimit int) (*service.AskResult, error)
}

// AskHandler handles question-answering HTTP requests.
type AskHandler struct {
	svc Asker
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(svc Asker) *AskHandler {
	return &AskHandler{svc: svc}
}

// askRequest is the body of a question.
type askRequest struct {
	Question     string `json:"question"`
	ContextLimit int    `json:"context_limit"`
}

// Ask handles POST /api/v1/ask.
func (h *AskHandler) Ask(c *gin.Context) {
	var req askRequest
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindErr.Error()})
		return
	}

	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	if len(req.Question) > maxQuestionLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question too long"})
		return
	}

	result, askErr := h.svc.Ask(c.Request.Context(), req.Question, req.ContextLimit)
	if askErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": askErr.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}
