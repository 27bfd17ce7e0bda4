// Package ai wraps the OpenAI-compatible LLM used for insight and hypothesis
// generation, question answering, and embeddings.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/novaiq/backend/internal/domain"
	"github.com/novaiq/backend/internal/logger"
)

const (
	// maxParseAttempts bounds re-asks when the model returns malformed JSON.
	maxParseAttempts = 3

	// maxArticleExcerpt truncates article content in prompts.
	maxArticleExcerpt = 1500
)

// Config holds LLM client settings.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
}

// Client talks to an OpenAI-compatible API for chat and embeddings.
type Client struct {
	llm      llms.Model
	embedder embeddings.Embedder
	log      logger.Logger
}

// New creates the LLM client. One underlying connection serves both chat and
// embedding calls.
func New(cfg Config, log logger.Logger) (*Client, error) {
	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithEmbeddingModel(cfg.EmbeddingModel),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, llmErr := openai.New(opts...)
	if llmErr != nil {
		return nil, fmt.Errorf("create openai client: %w", llmErr)
	}

	embedder, embedderErr := embeddings.NewEmbedder(llm, embeddings.WithStripNewLines(true))
	if embedderErr != nil {
		return nil, fmt.Errorf("create embedder: %w", embedderErr)
	}

	return &Client{
		llm:      llm,
		embedder: embedder,
		log:      log,
	}, nil
}

// EmbedDocuments generates embedding vectors for a batch of texts.
func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, embedErr := c.embedder.EmbedDocuments(ctx, texts)
	if embedErr != nil {
		return nil, fmt.Errorf("embed documents: %w", embedErr)
	}
	return vectors, nil
}

// EmbedQuery generates an embedding vector for a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, embedErr := c.embedder.EmbedQuery(ctx, text)
	if embedErr != nil {
		return nil, fmt.Errorf("embed query: %w", embedErr)
	}
	return vector, nil
}

// insightResponse is the JSON shape the model is asked to return for
// insight generation.
type insightResponse struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Bullets    []string `json:"bullets"`
	Confidence float64  `json:"confidence"`
}

const insightSystemPrompt = `You are a research analyst. Given a set of research
articles, produce one consolidated insight. Respond with JSON only, in the
shape: {"title": string, "summary": string, "bullets": [string], "confidence": number}.
Confidence is between 0 and 1. Bullets are the key findings.`

// GenerateInsight produces one consolidated insight from the given articles.
// Citations and article ids are filled from the source articles, not from the
// model output.
func (c *Client) GenerateInsight(ctx context.Context, articles []domain.Article) (*domain.Insight, error) {
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles to summarize")
	}

	var response insightResponse
	if askErr := c.askJSON(ctx, insightSystemPrompt, formatArticles(articles), &response); askErr != nil {
		return nil, fmt.Errorf("generate insight: %w", askErr)
	}

	insight := &domain.Insight{
		Title:      response.Title,
		Summary:    response.Summary,
		Bullets:    response.Bullets,
		Confidence: clampConfidence(response.Confidence),
		Citations:  make([]string, 0, len(articles)),
		ArticleIDs: make([]int64, 0, len(articles)),
	}
	for i := range articles {
		insight.Citations = append(insight.Citations, articles[i].URL)
		insight.ArticleIDs = append(insight.ArticleIDs, articles[i].ID)
	}

	return insight, nil
}

// hypothesesResponse is the JSON shape the model is asked to return for
// hypothesis generation.
type hypothesesResponse struct {
	Hypotheses []struct {
		Hypothesis string  `json:"hypothesis"`
		Rationale  string  `json:"rationale"`
		Confidence float64 `json:"confidence"`
	} `json:"hypotheses"`
}

const hypothesesSystemPrompt = `You are a research strategist. Given a research
insight, propose testable hypotheses that follow from it. Respond with JSON
only, in the shape: {"hypotheses": [{"hypothesis": string, "rationale": string,
"confidence": number}]}. Confidence is between 0 and 1.`

// GenerateHypotheses derives testable hypotheses from an insight.
func (c *Client) GenerateHypotheses(ctx context.Context, insight *domain.Insight) ([]domain.Hypothesis, error) {
	prompt := fmt.Sprintf("Insight: %s\n\nSummary: %s\n\nKey findings:\n- %s",
		insight.Title, insight.Summary, strings.Join(insight.Bullets, "\n- "))

	var response hypothesesResponse
	if askErr := c.askJSON(ctx, hypothesesSystemPrompt, prompt, &response); askErr != nil {
		return nil, fmt.Errorf("generate hypotheses: %w", askErr)
	}

	hypotheses := make([]domain.Hypothesis, 0, len(response.Hypotheses))
	for _, h := range response.Hypotheses {
		if strings.TrimSpace(h.Hypothesis) == "" {
			continue
		}
		hypotheses = append(hypotheses, domain.Hypothesis{
			InsightID:  insight.ID,
			Hypothesis: h.Hypothesis,
			Rationale:  h.Rationale,
			Confidence: clampConfidence(h.Confidence),
		})
	}

	return hypotheses, nil
}

// Passage is one retrieved context snippet for question answering.
type Passage struct {
	Title string
	URL   string
	Text  string
}

const answerSystemPrompt = `You are a research assistant. Answer the question
using only the provided context passages. Cite passage URLs inline where
relevant. If the context does not contain the answer, say so.`

// Answer responds to a question grounded in the given passages.
func (c *Client) Answer(ctx context.Context, question string, passages []Passage) (string, error) {
	var sb strings.Builder
	for i, passage := range passages {
		fmt.Fprintf(&sb, "[%d] %s (%s)\n%s\n\n", i+1, passage.Title, passage.URL, passage.Text)
	}
	fmt.Fprintf(&sb, "Question: %s", question)

	response, generateErr := c.llm.GenerateContent(ctx,
		chatMessages(answerSystemPrompt, sb.String()),
		llms.WithTemperature(0.2),
	)
	if generateErr != nil {
		return "", fmt.Errorf("generate answer: %w", generateErr)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}

	return strings.TrimSpace(response.Choices[0].Content), nil
}

// askJSON sends one system+user exchange in JSON mode and unmarshals the
// reply, re-asking on malformed JSON.
func (c *Client) askJSON(ctx context.Context, systemPrompt, userPrompt string, out any) error {
	var lastErr error
	for attempt := 1; attempt <= maxParseAttempts; attempt++ {
		response, generateErr := c.llm.GenerateContent(ctx,
			chatMessages(systemPrompt, userPrompt),
			llms.WithTemperature(0.0),
			llms.WithJSONMode(),
		)
		if generateErr != nil {
			return fmt.Errorf("generate content: %w", generateErr)
		}
		if len(response.Choices) == 0 {
			return fmt.Errorf("model returned no choices")
		}

		raw := stripCodeFences(response.Choices[0].Content)
		if unmarshalErr := json.Unmarshal([]byte(raw), out); unmarshalErr != nil {
			lastErr = unmarshalErr
			c.log.Warn("malformed JSON from model",
				logger.Int("attempt", attempt),
				logger.Error(unmarshalErr))
			continue
		}

		return nil
	}

	return fmt.Errorf("parse model response after %d attempts: %w", maxParseAttempts, lastErr)
}

func chatMessages(systemPrompt, userPrompt string) []llms.MessageContent {
	return []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(systemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(userPrompt)},
		},
	}
}

// formatArticles renders articles for the insight prompt, truncating long
// content.
func formatArticles(articles []domain.Article) string {
	var sb strings.Builder
	for i := range articles {
		article := &articles[i]
		excerpt := article.Content
		if len(excerpt) > maxArticleExcerpt {
			excerpt = excerpt[:maxArticleExcerpt]
		}
		fmt.Fprintf(&sb, "Article %d: %s\nURL: %s\n%s\n\n", i+1, article.Title, article.URL, excerpt)
	}
	return sb.String()
}

// stripCodeFences removes markdown code fences some models wrap JSON in.
func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// clampConfidence bounds a model-reported confidence to [0, 1].
func clampConfidence(confidence float64) float64 {
	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
