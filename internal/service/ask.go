package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/novaiq/backend/internal/ai"
	"github.com/novaiq/backend/internal/logger"
	"github.com/novaiq/backend/internal/metrics"
	"github.com/novaiq/backend/internal/vectorstore"
)

const (
	// defaultContextLimit is how many passages retrieval returns by default.
	defaultContextLimit = 5

	// answerSourceLimit bounds how many sources feed the answer prompt.
	answerSourceLimit = 3

	// answerExcerptLen truncates source content in the answer prompt.
	answerExcerptLen = 500

	// fallbackKeywordLimit bounds keyword matching when vectors are off.
	fallbackKeywordLimit = 5

	noContextAnswer = "I don't have enough information to answer this question."
)

// Answer confidence levels mirror how the answer was produced.
const (
	confidenceLLM      = 0.8
	confidenceFallback = 0.5
)

// Source is one article backing an answer.
type Source struct {
	ArticleID int64   `json:"article_id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	Relevance float64 `json:"relevance"`
}

// AskResult is a question-answering response.
type AskResult struct {
	Answer      string   `json:"answer"`
	Sources     []Source `json:"sources"`
	Confidence  float64  `json:"confidence"`
	VectorsUsed bool     `json:"vectors_used"`
}

// AskService answers questions over the ingested corpus. Retrieval uses the
// vector store when available and degrades to keyword matching otherwise;
// answer generation uses the LLM when available and degrades to a source
// listing otherwise.
type AskService struct {
	repo    Repository
	vectors vectorstore.Store
	llm     LLM
	metrics *metrics.Metrics
	log     logger.Logger
}

// NewAskService creates the ask service. llm may be nil when the AI
// capability is disabled.
func NewAskService(repo Repository, vectors vectorstore.Store, llm LLM, m *metrics.Metrics, log logger.Logger) *AskService {
	return &AskService{
		repo:    repo,
		vectors: vectors,
		llm:     llm,
		metrics: m,
		log:     log,
	}
}

// Ask answers a question grounded in stored articles.
func (s *AskService) Ask(ctx context.Context, question string, contextLimit int) (*AskResult, error) {
	if contextLimit <= 0 {
		contextLimit = defaultContextLimit
	}

	var sources []Source
	var retrieveErr error
	vectorsUsed := s.vectors.Enabled()

	retrieval := "keyword"
	if vectorsUsed {
		retrieval = "vector"
	}
	s.metrics.QuestionsAsked.WithLabelValues(retrieval).Inc()

	if vectorsUsed {
		sources, retrieveErr = s.vectorSources(ctx, question, contextLimit)
	} else {
		sources, retrieveErr = s.keywordSources(ctx, question, contextLimit)
	}
	if retrieveErr != nil {
		return nil, retrieveErr
	}

	if len(sources) == 0 {
		return &AskResult{
			Answer:      noContextAnswer,
			Sources:     []Source{},
			VectorsUsed: vectorsUsed,
		}, nil
	}

	answer, confidence := s.composeAnswer(ctx, question, sources)

	return &AskResult{
		Answer:      answer,
		Sources:     sources,
		Confidence:  confidence,
		VectorsUsed: vectorsUsed,
	}, nil
}

// vectorSources retrieves sources via similarity search.
func (s *AskService) vectorSources(ctx context.Context, question string, limit int) ([]Source, error) {
	hits, searchErr := s.vectors.Search(ctx, question, limit)
	if searchErr != nil {
		return nil, fmt.Errorf("vector search: %w", searchErr)
	}

	sources := make([]Source, 0, len(hits))
	for _, hit := range hits {
		if hit.ArticleID == 0 {
			continue
		}
		sources = append(sources, Source{
			ArticleID: hit.ArticleID,
			Title:     hit.Title,
			URL:       hit.URL,
			Relevance: hit.Score,
		})
	}

	return sources, nil
}

// keywordSources is the retrieval fallback when vectors are disabled: a
// simple keyword match over recent articles.
func (s *AskService) keywordSources(ctx context.Context, question string, limit int) ([]Source, error) {
	keywords := strings.Fields(strings.ToLower(question))
	if len(keywords) > fallbackKeywordLimit {
		keywords = keywords[:fallbackKeywordLimit]
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	articles, listErr := s.repo.ListArticles(ctx, limit, 0)
	if listErr != nil {
		return nil, fmt.Errorf("list articles for keyword match: %w", listErr)
	}

	var sources []Source
	for i := range articles {
		article := &articles[i]
		haystack := strings.ToLower(article.Title + " " + article.Content)

		matches := 0
		for _, keyword := range keywords {
			if strings.Contains(haystack, keyword) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}

		sources = append(sources, Source{
			ArticleID: article.ID,
			Title:     article.Title,
			URL:       article.URL,
			Relevance: float64(matches) / float64(len(keywords)),
		})
	}

	return sources, nil
}

// composeAnswer produces the answer text. Without an LLM it degrades to a
// source count; an LLM failure degrades the same way rather than erroring.
func (s *AskService) composeAnswer(ctx context.Context, question string, sources []Source) (string, float64) {
	fallback := fmt.Sprintf("Found %d relevant articles. Enable the LLM integration for detailed answers.", len(sources))

	if s.llm == nil {
		return fallback, confidenceFallback
	}

	passages := s.buildPassages(ctx, sources)
	answer, answerErr := s.llm.Answer(ctx, question, passages)
	if answerErr != nil {
		s.log.Warn("answer generation failed, returning source summary", logger.Error(answerErr))
		return fallback, confidenceFallback
	}

	return answer, confidenceLLM
}

// buildPassages loads article content excerpts for the top sources.
func (s *AskService) buildPassages(ctx context.Context, sources []Source) []ai.Passage {
	top := sources
	if len(top) > answerSourceLimit {
		top = top[:answerSourceLimit]
	}

	passages := make([]ai.Passage, 0, len(top))
	for _, source := range top {
		article, getErr := s.repo.GetArticle(ctx, source.ArticleID)
		if getErr != nil {
			s.log.Warn("failed to load source article",
				logger.Int64("article_id", source.ArticleID),
				logger.Error(getErr))
			continue
		}

		excerpt := article.Content
		if len(excerpt) > answerExcerptLen {
			excerpt = excerpt[:answerExcerptLen]
		}

		passages = append(passages, ai.Passage{
			Title: article.Title,
			URL:   article.URL,
			Text:  excerpt,
		})
	}

	return passages
}
