package service

import (
	"context"
	"fmt"
	"time"

	"github.com/novaiq/backend/internal/ai"
	"github.com/novaiq/backend/internal/domain"
	"github.com/novaiq/backend/internal/logger"
	"github.com/novaiq/backend/internal/vectorstore"
)

// Job result statuses. Skipped means the required capability is not
// configured; the job is a no-op, not a failure.
const (
	JobStatusSuccess = "success"
	JobStatusSkipped = "skipped"
	JobStatusError   = "error"
)

const (
	// refreshBatchLimit bounds one vector refresh pass.
	refreshBatchLimit = 100

	// hypothesisInsightLimit bounds how many recent insights one hypothesis
	// pass covers.
	hypothesisInsightLimit = 10

	// defaultCleanupAge is how long terminal runs are kept.
	defaultCleanupAge = 30 * 24 * time.Hour
)

// LLM generates insights, hypotheses and grounded answers. Nil when the AI
// capability is disabled.
type LLM interface {
	GenerateInsight(ctx context.Context, articles []domain.Article) (*domain.Insight, error)
	GenerateHypotheses(ctx context.Context, insight *domain.Insight) ([]domain.Hypothesis, error)
	Answer(ctx context.Context, question string, passages []ai.Passage) (string, error)
}

// VectorRefreshResult reports a refresh-vectors job outcome.
type VectorRefreshResult struct {
	Status  string `json:"status"`
	Indexed int    `json:"indexed"`
	Skipped int    `json:"skipped"`
	Message string `json:"message,omitempty"`
}

// InsightJobResult reports a generate-insights job outcome.
type InsightJobResult struct {
	Status            string `json:"status"`
	InsightsGenerated int    `json:"insights_generated"`
	InsightID         int64  `json:"insight_id,omitempty"`
	ArticlesProcessed int    `json:"articles_processed"`
	Message           string `json:"message,omitempty"`
}

// HypothesisJobResult reports a generate-hypotheses job outcome.
type HypothesisJobResult struct {
	Status              string `json:"status"`
	HypothesesGenerated int    `json:"hypotheses_generated"`
	InsightsProcessed   int    `json:"insights_processed"`
	Message             string `json:"message,omitempty"`
}

// CleanupResult reports a cleanup-runs job outcome.
type CleanupResult struct {
	Status  string `json:"status"`
	Deleted int64  `json:"deleted"`
}

// JobService runs the maintenance and generation jobs. Jobs are triggered by
// API calls or external schedulers hitting the webhook; there is no in-process
// queue.
type JobService struct {
	repo        Repository
	vectors     vectorstore.Store
	llm         LLM
	log         logger.Logger
	insightTopN int
	batchLimit  int
}

// NewJobService creates the job service. llm may be nil when the AI
// capability is disabled.
func NewJobService(
	repo Repository,
	vectors vectorstore.Store,
	llm LLM,
	log logger.Logger,
	insightBatch, insightTopN int,
) *JobService {
	return &JobService{
		repo:        repo,
		vectors:     vectors,
		llm:         llm,
		log:         log,
		insightTopN: insightTopN,
		batchLimit:  insightBatch,
	}
}

// RefreshVectors indexes articles with vector_indexed = false, in one bounded
// batch. Useful for backfilling after enabling vectors or rotating API keys.
func (s *JobService) RefreshVectors(ctx context.Context) (*VectorRefreshResult, error) {
	if !s.vectors.Enabled() {
		return &VectorRefreshResult{Status: JobStatusSkipped, Message: "vectors not enabled"}, nil
	}

	articles, listErr := s.repo.ListUnindexed(ctx, refreshBatchLimit)
	if listErr != nil {
		return nil, fmt.Errorf("list unindexed articles: %w", listErr)
	}
	if len(articles) == 0 {
		return &VectorRefreshResult{Status: JobStatusSuccess, Message: "all articles already indexed"}, nil
	}

	docs := make([]vectorstore.Document, 0, len(articles))
	ids := make([]int64, 0, len(articles))
	for i := range articles {
		article := &articles[i]
		docs = append(docs, vectorstore.Document{
			ID:        article.DocumentID(),
			Text:      article.Content,
			ArticleID: article.ID,
			URL:       article.URL,
			Title:     article.Title,
			Source:    article.Source,
		})
		ids = append(ids, article.ID)
	}

	result, addErr := s.vectors.Add(ctx, docs)
	if addErr != nil {
		return nil, fmt.Errorf("index vectors: %w", addErr)
	}

	if markErr := s.repo.MarkVectorIndexed(ctx, ids); markErr != nil {
		return nil, fmt.Errorf("mark articles indexed: %w", markErr)
	}

	s.log.Info("vector refresh completed",
		logger.Int("indexed", result.Added),
		logger.Int("skipped", result.Skipped))

	return &VectorRefreshResult{
		Status:  JobStatusSuccess,
		Indexed: result.Added,
		Skipped: result.Skipped,
	}, nil
}

// GenerateInsights summarizes unsummarized articles into one insight. The
// newest batch is fetched; the top N articles feed the prompt and become the
// insight's citations, and the whole batch is marked summarized.
func (s *JobService) GenerateInsights(ctx context.Context) (*InsightJobResult, error) {
	if s.llm == nil {
		return &InsightJobResult{Status: JobStatusSkipped, Message: "LLM not available"}, nil
	}

	articles, listErr := s.repo.ListUnsummarized(ctx, s.batchLimit)
	if listErr != nil {
		return nil, fmt.Errorf("list unsummarized articles: %w", listErr)
	}
	if len(articles) == 0 {
		return &InsightJobResult{Status: JobStatusSuccess, Message: "no new articles to summarize"}, nil
	}

	top := articles
	if len(top) > s.insightTopN {
		top = top[:s.insightTopN]
	}

	insight, generateErr := s.llm.GenerateInsight(ctx, top)
	if generateErr != nil {
		return nil, fmt.Errorf("generate insight: %w", generateErr)
	}

	if createErr := s.repo.CreateInsight(ctx, insight); createErr != nil {
		return nil, fmt.Errorf("store insight: %w", createErr)
	}

	ids := make([]int64, 0, len(articles))
	for i := range articles {
		ids = append(ids, articles[i].ID)
	}
	if markErr := s.repo.MarkSummarized(ctx, ids); markErr != nil {
		return nil, fmt.Errorf("mark articles summarized: %w", markErr)
	}

	s.log.Info("insight generated",
		logger.Int64("insight_id", insight.ID),
		logger.Int("articles_processed", len(articles)))

	return &InsightJobResult{
		Status:            JobStatusSuccess,
		InsightsGenerated: 1,
		InsightID:         insight.ID,
		ArticlesProcessed: len(articles),
	}, nil
}

// GenerateHypotheses derives hypotheses for one insight, or for the most
// recent insights when insightID is zero. Insights that already have
// hypotheses are skipped, so re-running the job is idempotent.
func (s *JobService) GenerateHypotheses(ctx context.Context, insightID int64) (*HypothesisJobResult, error) {
	if s.llm == nil {
		return &HypothesisJobResult{Status: JobStatusSkipped, Message: "LLM not available"}, nil
	}

	insights, listErr := s.targetInsights(ctx, insightID)
	if listErr != nil {
		return nil, listErr
	}
	if len(insights) == 0 {
		return &HypothesisJobResult{Status: JobStatusSuccess, Message: "no insights to process"}, nil
	}

	created := 0
	for i := range insights {
		insight := &insights[i]

		exists, existsErr := s.repo.HasHypotheses(ctx, insight.ID)
		if existsErr != nil {
			return nil, fmt.Errorf("check existing hypotheses: %w", existsErr)
		}
		if exists {
			continue
		}

		hypotheses, generateErr := s.llm.GenerateHypotheses(ctx, insight)
		if generateErr != nil {
			return nil, fmt.Errorf("generate hypotheses for insight %d: %w", insight.ID, generateErr)
		}

		for j := range hypotheses {
			if createErr := s.repo.CreateHypothesis(ctx, &hypotheses[j]); createErr != nil {
				return nil, fmt.Errorf("store hypothesis: %w", createErr)
			}
			created++
		}
	}

	s.log.Info("hypothesis generation completed",
		logger.Int("hypotheses_generated", created),
		logger.Int("insights_processed", len(insights)))

	return &HypothesisJobResult{
		Status:              JobStatusSuccess,
		HypothesesGenerated: created,
		InsightsProcessed:   len(insights),
	}, nil
}

func (s *JobService) targetInsights(ctx context.Context, insightID int64) ([]domain.Insight, error) {
	if insightID > 0 {
		insight, getErr := s.repo.GetInsight(ctx, insightID)
		if getErr != nil {
			return nil, fmt.Errorf("get insight %d: %w", insightID, getErr)
		}
		return []domain.Insight{*insight}, nil
	}

	insights, listErr := s.repo.ListInsights(ctx, hypothesisInsightLimit)
	if listErr != nil {
		return nil, fmt.Errorf("list insights: %w", listErr)
	}
	return insights, nil
}

// CleanupRuns deletes terminal ingestion runs older than maxAge. A zero
// maxAge uses the default retention of 30 days.
func (s *JobService) CleanupRuns(ctx context.Context, maxAge time.Duration) (*CleanupResult, error) {
	if maxAge <= 0 {
		maxAge = defaultCleanupAge
	}

	cutoff := time.Now().UTC().Add(-maxAge)
	deleted, deleteErr := s.repo.DeleteRunsBefore(ctx, cutoff)
	if deleteErr != nil {
		return nil, fmt.Errorf("delete old runs: %w", deleteErr)
	}

	s.log.Info("run cleanup completed", logger.Int64("deleted", deleted))

	return &CleanupResult{Status: JobStatusSuccess, Deleted: deleted}, nil
}
