// Package service implements the application logic: the ingestion pipeline,
// background jobs, and retrieval-augmented question answering.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/novaiq/backend/internal/domain"
	"github.com/novaiq/backend/internal/logger"
	"github.com/novaiq/backend/internal/metrics"
	"github.com/novaiq/backend/internal/vectorstore"
	"github.com/novaiq/backend/internal/websearch"
)

// Repository is the data access interface shared by the services.
type Repository interface {
	Ping(ctx context.Context) error

	FindExistingHashes(ctx context.Context, urlHashes, contentHashes []string) (*domain.ExistingHashes, error)
	InsertArticles(ctx context.Context, candidates []domain.CanonicalArticle) ([]domain.Article, error)
	MarkVectorIndexed(ctx context.Context, ids []int64) error
	MarkSummarized(ctx context.Context, ids []int64) error
	ListUnindexed(ctx context.Context, limit int) ([]domain.Article, error)
	ListUnsummarized(ctx context.Context, limit int) ([]domain.Article, error)
	ListArticles(ctx context.Context, limit, offset int) ([]domain.Article, error)
	CountArticles(ctx context.Context) (int64, error)
	GetArticle(ctx context.Context, id int64) (*domain.Article, error)

	CreateRun(ctx context.Context, run *domain.IngestionRun) error
	UpdateRun(ctx context.Context, run *domain.IngestionRun) error
	GetRun(ctx context.Context, id int64) (*domain.IngestionRun, error)
	ListRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error)
	DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	CreateInsight(ctx context.Context, insight *domain.Insight) error
	ListInsights(ctx context.Context, limit int) ([]domain.Insight, error)
	GetInsight(ctx context.Context, id int64) (*domain.Insight, error)

	CreateHypothesis(ctx context.Context, hypothesis *domain.Hypothesis) error
	GetHypothesis(ctx context.Context, id int64) (*domain.Hypothesis, error)
	HasHypotheses(ctx context.Context, insightID int64) (bool, error)
	ListHypotheses(ctx context.Context, limit int) ([]domain.Hypothesis, error)
}

// Fetcher retrieves articles from the external search API. The tagged result
// lets the pipeline distinguish a disabled capability and a degraded fetch
// from a genuinely empty result set.
type Fetcher interface {
	Fetch(ctx context.Context, query string, maxResults int) *websearch.FetchResult
}

// IngestService runs the ingestion pipeline: fetch, dedup, persist, index.
type IngestService struct {
	repo       Repository
	fetcher    Fetcher
	vectors    vectorstore.Store
	metrics    *metrics.Metrics
	log        logger.Logger
	defQuery   string
	defResults int
}

// NewIngestService creates the ingestion service.
func NewIngestService(
	repo Repository,
	fetcher Fetcher,
	vectors vectorstore.Store,
	m *metrics.Metrics,
	log logger.Logger,
	defaultQuery string,
	defaultMaxResults int,
) *IngestService {
	return &IngestService{
		repo:       repo,
		fetcher:    fetcher,
		vectors:    vectors,
		metrics:    m,
		log:        log,
		defQuery:   defaultQuery,
		defResults: defaultMaxResults,
	}
}

// Run executes one ingestion run. The run row is created in the running state
// and committed after every step, so an interrupted run is visible with its
// partial counters. Terminal runs always satisfy
// ArticlesFound == ArticlesNew + ArticlesSkipped.
//
// Running twice with the same query is idempotent: already-stored articles
// are skipped by hash, and vector documents are keyed deterministically.
func (s *IngestService) Run(ctx context.Context, query string, maxResults int) (*domain.IngestionRun, error) {
	if query == "" {
		query = s.defQuery
	}
	if maxResults <= 0 {
		maxResults = s.defResults
	}

	run := &domain.IngestionRun{
		Query:     query,
		Status:    domain.RunRunning,
		StartedAt: time.Now().UTC(),
	}
	if createErr := s.repo.CreateRun(ctx, run); createErr != nil {
		return nil, fmt.Errorf("create ingestion run: %w", createErr)
	}

	s.log.Info("ingestion run started",
		logger.Int64("run_id", run.ID),
		logger.String("query", query),
		logger.Int("max_results", maxResults))

	if runErr := s.execute(ctx, run, maxResults); runErr != nil {
		s.failRun(ctx, run, runErr)
		s.observeRun(run)
		return run, runErr
	}
	s.observeRun(run)

	s.log.Info("ingestion run completed",
		logger.Int64("run_id", run.ID),
		logger.Int("articles_found", run.ArticlesFound),
		logger.Int("articles_new", run.ArticlesNew),
		logger.Int("articles_skipped", run.ArticlesSkipped),
		logger.Int("vectors_added", run.VectorsAdded))

	return run, nil
}

func (s *IngestService) execute(ctx context.Context, run *domain.IngestionRun, maxResults int) error {
	fetched := s.fetch(ctx, run.Query, maxResults)
	run.ArticlesFound = len(fetched)
	if updateErr := s.repo.UpdateRun(ctx, run); updateErr != nil {
		return fmt.Errorf("record fetch step: %w", updateErr)
	}

	fresh, dedupErr := s.deduplicate(ctx, fetched)
	if dedupErr != nil {
		return dedupErr
	}
	run.ArticlesNew = len(fresh)
	run.ArticlesSkipped = run.ArticlesFound - run.ArticlesNew
	if updateErr := s.repo.UpdateRun(ctx, run); updateErr != nil {
		return fmt.Errorf("record dedup step: %w", updateErr)
	}

	inserted, insertErr := s.repo.InsertArticles(ctx, fresh)
	if insertErr != nil {
		return fmt.Errorf("persist articles: %w", insertErr)
	}

	if len(inserted) > 0 {
		run.VectorsAdded, run.VectorsSkipped = s.indexVectors(ctx, inserted)
	}

	now := time.Now().UTC()
	run.Status = domain.RunCompleted
	run.CompletedAt = &now
	if updateErr := s.repo.UpdateRun(ctx, run); updateErr != nil {
		return fmt.Errorf("complete ingestion run: %w", updateErr)
	}

	return nil
}

// fetch retrieves candidates from the search API. A disabled or degraded
// search capability degrades to zero candidates instead of failing the run.
func (s *IngestService) fetch(ctx context.Context, query string, maxResults int) []domain.CanonicalArticle {
	result := s.fetcher.Fetch(ctx, query, maxResults)

	switch result.Status {
	case websearch.FetchDisabled:
		s.log.Warn("search capability disabled, ingesting nothing")
	case websearch.FetchDegraded:
		s.log.Warn("search fetch degraded, continuing with no articles", logger.Error(result.Err))
	case websearch.FetchOK:
	}

	return result.Articles
}

// deduplicate drops candidates whose url hash or content hash is already
// stored, and in-batch duplicates by either hash. Matching on either hash
// alone is enough to reject a candidate.
func (s *IngestService) deduplicate(ctx context.Context, candidates []domain.CanonicalArticle) ([]domain.CanonicalArticle, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	urlHashes := make([]string, 0, len(candidates))
	contentHashes := make([]string, 0, len(candidates))
	for i := range candidates {
		urlHashes = append(urlHashes, candidates[i].URLHash)
		contentHashes = append(contentHashes, candidates[i].ContentHash)
	}

	existing, findErr := s.repo.FindExistingHashes(ctx, urlHashes, contentHashes)
	if findErr != nil {
		return nil, fmt.Errorf("look up existing hashes: %w", findErr)
	}

	seenURL := make(map[string]bool, len(candidates))
	seenContent := make(map[string]bool, len(candidates))

	fresh := make([]domain.CanonicalArticle, 0, len(candidates))
	for i := range candidates {
		candidate := candidates[i]

		if existing.URLHashes[candidate.URLHash] || existing.ContentHashes[candidate.ContentHash] {
			continue
		}
		if seenURL[candidate.URLHash] || seenContent[candidate.ContentHash] {
			continue
		}

		seenURL[candidate.URLHash] = true
		seenContent[candidate.ContentHash] = true
		fresh = append(fresh, candidate)
	}

	return fresh, nil
}

// indexVectors indexes the inserted articles in the vector store. A disabled
// store counts every article as skipped; an indexing failure is logged and
// the run continues without vectors.
func (s *IngestService) indexVectors(ctx context.Context, articles []domain.Article) (added, skipped int) {
	if !s.vectors.Enabled() {
		return 0, len(articles)
	}

	docs := make([]vectorstore.Document, 0, len(articles))
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
	}

	result, addErr := s.vectors.Add(ctx, docs)
	if addErr != nil {
		s.log.Warn("vector indexing failed, continuing without vectors", logger.Error(addErr))
		return 0, len(articles)
	}

	ids := make([]int64, 0, len(articles))
	for i := range articles {
		ids = append(ids, articles[i].ID)
	}
	if markErr := s.repo.MarkVectorIndexed(ctx, ids); markErr != nil {
		s.log.Warn("failed to mark articles vector-indexed", logger.Error(markErr))
	}

	return result.Added, result.Skipped
}

// observeRun records a terminal run's counters.
func (s *IngestService) observeRun(run *domain.IngestionRun) {
	duration := time.Duration(0)
	if run.CompletedAt != nil {
		duration = run.CompletedAt.Sub(run.StartedAt)
	}

	s.metrics.ObserveRun(string(run.Status), duration,
		run.ArticlesNew, run.ArticlesSkipped,
		run.VectorsAdded, run.VectorsSkipped)
}

// failRun records the failure on the run row. A run transitions exactly once
// to a terminal state.
func (s *IngestService) failRun(ctx context.Context, run *domain.IngestionRun, runErr error) {
	now := time.Now().UTC()
	run.Status = domain.RunFailed
	run.ErrorMessage = runErr.Error()
	run.CompletedAt = &now

	if updateErr := s.repo.UpdateRun(ctx, run); updateErr != nil {
		s.log.Error("failed to record run failure",
			logger.Int64("run_id", run.ID),
			logger.Error(updateErr))
	}

	s.log.Error("ingestion run failed",
		logger.Int64("run_id", run.ID),
		logger.Error(runErr))
}

// GetRun returns one ingestion run.
func (s *IngestService) GetRun(ctx context.Context, id int64) (*domain.IngestionRun, error) {
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns recent ingestion runs.
func (s *IngestService) ListRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error) {
	return s.repo.ListRuns(ctx, limit)
}
