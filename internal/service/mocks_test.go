//nolint:testpackage // Testing internal services requires same package access
package service

import (
	"context"
	"time"

	"github.com/novaiq/backend/internal/ai"
	"github.com/novaiq/backend/internal/domain"
	"github.com/novaiq/backend/internal/vectorstore"
	"github.com/novaiq/backend/internal/websearch"
)

type mockRepository struct {
	findExistingHashesFunc func(ctx context.Context, urlHashes, contentHashes []string) (*domain.ExistingHashes, error)
	insertArticlesFunc     func(ctx context.Context, candidates []domain.CanonicalArticle) ([]domain.Article, error)
	markVectorIndexedFunc  func(ctx context.Context, ids []int64) error
	markSummarizedFunc     func(ctx context.Context, ids []int64) error
	listUnindexedFunc      func(ctx context.Context, limit int) ([]domain.Article, error)
	listUnsummarizedFunc   func(ctx context.Context, limit int) ([]domain.Article, error)
	listArticlesFunc       func(ctx context.Context, limit, offset int) ([]domain.Article, error)
	getArticleFunc         func(ctx context.Context, id int64) (*domain.Article, error)
	createRunFunc          func(ctx context.Context, run *domain.IngestionRun) error
	updateRunFunc          func(ctx context.Context, run *domain.IngestionRun) error
	deleteRunsBeforeFunc   func(ctx context.Context, cutoff time.Time) (int64, error)
	createInsightFunc      func(ctx context.Context, insight *domain.Insight) error
	listInsightsFunc       func(ctx context.Context, limit int) ([]domain.Insight, error)
	getInsightFunc         func(ctx context.Context, id int64) (*domain.Insight, error)
	createHypothesisFunc   func(ctx context.Context, hypothesis *domain.Hypothesis) error
	hasHypothesesFunc      func(ctx context.Context, insightID int64) (bool, error)

	// updateSnapshots records run state at each UpdateRun call.
	updateSnapshots []domain.IngestionRun
}

func (m *mockRepository) Ping(_ context.Context) error { return nil }

func (m *mockRepository) FindExistingHashes(ctx context.Context, urlHashes, contentHashes []string) (*domain.ExistingHashes, error) {
	if m.findExistingHashesFunc != nil {
		return m.findExistingHashesFunc(ctx, urlHashes, contentHashes)
	}
	return &domain.ExistingHashes{
		URLHashes:     map[string]bool{},
		ContentHashes: map[string]bool{},
	}, nil
}

func (m *mockRepository) InsertArticles(ctx context.Context, candidates []domain.CanonicalArticle) ([]domain.Article, error) {
	if m.insertArticlesFunc != nil {
		return m.insertArticlesFunc(ctx, candidates)
	}
	articles := make([]domain.Article, 0, len(candidates))
	for i, candidate := range candidates {
		articles = append(articles, domain.Article{
			ID:          int64(i + 1),
			URL:         candidate.URL,
			URLHash:     candidate.URLHash,
			ContentHash: candidate.ContentHash,
			Title:       candidate.Title,
			Content:     candidate.Content,
			Source:      candidate.Source,
		})
	}
	return articles, nil
}

func (m *mockRepository) MarkVectorIndexed(ctx context.Context, ids []int64) error {
	if m.markVectorIndexedFunc != nil {
		return m.markVectorIndexedFunc(ctx, ids)
	}
	return nil
}

func (m *mockRepository) MarkSummarized(ctx context.Context, ids []int64) error {
	if m.markSummarizedFunc != nil {
		return m.markSummarizedFunc(ctx, ids)
	}
	return nil
}

func (m *mockRepository) ListUnindexed(ctx context.Context, limit int) ([]domain.Article, error) {
	if m.listUnindexedFunc != nil {
		return m.listUnindexedFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockRepository) ListUnsummarized(ctx context.Context, limit int) ([]domain.Article, error) {
	if m.listUnsummarizedFunc != nil {
		return m.listUnsummarizedFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockRepository) ListArticles(ctx context.Context, limit, offset int) ([]domain.Article, error) {
	if m.listArticlesFunc != nil {
		return m.listArticlesFunc(ctx, limit, offset)
	}
	return nil, nil
}

func (m *mockRepository) CountArticles(_ context.Context) (int64, error) { return 0, nil }

func (m *mockRepository) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	if m.getArticleFunc != nil {
		return m.getArticleFunc(ctx, id)
	}
	return &domain.Article{ID: id, Title: "Article", URL: "https://example.com", Content: "content"}, nil
}

func (m *mockRepository) CreateRun(ctx context.Context, run *domain.IngestionRun) error {
	if m.createRunFunc != nil {
		return m.createRunFunc(ctx, run)
	}
	run.ID = 1
	return nil
}

func (m *mockRepository) UpdateRun(ctx context.Context, run *domain.IngestionRun) error {
	m.updateSnapshots = append(m.updateSnapshots, *run)
	if m.updateRunFunc != nil {
		return m.updateRunFunc(ctx, run)
	}
	return nil
}

func (m *mockRepository) GetRun(_ context.Context, id int64) (*domain.IngestionRun, error) {
	return &domain.IngestionRun{ID: id}, nil
}

func (m *mockRepository) ListRuns(_ context.Context, _ int) ([]domain.IngestionRun, error) {
	return nil, nil
}

func (m *mockRepository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.deleteRunsBeforeFunc != nil {
		return m.deleteRunsBeforeFunc(ctx, cutoff)
	}
	return 0, nil
}

func (m *mockRepository) CreateInsight(ctx context.Context, insight *domain.Insight) error {
	if m.createInsightFunc != nil {
		return m.createInsightFunc(ctx, insight)
	}
	insight.ID = 1
	return nil
}

func (m *mockRepository) ListInsights(ctx context.Context, limit int) ([]domain.Insight, error) {
	if m.listInsightsFunc != nil {
		return m.listInsightsFunc(ctx, limit)
	}
	return nil, nil
}

func (m *mockRepository) GetInsight(ctx context.Context, id int64) (*domain.Insight, error) {
	if m.getInsightFunc != nil {
		return m.getInsightFunc(ctx, id)
	}
	return &domain.Insight{ID: id, Title: "Insight"}, nil
}

func (m *mockRepository) CreateHypothesis(ctx context.Context, hypothesis *domain.Hypothesis) error {
	if m.createHypothesisFunc != nil {
		return m.createHypothesisFunc(ctx, hypothesis)
	}
	hypothesis.ID = 1
	return nil
}

func (m *mockRepository) GetHypothesis(_ context.Context, id int64) (*domain.Hypothesis, error) {
	return &domain.Hypothesis{ID: id}, nil
}

func (m *mockRepository) HasHypotheses(ctx context.Context, insightID int64) (bool, error) {
	if m.hasHypothesesFunc != nil {
		return m.hasHypothesesFunc(ctx, insightID)
	}
	return false, nil
}

func (m *mockRepository) ListHypotheses(_ context.Context, _ int) ([]domain.Hypothesis, error) {
	return nil, nil
}

type mockFetcher struct {
	fetchFunc func(ctx context.Context, query string, maxResults int) *websearch.FetchResult
}

func (m *mockFetcher) Fetch(ctx context.Context, query string, maxResults int) *websearch.FetchResult {
	if m.fetchFunc != nil {
		return m.fetchFunc(ctx, query, maxResults)
	}
	return &websearch.FetchResult{Status: websearch.FetchOK}
}

// fetchOK shortens the common case of a successful fetch returning fixed
// candidates.
func fetchOK(articles ...domain.CanonicalArticle) func(context.Context, string, int) *websearch.FetchResult {
	return func(_ context.Context, _ string, _ int) *websearch.FetchResult {
		return &websearch.FetchResult{Status: websearch.FetchOK, Articles: articles}
	}
}

type mockStore struct {
	enabled    bool
	addFunc    func(ctx context.Context, docs []vectorstore.Document) (*vectorstore.AddResult, error)
	searchFunc func(ctx context.Context, query string, k int) ([]vectorstore.Hit, error)
}

func (m *mockStore) Enabled() bool { return m.enabled }

func (m *mockStore) Add(ctx context.Context, docs []vectorstore.Document) (*vectorstore.AddResult, error) {
	if m.addFunc != nil {
		return m.addFunc(ctx, docs)
	}
	return &vectorstore.AddResult{Added: len(docs)}, nil
}

func (m *mockStore) Search(ctx context.Context, query string, k int) ([]vectorstore.Hit, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, k)
	}
	return nil, nil
}

func (m *mockStore) Count(_ context.Context) (int64, error) { return 0, nil }

func (m *mockStore) Ping(_ context.Context) error { return nil }

type mockLLM struct {
	generateInsightFunc    func(ctx context.Context, articles []domain.Article) (*domain.Insight, error)
	generateHypothesesFunc func(ctx context.Context, insight *domain.Insight) ([]domain.Hypothesis, error)
	answerFunc             func(ctx context.Context, question string, passages []ai.Passage) (string, error)
}

func (m *mockLLM) GenerateInsight(ctx context.Context, articles []domain.Article) (*domain.Insight, error) {
	if m.generateInsightFunc != nil {
		return m.generateInsightFunc(ctx, articles)
	}
	return &domain.Insight{Title: "Insight"}, nil
}

func (m *mockLLM) GenerateHypotheses(ctx context.Context, insight *domain.Insight) ([]domain.Hypothesis, error) {
	if m.generateHypothesesFunc != nil {
		return m.generateHypothesesFunc(ctx, insight)
	}
	return nil, nil
}

func (m *mockLLM) Answer(ctx context.Context, question string, passages []ai.Passage) (string, error) {
	if m.answerFunc != nil {
		return m.answerFunc(ctx, question, passages)
	}
	return "answer", nil
}

// canonical builds a distinct canonical article for tests.
func canonical(path, content string) domain.CanonicalArticle {
	return domain.NewCanonicalArticle("https://example.com/"+path, "Title "+path, content, "search", nil)
}
