//nolint:testpackage // Testing internal services requires same package access
package service

import (
	"context"
	"errors"
	"testing"

	"github.com/novaiq/backend/internal/domain"
	"github.com/novaiq/backend/internal/logger"
	"github.com/novaiq/backend/internal/metrics"
	"github.com/novaiq/backend/internal/vectorstore"
	"github.com/novaiq/backend/internal/websearch"
)

func newIngestService(repo *mockRepository, fetcher *mockFetcher, store vectorstore.Store) *IngestService {
	return NewIngestService(repo, fetcher, store, metrics.New(), logger.Nop(), "default query", 20)
}

func assertRunInvariant(t *testing.T, run *domain.IngestionRun) {
	t.Helper()
	if run.ArticlesFound != run.ArticlesNew+run.ArticlesSkipped {
		t.Errorf("count invariant violated: found %d != new %d + skipped %d",
			run.ArticlesFound, run.ArticlesNew, run.ArticlesSkipped)
	}
}

func TestIngestService_Run_Success(t *testing.T) {
	repo := &mockRepository{}
	fetcher := &mockFetcher{fetchFunc: fetchOK(
		canonical("a", "content for article a"),
		canonical("b", "content for article b"),
	)}
	store := &mockStore{enabled: true}

	svc := newIngestService(repo, fetcher, store)
	run, runErr := svc.Run(context.Background(), "ai research", 10)
	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	if run.Status != domain.RunCompleted {
		t.Errorf("run.Status = %q, want completed", run.Status)
	}
	if run.CompletedAt == nil {
		t.Error("run.CompletedAt = nil for terminal run")
	}
	if run.ArticlesFound != 2 || run.ArticlesNew != 2 || run.ArticlesSkipped != 0 {
		t.Errorf("counts = found %d new %d skipped %d, want 2/2/0",
			run.ArticlesFound, run.ArticlesNew, run.ArticlesSkipped)
	}
	if run.VectorsAdded != 2 {
		t.Errorf("run.VectorsAdded = %d, want 2", run.VectorsAdded)
	}
	assertRunInvariant(t, run)
}

func TestIngestService_Run_UsesDefaults(t *testing.T) {
	var gotQuery string
	var gotMax int

	repo := &mockRepository{}
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, query string, maxResults int) *websearch.FetchResult {
			gotQuery = query
			gotMax = maxResults
			return &websearch.FetchResult{Status: websearch.FetchOK}
		},
	}

	svc := newIngestService(repo, fetcher, vectorstore.NewDisabled())
	if _, runErr := svc.Run(context.Background(), "", 0); runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	if gotQuery != "default query" {
		t.Errorf("query = %q, want default", gotQuery)
	}
	if gotMax != 20 {
		t.Errorf("maxResults = %d, want default 20", gotMax)
	}
}

func TestIngestService_Run_SkipsExistingByEitherHash(t *testing.T) {
	dupURL := canonical("dup-url", "fresh content for the url duplicate")
	dupContent := canonical("dup-content", "content already stored elsewhere")
	fresh := canonical("fresh", "entirely new content for this article")

	repo := &mockRepository{
		findExistingHashesFunc: func(_ context.Context, _, _ []string) (*domain.ExistingHashes, error) {
			return &domain.ExistingHashes{
				URLHashes:     map[string]bool{dupURL.URLHash: true},
				ContentHashes: map[string]bool{dupContent.ContentHash: true},
			}, nil
		},
	}
	fetcher := &mockFetcher{fetchFunc: fetchOK(dupURL, dupContent, fresh)}

	svc := newIngestService(repo, fetcher, vectorstore.NewDisabled())
	run, runErr := svc.Run(context.Background(), "q", 10)
	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	if run.ArticlesFound != 3 || run.ArticlesNew != 1 || run.ArticlesSkipped != 2 {
		t.Errorf("counts = found %d new %d skipped %d, want 3/1/2",
			run.ArticlesFound, run.ArticlesNew, run.ArticlesSkipped)
	}
	assertRunInvariant(t, run)
}

func TestIngestService_Run_SkipsInBatchDuplicates(t *testing.T) {
	first := canonical("same", "identical content fetched twice in one batch")
	second := canonical("same", "identical content fetched twice in one batch")

	var insertedCount int
	repo := &mockRepository{
		insertArticlesFunc: func(_ context.Context, candidates []domain.CanonicalArticle) ([]domain.Article, error) {
			insertedCount = len(candidates)
			articles := make([]domain.Article, len(candidates))
			for i := range candidates {
				articles[i] = domain.Article{ID: int64(i + 1), URL: candidates[i].URL}
			}
			return articles, nil
		},
	}
	fetcher := &mockFetcher{fetchFunc: fetchOK(first, second)}

	svc := newIngestService(repo, fetcher, vectorstore.NewDisabled())
	run, runErr := svc.Run(context.Background(), "q", 10)
	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	if insertedCount != 1 {
		t.Errorf("inserted %d candidates, want 1 after in-batch dedup", insertedCount)
	}
	if run.ArticlesNew != 1 || run.ArticlesSkipped != 1 {
		t.Errorf("counts = new %d skipped %d, want 1/1", run.ArticlesNew, run.ArticlesSkipped)
	}
	assertRunInvariant(t, run)
}

func TestIngestService_Run_SearchDisabled(t *testing.T) {
	repo := &mockRepository{}
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, _ string, _ int) *websearch.FetchResult {
			return &websearch.FetchResult{Status: websearch.FetchDisabled}
		},
	}

	svc := newIngestService(repo, fetcher, vectorstore.NewDisabled())
	run, runErr := svc.Run(context.Background(), "q", 10)
	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	if run.Status != domain.RunCompleted {
		t.Errorf("run.Status = %q, want completed with search disabled", run.Status)
	}
	if run.ArticlesFound != 0 {
		t.Errorf("run.ArticlesFound = %d, want 0", run.ArticlesFound)
	}
}

func TestIngestService_Run_FetchFailureDegrades(t *testing.T) {
	repo := &mockRepository{}
	fetcher := &mockFetcher{
		fetchFunc: func(_ context.Context, _ string, _ int) *websearch.FetchResult {
			return &websearch.FetchResult{
				Status: websearch.FetchDegraded,
				Err:    errors.New("search API timeout"),
			}
		},
	}

	svc := newIngestService(repo, fetcher, vectorstore.NewDisabled())
	run, runErr := svc.Run(context.Background(), "q", 10)
	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	if run.Status != domain.RunCompleted {
		t.Errorf("run.Status = %q, want completed after degraded fetch", run.Status)
	}
	if run.ArticlesFound != 0 {
		t.Errorf("run.ArticlesFound = %d, want 0", run.ArticlesFound)
	}
}

func TestIngestService_Run_PersistFailureFailsRun(t *testing.T) {
	insertFailure := errors.New("database gone")

	repo := &mockRepository{
		insertArticlesFunc: func(_ context.Context, _ []domain.CanonicalArticle) ([]domain.Article, error) {
			return nil, insertFailure
		},
	}
	fetcher := &mockFetcher{fetchFunc: fetchOK(canonical("a", "content for article a"))}

	svc := newIngestService(repo, fetcher, vectorstore.NewDisabled())
	run, runErr := svc.Run(context.Background(), "q", 10)
	if !errors.Is(runErr, insertFailure) {
		t.Fatalf("Run() error = %v, want wrapped insert failure", runErr)
	}

	if run.Status != domain.RunFailed {
		t.Errorf("run.Status = %q, want failed", run.Status)
	}
	if run.ErrorMessage == "" {
		t.Error("run.ErrorMessage empty for failed run")
	}
	if run.CompletedAt == nil {
		t.Error("run.CompletedAt = nil for terminal run")
	}

	// The dedup-step counters were committed before persist, so the failed
	// run still satisfies the count invariant.
	assertRunInvariant(t, run)
	if run.ArticlesNew != 1 {
		t.Errorf("run.ArticlesNew = %d, want 1 from the dedup step", run.ArticlesNew)
	}

	// The failure must be recorded in storage too.
	last := repo.updateSnapshots[len(repo.updateSnapshots)-1]
	if last.Status != domain.RunFailed {
		t.Errorf("last persisted status = %q, want failed", last.Status)
	}
	assertRunInvariant(t, &last)
}

func TestIngestService_Run_VectorsDisabledCountsSkipped(t *testing.T) {
	repo := &mockRepository{}
	fetcher := &mockFetcher{fetchFunc: fetchOK(
		canonical("a", "content for article a"),
		canonical("b", "content for article b"),
	)}

	svc := newIngestService(repo, fetcher, vectorstore.NewDisabled())
	run, runErr := svc.Run(context.Background(), "q", 10)
	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	if run.VectorsAdded != 0 || run.VectorsSkipped != 2 {
		t.Errorf("vectors = added %d skipped %d, want 0/2", run.VectorsAdded, run.VectorsSkipped)
	}
	if run.Status != domain.RunCompleted {
		t.Errorf("run.Status = %q, want completed", run.Status)
	}
}

func TestIngestService_Run_VectorFailureDoesNotFailRun(t *testing.T) {
	var marked bool
	repo := &mockRepository{
		markVectorIndexedFunc: func(_ context.Context, _ []int64) error {
			marked = true
			return nil
		},
	}
	fetcher := &mockFetcher{fetchFunc: fetchOK(canonical("a", "content for article a"))}
	store := &mockStore{
		enabled: true,
		addFunc: func(_ context.Context, _ []vectorstore.Document) (*vectorstore.AddResult, error) {
			return nil, errors.New("elasticsearch unavailable")
		},
	}

	svc := newIngestService(repo, fetcher, store)
	run, runErr := svc.Run(context.Background(), "q", 10)
	if runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	if run.Status != domain.RunCompleted {
		t.Errorf("run.Status = %q, want completed despite vector failure", run.Status)
	}
	if run.VectorsAdded != 0 {
		t.Errorf("run.VectorsAdded = %d, want 0", run.VectorsAdded)
	}
	if run.VectorsSkipped != 1 {
		t.Errorf("run.VectorsSkipped = %d, want 1", run.VectorsSkipped)
	}
	if marked {
		t.Error("articles marked vector-indexed despite failed indexing")
	}
}

func TestIngestService_Run_CommitsProgressPerStep(t *testing.T) {
	repo := &mockRepository{}
	fetcher := &mockFetcher{fetchFunc: fetchOK(canonical("a", "content for article a"))}

	svc := newIngestService(repo, fetcher, vectorstore.NewDisabled())
	if _, runErr := svc.Run(context.Background(), "q", 10); runErr != nil {
		t.Fatalf("Run() error = %v", runErr)
	}

	// fetch step, dedup step, completion.
	const expectedCommits = 3
	if len(repo.updateSnapshots) != expectedCommits {
		t.Fatalf("UpdateRun called %d times, want %d", len(repo.updateSnapshots), expectedCommits)
	}
	if repo.updateSnapshots[0].ArticlesFound != 1 || repo.updateSnapshots[0].Status != domain.RunRunning {
		t.Errorf("fetch snapshot = %+v, want found=1 running", repo.updateSnapshots[0])
	}
	dedup := repo.updateSnapshots[1]
	if dedup.ArticlesNew != 1 || dedup.ArticlesSkipped != 0 || dedup.Status != domain.RunRunning {
		t.Errorf("dedup snapshot = %+v, want new=1 skipped=0 running", dedup)
	}
	if repo.updateSnapshots[2].Status != domain.RunCompleted {
		t.Errorf("final snapshot status = %q, want completed", repo.updateSnapshots[2].Status)
	}
}
