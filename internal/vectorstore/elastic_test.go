package vectorstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/novaiq/backend/internal/logger"
)

// fakeEmbedder returns constant-dimension vectors without an API call.
type fakeEmbedder struct {
	documentCalls int
	queryCalls    int
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.documentCalls++
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	f.queryCalls++
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeElastic is a minimal Elasticsearch endpoint for client tests.
type fakeElastic struct {
	existingIDs map[string]bool
	docCount    int64
	bulkBodies  []string
	searchBody  string
}

func (f *fakeElastic) handler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead:
			// Index existence check.
			w.WriteHeader(http.StatusOK)
		case strings.HasSuffix(r.URL.Path, "/_mget"):
			var request struct {
				IDs []string `json:"ids"`
			}
			_ = json.NewDecoder(r.Body).Decode(&request)

			docs := make([]map[string]any, 0, len(request.IDs))
			for _, id := range request.IDs {
				docs = append(docs, map[string]any{"_id": id, "found": f.existingIDs[id]})
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"docs": docs})
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			f.bulkBodies = append(f.bulkBodies, readAll(r))
			_ = json.NewEncoder(w).Encode(map[string]any{"errors": false, "items": []any{}})
		case strings.HasSuffix(r.URL.Path, "/_count"):
			_ = json.NewEncoder(w).Encode(map[string]any{"count": f.docCount})
		case strings.Contains(r.URL.Path, "/_doc/"):
			id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
			if !f.existingIDs[id] {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"found": false}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"_id":   id,
				"found": true,
				"_source": map[string]any{
					"text":       "indexed body",
					"url":        "https://example.com/indexed",
					"title":      "Indexed",
					"source":     "arxiv",
					"article_id": 7,
				},
			})
		case strings.HasSuffix(r.URL.Path, "/_search"):
			f.searchBody = readAll(r)
			_, _ = w.Write([]byte(`{"hits": {"hits": [
				{"_score": 0.92, "_source": {"text": "body a", "url": "https://example.com/a", "title": "A", "article_id": 1}},
				{"_score": 0.85, "_source": {"text": "body b", "url": "https://example.com/b", "title": "B", "article_id": 2}}
			]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func readAll(r *http.Request) string {
	body, _ := io.ReadAll(r.Body)
	return string(body)
}

func newTestStore(t *testing.T, fake *fakeElastic, embedder Embedder) *Elastic {
	t.Helper()

	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	store, storeErr := NewElastic(context.Background(), Config{
		URL:        server.URL,
		Index:      "test-articles",
		Dimensions: 3,
		BatchSize:  2,
	}, embedder, logger.Nop())
	if storeErr != nil {
		t.Fatalf("NewElastic() error = %v", storeErr)
	}

	return store
}

func TestElastic_Add_SkipsExistingIDs(t *testing.T) {
	fake := &fakeElastic{existingIDs: map[string]bool{"doc-1": true}}
	embedder := &fakeEmbedder{}
	store := newTestStore(t, fake, embedder)

	result, addErr := store.Add(context.Background(), []Document{
		{ID: "doc-1", Text: "already indexed", URL: "https://example.com/1"},
		{ID: "doc-2", Text: "new document", URL: "https://example.com/2"},
	})
	if addErr != nil {
		t.Fatalf("Add() error = %v", addErr)
	}

	if result.Added != 1 || result.Skipped != 1 {
		t.Errorf("Add() = added %d skipped %d, want 1/1", result.Added, result.Skipped)
	}
	if len(fake.bulkBodies) != 1 {
		t.Fatalf("expected 1 bulk request, got %d", len(fake.bulkBodies))
	}
	if !strings.Contains(fake.bulkBodies[0], `"_id":"doc-2"`) {
		t.Errorf("bulk body missing new document id: %s", fake.bulkBodies[0])
	}
	if strings.Contains(fake.bulkBodies[0], `"_id":"doc-1"`) {
		t.Errorf("bulk body contains already-indexed document: %s", fake.bulkBodies[0])
	}
}

func TestElastic_Add_DedupesWithinBatch(t *testing.T) {
	fake := &fakeElastic{}
	store := newTestStore(t, fake, &fakeEmbedder{})

	result, addErr := store.Add(context.Background(), []Document{
		{ID: "doc-1", Text: "first"},
		{ID: "doc-1", Text: "duplicate in same batch"},
	})
	if addErr != nil {
		t.Fatalf("Add() error = %v", addErr)
	}

	if result.Added != 1 {
		t.Errorf("Add() added = %d, want 1", result.Added)
	}
}

func TestElastic_Add_Empty(t *testing.T) {
	fake := &fakeElastic{}
	embedder := &fakeEmbedder{}
	store := newTestStore(t, fake, embedder)

	result, addErr := store.Add(context.Background(), nil)
	if addErr != nil {
		t.Fatalf("Add() error = %v", addErr)
	}
	if result.Added != 0 || result.Skipped != 0 {
		t.Errorf("Add() = %+v, want zero result", result)
	}
	if embedder.documentCalls != 0 {
		t.Errorf("embedder called %d times for empty batch, want 0", embedder.documentCalls)
	}
}

func TestElastic_Add_BatchesRequests(t *testing.T) {
	fake := &fakeElastic{}
	embedder := &fakeEmbedder{}
	store := newTestStore(t, fake, embedder) // BatchSize: 2

	docs := []Document{
		{ID: "doc-1", Text: "one"},
		{ID: "doc-2", Text: "two"},
		{ID: "doc-3", Text: "three"},
	}

	result, addErr := store.Add(context.Background(), docs)
	if addErr != nil {
		t.Fatalf("Add() error = %v", addErr)
	}

	if result.Added != 3 {
		t.Errorf("Add() added = %d, want 3", result.Added)
	}
	if len(fake.bulkBodies) != 2 {
		t.Errorf("expected 2 bulk requests for batch size 2, got %d", len(fake.bulkBodies))
	}
	if embedder.documentCalls != 2 {
		t.Errorf("embedder called %d times, want 2", embedder.documentCalls)
	}
}

func TestElastic_Search(t *testing.T) {
	fake := &fakeElastic{}
	embedder := &fakeEmbedder{}
	store := newTestStore(t, fake, embedder)

	hits, searchErr := store.Search(context.Background(), "transformer efficiency", 2)
	if searchErr != nil {
		t.Fatalf("Search() error = %v", searchErr)
	}

	if len(hits) != 2 {
		t.Fatalf("Search() returned %d hits, want 2", len(hits))
	}
	if hits[0].URL != "https://example.com/a" || hits[0].Score != 0.92 {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[0].ArticleID != 1 {
		t.Errorf("hits[0].ArticleID = %d, want 1", hits[0].ArticleID)
	}
	if embedder.queryCalls != 1 {
		t.Errorf("embedder query called %d times, want 1", embedder.queryCalls)
	}
	if !strings.Contains(fake.searchBody, `"knn"`) {
		t.Errorf("search request missing knn clause: %s", fake.searchBody)
	}
}

func TestElastic_Search_ZeroK(t *testing.T) {
	fake := &fakeElastic{}
	embedder := &fakeEmbedder{}
	store := newTestStore(t, fake, embedder)

	hits, searchErr := store.Search(context.Background(), "anything", 0)
	if searchErr != nil {
		t.Fatalf("Search() error = %v", searchErr)
	}
	if hits != nil {
		t.Errorf("Search() = %v, want nil for k=0", hits)
	}
	if embedder.queryCalls != 0 {
		t.Errorf("embedder called for k=0")
	}
}

func TestElastic_Count(t *testing.T) {
	fake := &fakeElastic{docCount: 42}
	store := newTestStore(t, fake, &fakeEmbedder{})

	count, countErr := store.Count(context.Background())
	if countErr != nil {
		t.Fatalf("Count() error = %v", countErr)
	}
	if count != 42 {
		t.Errorf("Count() = %d, want 42", count)
	}
}

func TestElastic_Get(t *testing.T) {
	fake := &fakeElastic{existingIDs: map[string]bool{"doc-1": true}}
	store := newTestStore(t, fake, &fakeEmbedder{})

	doc, getErr := store.Get(context.Background(), "doc-1")
	if getErr != nil {
		t.Fatalf("Get() error = %v", getErr)
	}
	if doc == nil {
		t.Fatal("Get() = nil for indexed document")
	}
	if doc.ID != "doc-1" || doc.ArticleID != 7 || doc.Source != "arxiv" {
		t.Errorf("unexpected document: %+v", doc)
	}

	missing, missErr := store.Get(context.Background(), "doc-unknown")
	if missErr != nil {
		t.Fatalf("Get() error = %v for missing document", missErr)
	}
	if missing != nil {
		t.Errorf("Get() = %+v for missing id, want nil", missing)
	}
}

func TestElastic_Delete(t *testing.T) {
	fake := &fakeElastic{}
	store := newTestStore(t, fake, &fakeEmbedder{})

	if deleteErr := store.Delete(context.Background(), []string{"doc-1", "doc-2"}); deleteErr != nil {
		t.Fatalf("Delete() error = %v", deleteErr)
	}

	if len(fake.bulkBodies) != 1 {
		t.Fatalf("expected 1 bulk request, got %d", len(fake.bulkBodies))
	}
	if !strings.Contains(fake.bulkBodies[0], `"delete"`) {
		t.Errorf("bulk body missing delete actions: %s", fake.bulkBodies[0])
	}

	if deleteErr := store.Delete(context.Background(), nil); deleteErr != nil {
		t.Errorf("Delete() error = %v for empty ids", deleteErr)
	}
	if len(fake.bulkBodies) != 1 {
		t.Errorf("bulk request sent for empty id list")
	}
}

func TestDisabled_NoOps(t *testing.T) {
	t.Parallel()

	store := NewDisabled()
	ctx := context.Background()

	if store.Enabled() {
		t.Error("Disabled store reports Enabled() = true")
	}

	docs := []Document{{ID: "doc-1", Text: "text"}, {ID: "doc-2", Text: "more text"}}
	result, addErr := store.Add(ctx, docs)
	if addErr != nil {
		t.Errorf("Add() error = %v", addErr)
	}
	if result.Added != 0 || result.Skipped != len(docs) {
		t.Errorf("Add() = %+v, want added=0 skipped=%d", result, len(docs))
	}

	hits, searchErr := store.Search(ctx, "query", 5)
	if searchErr != nil {
		t.Errorf("Search() error = %v", searchErr)
	}
	if hits != nil {
		t.Errorf("Search() = %v, want nil", hits)
	}

	count, countErr := store.Count(ctx)
	if countErr != nil {
		t.Errorf("Count() error = %v", countErr)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	if pingErr := store.Ping(ctx); pingErr != nil {
		t.Errorf("Ping() error = %v", pingErr)
	}
}
