// Package vectorstore indexes article embeddings in Elasticsearch and serves
// similarity search for retrieval-augmented answering.
package vectorstore

import (
	"context"
	"time"
)

// Document is one article chunk to index. ID is derived deterministically
// from the document's text, URL and title, so re-adding the same document is
// a no-op.
type Document struct {
	ID        string
	Text      string
	ArticleID int64
	URL       string
	Title     string
	Source    string
}

// AddResult reports the outcome of an Add call.
type AddResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Hit is one similarity search result.
type Hit struct {
	Text      string  `json:"text"`
	URL       string  `json:"url"`
	Title     string  `json:"title"`
	ArticleID int64   `json:"article_id"`
	Score     float64 `json:"score"`
}

// Embedder turns text into embedding vectors. Satisfied by the AI package's
// embedding client.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the vector index. Implementations degrade gracefully: a disabled
// store reports Enabled() == false and turns every operation into a no-op
// instead of an error.
type Store interface {
	// Enabled reports whether the vector capability is live.
	Enabled() bool
	// Add indexes the documents that are not already present.
	Add(ctx context.Context, docs []Document) (*AddResult, error)
	// Search returns the k most similar documents to the query.
	Search(ctx context.Context, query string, k int) ([]Hit, error)
	// Count returns the number of indexed documents.
	Count(ctx context.Context) (int64, error)
	// Ping checks backend connectivity.
	Ping(ctx context.Context) error
}

// Disabled is the no-op store used when the vector capability is not
// configured.
type Disabled struct{}

// NewDisabled returns the no-op store.
func NewDisabled() *Disabled {
	return &Disabled{}
}

// Enabled always reports false.
func (*Disabled) Enabled() bool { return false }

// Add is a no-op; every document is reported as skipped.
func (*Disabled) Add(_ context.Context, docs []Document) (*AddResult, error) {
	return &AddResult{Skipped: len(docs)}, nil
}

// Search returns no hits.
func (*Disabled) Search(_ context.Context, _ string, _ int) ([]Hit, error) {
	return nil, nil
}

// Count reports an empty index.
func (*Disabled) Count(_ context.Context) (int64, error) { return 0, nil }

// Ping always succeeds; there is no backend to check.
func (*Disabled) Ping(_ context.Context) error { return nil }

// Config holds Elasticsearch vector store settings.
type Config struct {
	URL        string
	Username   string
	Password   string
	Index      string
	Dimensions int
	BatchSize  int
	MaxRetries int
	Timeout    time.Duration
}
