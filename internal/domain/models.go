// Package domain contains the core domain models for the research-article
// ingestion service: canonical articles with deterministic dedup hashes,
// ingestion runs, and the insight/hypothesis records derived from articles.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// RunStatus represents the lifecycle state of an ingestion run.
type RunStatus string

const (
	// RunPending indicates a run row created but not yet started.
	RunPending RunStatus = "pending"
	// RunRunning indicates a run currently executing the pipeline.
	RunRunning RunStatus = "running"
	// RunCompleted indicates a run that finished successfully.
	RunCompleted RunStatus = "completed"
	// RunFailed indicates a run that stopped on an error.
	RunFailed RunStatus = "failed"
)

// validStatuses maps every recognised RunStatus value to true for O(1) lookup.
var validStatuses = map[RunStatus]bool{
	RunPending:   true,
	RunRunning:   true,
	RunCompleted: true,
	RunFailed:    true,
}

// IsValid reports whether s is a recognised run status.
func (s RunStatus) IsValid() bool {
	return validStatuses[s]
}

// Terminal reports whether s is a final state. A run transitions exactly once
// from running to a terminal state and is never mutated afterwards.
func (s RunStatus) Terminal() bool {
	return s == RunCompleted || s == RunFailed
}

// docIDLen is the number of hex characters in a vector-store document id.
const docIDLen = 16

// docIDSeparator is the delimiter used when deriving a document id.
const docIDSeparator = ":"

// CanonicalArticle is a normalized fetch result with computed dedup hashes,
// ready for storage. Build it with NewCanonicalArticle and treat it as
// immutable afterwards.
type CanonicalArticle struct {
	URL         string     `json:"url"`
	URLHash     string     `json:"url_hash"`
	ContentHash string     `json:"content_hash"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Source      string     `json:"source"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// NewCanonicalArticle builds a canonical article and computes both dedup
// hashes from the raw values.
func NewCanonicalArticle(url, title, content, source string, publishedAt *time.Time) CanonicalArticle {
	return CanonicalArticle{
		URL:         url,
		URLHash:     HashURL(url),
		ContentHash: HashContent(content),
		Title:       title,
		Content:     content,
		Source:      source,
		PublishedAt: publishedAt,
	}
}

// Article is a persisted article record. url_hash is unique at the storage
// layer (primary dedup guard); content_hash is indexed but not unique
// (secondary, application-level dedup guard).
type Article struct {
	ID              int64      `json:"id"`
	URL             string     `json:"url"`
	URLHash         string     `json:"url_hash"`
	ContentHash     string     `json:"content_hash"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	Source          string     `json:"source"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
	VectorIndexed   bool       `json:"vector_indexed"`
	VectorIndexedAt *time.Time `json:"vector_indexed_at,omitempty"`
	Summarized      bool       `json:"summarized"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DocumentID returns the article's deterministic vector-store id.
func (a *Article) DocumentID() string {
	return DocumentID(a.Content, a.URL, a.Title)
}

// IngestionRun tracks one execution of the ingestion pipeline. The counts
// satisfy ArticlesFound = ArticlesNew + ArticlesSkipped for every terminal run.
type IngestionRun struct {
	ID              int64      `json:"id"`
	Query           string     `json:"query"`
	Status          RunStatus  `json:"status"`
	ArticlesFound   int        `json:"articles_found"`
	ArticlesNew     int        `json:"articles_new"`
	ArticlesSkipped int        `json:"articles_skipped"`
	VectorsAdded    int        `json:"vectors_added"`
	VectorsSkipped  int        `json:"vectors_skipped"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Insight is a summary extracted from one or more articles by the LLM.
// Bullets, Citations and ArticleIDs are stored as JSON text columns.
type Insight struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Bullets    []string  `json:"bullets"`
	Citations  []string  `json:"citations"`
	ArticleIDs []int64   `json:"article_ids"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Hypothesis is a testable statement derived from an insight.
type Hypothesis struct {
	ID         int64     `json:"id"`
	InsightID  int64     `json:"insight_id"`
	Hypothesis string    `json:"hypothesis"`
	Rationale  string    `json:"rationale"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// ExistingHashes is the subset of candidate dedup hashes already present in
// storage. A candidate article is a duplicate when either of its hashes
// appears in the corresponding set.
type ExistingHashes struct {
	URLHashes     map[string]bool
	ContentHashes map[string]bool
}

// HashURL returns the SHA-256 hex digest of the trimmed, lowercased URL.
// URLs differing only in case or surrounding whitespace hash identically.
func HashURL(rawURL string) string {
	normalized := strings.ToLower(strings.TrimSpace(rawURL))
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// HashContent returns the SHA-256 hex digest of the content with surrounding
// whitespace trimmed and internal whitespace runs collapsed to single spaces,
// so cosmetic formatting differences do not produce distinct hashes.
func HashContent(content string) string {
	normalized := strings.Join(strings.Fields(content), " ")
	h := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(h[:])
}

// DocumentID derives the deterministic vector-store id for a document from
// its text, URL and title. Re-adding the same triple is a no-op in the vector
// backend, which makes indexing idempotent. Truncation to 16 hex characters
// keeps ids short; the collision risk is negligible at expected volumes.
func DocumentID(text, url, title string) string {
	joined := strings.Join([]string{text, url, title}, docIDSeparator)
	h := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(h[:])[:docIDLen]
}

// ParsePublishedAt parses a published-date string from the search API on a
// best-effort basis. Missing or unparsable values return nil, never an error.
func ParsePublishedAt(value string) *time.Time {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	parsed, parseErr := dateparse.ParseAny(value)
	if parseErr != nil {
		return nil
	}

	utc := parsed.UTC()
	return &utc
}
