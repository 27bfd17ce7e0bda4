package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	es "github.com/elastic/go-elasticsearch/v8"

	"github.com/novaiq/backend/internal/logger"
	"github.com/novaiq/backend/internal/retry"
)

const (
	// knnCandidateMultiplier widens the kNN candidate pool relative to k.
	knnCandidateMultiplier = 10

	defaultBatchSize = 100
)

// Elastic is the Elasticsearch-backed vector store.
type Elastic struct {
	client   *es.Client
	embedder Embedder
	cfg      Config
	log      logger.Logger
}

// NewElastic creates the Elasticsearch vector store, verifies connectivity
// with retries, and ensures the index exists.
func NewElastic(ctx context.Context, cfg Config, embedder Embedder, log logger.Logger) (*Elastic, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	clientCfg := es.Config{
		Addresses:  []string{normalizeURL(cfg.URL)},
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.Username != "" && cfg.Password != "" {
		clientCfg.Username = cfg.Username
		clientCfg.Password = cfg.Password
	}

	client, clientErr := es.NewClient(clientCfg)
	if clientErr != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", clientErr)
	}

	store := &Elastic{
		client:   client,
		embedder: embedder,
		cfg:      cfg,
		log:      log,
	}

	if pingErr := retry.DoWithDefaults(ctx, func() error {
		return store.Ping(ctx)
	}); pingErr != nil {
		return nil, fmt.Errorf("connect to elasticsearch: %w", pingErr)
	}

	if ensureErr := store.ensureIndex(ctx); ensureErr != nil {
		return nil, fmt.Errorf("ensure vector index: %w", ensureErr)
	}

	log.Info("vector store ready",
		logger.String("index", cfg.Index),
		logger.Int("dimensions", cfg.Dimensions))

	return store, nil
}

// normalizeURL adds the http scheme if missing.
func normalizeURL(url string) string {
	if url == "" {
		return "http://localhost:9200"
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "http://" + url
	}
	return url
}

// Enabled always reports true for a constructed Elastic store.
func (e *Elastic) Enabled() bool { return true }

// Ping checks Elasticsearch connectivity.
func (e *Elastic) Ping(ctx context.Context) error {
	res, pingErr := e.client.Ping(e.client.Ping.WithContext(ctx))
	if pingErr != nil {
		return fmt.Errorf("ping elasticsearch: %w", pingErr)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping returned %s", res.Status())
	}

	return nil
}

// indexMapping is the vector index schema. The embedding field uses cosine
// similarity so scores are comparable across queries.
func (e *Elastic) indexMapping() map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"text":       map[string]any{"type": "text"},
				"url":        map[string]any{"type": "keyword"},
				"title":      map[string]any{"type": "text"},
				"source":     map[string]any{"type": "keyword"},
				"article_id": map[string]any{"type": "long"},
				"embedding": map[string]any{
					"type":       "dense_vector",
					"dims":       e.cfg.Dimensions,
					"index":      true,
					"similarity": "cosine",
				},
			},
		},
	}
}

func (e *Elastic) ensureIndex(ctx context.Context) error {
	existsRes, existsErr := e.client.Indices.Exists(
		[]string{e.cfg.Index},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if existsErr != nil {
		return fmt.Errorf("check index: %w", existsErr)
	}
	defer existsRes.Body.Close()

	if existsRes.StatusCode == http.StatusOK {
		return nil
	}
	if existsRes.StatusCode != http.StatusNotFound {
		return fmt.Errorf("check index returned %s", existsRes.Status())
	}

	body, marshalErr := json.Marshal(e.indexMapping())
	if marshalErr != nil {
		return fmt.Errorf("marshal index mapping: %w", marshalErr)
	}

	createRes, createErr := e.client.Indices.Create(
		e.cfg.Index,
		e.client.Indices.Create.WithContext(ctx),
		e.client.Indices.Create.WithBody(bytes.NewReader(body)),
	)
	if createErr != nil {
		return fmt.Errorf("create index: %w", createErr)
	}
	defer createRes.Body.Close()

	if createRes.IsError() {
		return fmt.Errorf("create index returned %s", createRes.Status())
	}

	e.log.Info("created vector index", logger.String("index", e.cfg.Index))
	return nil
}

// Add indexes the documents whose ids are not already present. Existing ids
// are skipped so repeated ingestion of the same article is idempotent.
func (e *Elastic) Add(ctx context.Context, docs []Document) (*AddResult, error) {
	result := &AddResult{}
	if len(docs) == 0 {
		return result, nil
	}

	docs = dedupeByID(docs)

	existing, existErr := e.existingIDs(ctx, docs)
	if existErr != nil {
		return nil, existErr
	}

	var fresh []Document
	for _, doc := range docs {
		if existing[doc.ID] {
			result.Skipped++
			continue
		}
		fresh = append(fresh, doc)
	}

	for start := 0; start < len(fresh); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(fresh) {
			end = len(fresh)
		}

		if indexErr := e.indexBatch(ctx, fresh[start:end]); indexErr != nil {
			return nil, indexErr
		}
		result.Added += end - start
	}

	return result, nil
}

// dedupeByID drops in-batch duplicates, keeping the first occurrence.
func dedupeByID(docs []Document) []Document {
	seen := make(map[string]bool, len(docs))
	unique := docs[:0:0]
	for _, doc := range docs {
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		unique = append(unique, doc)
	}
	return unique
}

// existingIDs returns which document ids are already indexed, via a single
// mget with sources suppressed.
func (e *Elastic) existingIDs(ctx context.Context, docs []Document) (map[string]bool, error) {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID)
	}

	body, marshalErr := json.Marshal(map[string]any{"ids": ids})
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal mget request: %w", marshalErr)
	}

	res, mgetErr := e.client.Mget(
		bytes.NewReader(body),
		e.client.Mget.WithContext(ctx),
		e.client.Mget.WithIndex(e.cfg.Index),
		e.client.Mget.WithSourceExcludes("*"),
	)
	if mgetErr != nil {
		return nil, fmt.Errorf("mget existing documents: %w", mgetErr)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("mget returned %s", res.Status())
	}

	var response struct {
		Docs []struct {
			ID    string `json:"_id"`
			Found bool   `json:"found"`
		} `json:"docs"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&response); decodeErr != nil {
		return nil, fmt.Errorf("decode mget response: %w", decodeErr)
	}

	existing := make(map[string]bool, len(response.Docs))
	for _, doc := range response.Docs {
		if doc.Found {
			existing[doc.ID] = true
		}
	}

	return existing, nil
}

// indexBatch embeds one batch and writes it with a single bulk request.
func (e *Elastic) indexBatch(ctx context.Context, docs []Document) error {
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Text)
	}

	vectors, embedErr := e.embedder.EmbedDocuments(ctx, texts)
	if embedErr != nil {
		return fmt.Errorf("embed documents: %w", embedErr)
	}
	if len(vectors) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for i, doc := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": e.cfg.Index, "_id": doc.ID},
		}
		if encodeErr := encoder.Encode(action); encodeErr != nil {
			return fmt.Errorf("encode bulk action: %w", encodeErr)
		}

		source := map[string]any{
			"text":       doc.Text,
			"url":        doc.URL,
			"title":      doc.Title,
			"source":     doc.Source,
			"article_id": doc.ArticleID,
			"embedding":  vectors[i],
		}
		if encodeErr := encoder.Encode(source); encodeErr != nil {
			return fmt.Errorf("encode bulk document: %w", encodeErr)
		}
	}

	res, bulkErr := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
	)
	if bulkErr != nil {
		return fmt.Errorf("bulk index: %w", bulkErr)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk index returned %s", res.Status())
	}

	var response struct {
		Errors bool `json:"errors"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&response); decodeErr != nil {
		return fmt.Errorf("decode bulk response: %w", decodeErr)
	}
	if response.Errors {
		return fmt.Errorf("bulk index reported item failures")
	}

	return nil
}

// Count returns the number of documents in the vector index.
func (e *Elastic) Count(ctx context.Context) (int64, error) {
	res, countErr := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.cfg.Index),
	)
	if countErr != nil {
		return 0, fmt.Errorf("count documents: %w", countErr)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, fmt.Errorf("count returned %s", res.Status())
	}

	var response struct {
		Count int64 `json:"count"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&response); decodeErr != nil {
		return 0, fmt.Errorf("decode count response: %w", decodeErr)
	}

	return response.Count, nil
}

// Get fetches one document by id. Returns nil when the id is not indexed.
func (e *Elastic) Get(ctx context.Context, id string) (*Document, error) {
	res, getErr := e.client.Get(
		e.cfg.Index,
		id,
		e.client.Get.WithContext(ctx),
	)
	if getErr != nil {
		return nil, fmt.Errorf("get document: %w", getErr)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, fmt.Errorf("get document returned %s", res.Status())
	}

	var response struct {
		ID     string `json:"_id"`
		Source struct {
			Text      string `json:"text"`
			URL       string `json:"url"`
			Title     string `json:"title"`
			Source    string `json:"source"`
			ArticleID int64  `json:"article_id"`
		} `json:"_source"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&response); decodeErr != nil {
		return nil, fmt.Errorf("decode get response: %w", decodeErr)
	}

	return &Document{
		ID:        response.ID,
		Text:      response.Source.Text,
		URL:       response.Source.URL,
		Title:     response.Source.Title,
		Source:    response.Source.Source,
		ArticleID: response.Source.ArticleID,
	}, nil
}

// Delete removes documents by id. Missing ids are ignored.
func (e *Elastic) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, id := range ids {
		action := map[string]any{
			"delete": map[string]any{"_index": e.cfg.Index, "_id": id},
		}
		if encodeErr := encoder.Encode(action); encodeErr != nil {
			return fmt.Errorf("encode bulk delete: %w", encodeErr)
		}
	}

	res, bulkErr := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithContext(ctx),
	)
	if bulkErr != nil {
		return fmt.Errorf("bulk delete: %w", bulkErr)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("bulk delete returned %s", res.Status())
	}

	return nil
}

// Search embeds the query and runs a kNN search against the index.
func (e *Elastic) Search(ctx context.Context, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, embedErr := e.embedder.EmbedQuery(ctx, query)
	if embedErr != nil {
		return nil, fmt.Errorf("embed query: %w", embedErr)
	}

	request := map[string]any{
		"knn": map[string]any{
			"field":          "embedding",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * knnCandidateMultiplier,
		},
		"_source": []string{"text", "url", "title", "article_id"},
	}

	body, marshalErr := json.Marshal(request)
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal knn request: %w", marshalErr)
	}

	res, searchErr := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.cfg.Index),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if searchErr != nil {
		return nil, fmt.Errorf("knn search: %w", searchErr)
	}
	defer res.Body.Close()

	if res.IsError() {
		raw, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("knn search returned %s: %s", res.Status(), string(raw))
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Text      string `json:"text"`
					URL       string `json:"url"`
					Title     string `json:"title"`
					ArticleID int64  `json:"article_id"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if decodeErr := json.NewDecoder(res.Body).Decode(&response); decodeErr != nil {
		return nil, fmt.Errorf("decode knn response: %w", decodeErr)
	}

	hits := make([]Hit, 0, len(response.Hits.Hits))
	for _, raw := range response.Hits.Hits {
		hits = append(hits, Hit{
			Text:      raw.Source.Text,
			URL:       raw.Source.URL,
			Title:     raw.Source.Title,
			ArticleID: raw.Source.ArticleID,
			Score:     raw.Score,
		})
	}

	return hits, nil
}
