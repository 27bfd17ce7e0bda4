package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/novaiq/backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// articleColumns is the scan order shared by every article query.
const articleColumns = `id, url, url_hash, content_hash, title, content, source,
		published_at, vector_indexed, vector_indexed_at, summarized, created_at, updated_at`

// Repository handles database operations for articles, ingestion runs,
// insights and hypotheses.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new repository with the given database connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// FindExistingHashes returns which of the given url and content hashes are
// already stored. Both sets are checked in a single query.
func (r *Repository) FindExistingHashes(ctx context.Context, urlHashes, contentHashes []string) (*domain.ExistingHashes, error) {
	existing := &domain.ExistingHashes{
		URLHashes:     make(map[string]bool),
		ContentHashes: make(map[string]bool),
	}
	if len(urlHashes) == 0 && len(contentHashes) == 0 {
		return existing, nil
	}

	query := `
		SELECT url_hash, content_hash
		FROM articles
		WHERE url_hash = ANY($1) OR content_hash = ANY($2)
	`

	rows, queryErr := r.db.QueryContext(ctx, query, pq.Array(urlHashes), pq.Array(contentHashes))
	if queryErr != nil {
		return nil, fmt.Errorf("query existing hashes: %w", queryErr)
	}
	defer rows.Close()

	for rows.Next() {
		var urlHash, contentHash string
		if scanErr := rows.Scan(&urlHash, &contentHash); scanErr != nil {
			return nil, fmt.Errorf("scan hash row: %w", scanErr)
		}
		existing.URLHashes[urlHash] = true
		existing.ContentHashes[contentHash] = true
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("hash rows: %w", rowsErr)
	}

	return existing, nil
}

// InsertArticles persists the given candidates in a single transaction and
// returns the stored rows. Any error, including a url_hash unique violation
// from a concurrent writer, rolls back the whole batch so no partial state is
// left behind.
func (r *Repository) InsertArticles(ctx context.Context, candidates []domain.CanonicalArticle) ([]domain.Article, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	tx, beginErr := r.db.BeginTx(ctx, nil)
	if beginErr != nil {
		return nil, fmt.Errorf("begin insert tx: %w", beginErr)
	}

	query := `
		INSERT INTO articles (url, url_hash, content_hash, title, content, source, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + articleColumns

	inserted := make([]domain.Article, 0, len(candidates))
	for i := range candidates {
		candidate := &candidates[i]

		var article domain.Article
		scanErr := scanArticleRow(tx.QueryRowContext(ctx, query,
			candidate.URL,
			candidate.URLHash,
			candidate.ContentHash,
			candidate.Title,
			candidate.Content,
			candidate.Source,
			candidate.PublishedAt,
		), &article)

		if scanErr != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("insert article: %w", scanErr)
		}

		inserted = append(inserted, article)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return nil, fmt.Errorf("commit insert tx: %w", commitErr)
	}

	return inserted, nil
}

// MarkVectorIndexed flags the given articles as indexed in the vector store.
func (r *Repository) MarkVectorIndexed(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE articles
		SET vector_indexed = TRUE, vector_indexed_at = NOW(), updated_at = NOW()
		WHERE id = ANY($1)
	`

	if _, execErr := r.db.ExecContext(ctx, query, pq.Array(ids)); execErr != nil {
		return fmt.Errorf("mark vector indexed: %w", execErr)
	}

	return nil
}

// MarkSummarized flags the given articles as already used for insight
// generation.
func (r *Repository) MarkSummarized(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE articles
		SET summarized = TRUE, updated_at = NOW()
		WHERE id = ANY($1)
	`

	if _, execErr := r.db.ExecContext(ctx, query, pq.Array(ids)); execErr != nil {
		return fmt.Errorf("mark summarized: %w", execErr)
	}

	return nil
}

// ListUnindexed returns articles not yet present in the vector store, oldest
// first, up to limit.
func (r *Repository) ListUnindexed(ctx context.Context, limit int) ([]domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE NOT vector_indexed
		ORDER BY id
		LIMIT $1
	`

	return r.queryArticles(ctx, query, limit)
}

// ListUnsummarized returns articles not yet used for insight generation,
// newest first, up to limit.
func (r *Repository) ListUnsummarized(ctx context.Context, limit int) ([]domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE NOT summarized
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	return r.queryArticles(ctx, query, limit)
}

// CountArticles returns the total number of stored articles.
func (r *Repository) CountArticles(ctx context.Context) (int64, error) {
	var total int64
	scanErr := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&total)
	if scanErr != nil {
		return 0, fmt.Errorf("count articles: %w", scanErr)
	}
	return total, nil
}

// ListArticles returns stored articles, newest first.
func (r *Repository) ListArticles(ctx context.Context, limit, offset int) ([]domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	return r.queryArticles(ctx, query, limit, offset)
}

// GetArticle returns one article by id, or ErrNotFound.
func (r *Repository) GetArticle(ctx context.Context, id int64) (*domain.Article, error) {
	query := `
		SELECT ` + articleColumns + `
		FROM articles
		WHERE id = $1
	`

	var article domain.Article
	scanErr := scanArticleRow(r.db.QueryRowContext(ctx, query, id), &article)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if scanErr != nil {
		return nil, fmt.Errorf("get article: %w", scanErr)
	}

	return &article, nil
}

// CreateRun inserts a new ingestion run row and sets run.ID.
func (r *Repository) CreateRun(ctx context.Context, run *domain.IngestionRun) error {
	query := `
		INSERT INTO ingestion_runs (query, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	scanErr := r.db.QueryRowContext(ctx, query, run.Query, string(run.Status), run.StartedAt).Scan(&run.ID)
	if scanErr != nil {
		return fmt.Errorf("create run: %w", scanErr)
	}

	return nil
}

// UpdateRun persists a run's current counters and status. The pipeline calls
// this after every step so progress survives a crash mid-run.
func (r *Repository) UpdateRun(ctx context.Context, run *domain.IngestionRun) error {
	query := `
		UPDATE ingestion_runs
		SET status = $1,
			articles_found = $2,
			articles_new = $3,
			articles_skipped = $4,
			vectors_added = $5,
			vectors_skipped = $6,
			error_message = $7,
			completed_at = $8
		WHERE id = $9
	`

	_, execErr := r.db.ExecContext(ctx, query,
		string(run.Status),
		run.ArticlesFound,
		run.ArticlesNew,
		run.ArticlesSkipped,
		run.VectorsAdded,
		run.VectorsSkipped,
		run.ErrorMessage,
		run.CompletedAt,
		run.ID,
	)
	if execErr != nil {
		return fmt.Errorf("update run: %w", execErr)
	}

	return nil
}

// GetRun returns one ingestion run by id, or ErrNotFound.
func (r *Repository) GetRun(ctx context.Context, id int64) (*domain.IngestionRun, error) {
	query := `
		SELECT id, query, status, articles_found, articles_new, articles_skipped,
			vectors_added, vectors_skipped, error_message, started_at, completed_at
		FROM ingestion_runs
		WHERE id = $1
	`

	var run domain.IngestionRun
	var status string
	scanErr := r.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.Query,
		&status,
		&run.ArticlesFound,
		&run.ArticlesNew,
		&run.ArticlesSkipped,
		&run.VectorsAdded,
		&run.VectorsSkipped,
		&run.ErrorMessage,
		&run.StartedAt,
		&run.CompletedAt,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if scanErr != nil {
		return nil, fmt.Errorf("get run: %w", scanErr)
	}

	run.Status = domain.RunStatus(status)
	return &run, nil
}

// ListRuns returns ingestion runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]domain.IngestionRun, error) {
	query := `
		SELECT id, query, status, articles_found, articles_new, articles_skipped,
			vectors_added, vectors_skipped, error_message, started_at, completed_at
		FROM ingestion_runs
		ORDER BY started_at DESC, id DESC
		LIMIT $1
	`

	rows, queryErr := r.db.QueryContext(ctx, query, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("query runs: %w", queryErr)
	}
	defer rows.Close()

	var runs []domain.IngestionRun
	for rows.Next() {
		var run domain.IngestionRun
		var status string
		if scanErr := rows.Scan(
			&run.ID,
			&run.Query,
			&status,
			&run.ArticlesFound,
			&run.ArticlesNew,
			&run.ArticlesSkipped,
			&run.VectorsAdded,
			&run.VectorsSkipped,
			&run.ErrorMessage,
			&run.StartedAt,
			&run.CompletedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan run row: %w", scanErr)
		}
		run.Status = domain.RunStatus(status)
		runs = append(runs, run)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("run rows: %w", rowsErr)
	}

	return runs, nil
}

// DeleteRunsBefore removes terminal runs that started before cutoff and
// returns how many rows were deleted. Non-terminal runs are kept regardless
// of age.
func (r *Repository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM ingestion_runs
		WHERE started_at < $1 AND status IN ('completed', 'failed')
	`

	result, execErr := r.db.ExecContext(ctx, query, cutoff)
	if execErr != nil {
		return 0, fmt.Errorf("delete runs: %w", execErr)
	}

	deleted, affectedErr := result.RowsAffected()
	if affectedErr != nil {
		return 0, fmt.Errorf("delete runs affected: %w", affectedErr)
	}

	return deleted, nil
}

// CreateInsight inserts a new insight and sets insight.ID.
func (r *Repository) CreateInsight(ctx context.Context, insight *domain.Insight) error {
	bullets, bulletsErr := json.Marshal(insight.Bullets)
	if bulletsErr != nil {
		return fmt.Errorf("marshal bullets: %w", bulletsErr)
	}
	citations, citationsErr := json.Marshal(insight.Citations)
	if citationsErr != nil {
		return fmt.Errorf("marshal citations: %w", citationsErr)
	}
	articleIDs, idsErr := json.Marshal(insight.ArticleIDs)
	if idsErr != nil {
		return fmt.Errorf("marshal article ids: %w", idsErr)
	}

	query := `
		INSERT INTO insights (title, summary, bullets, citations, article_ids, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	scanErr := r.db.QueryRowContext(ctx, query,
		insight.Title,
		insight.Summary,
		string(bullets),
		string(citations),
		string(articleIDs),
		insight.Confidence,
	).Scan(&insight.ID, &insight.CreatedAt, &insight.UpdatedAt)
	if scanErr != nil {
		return fmt.Errorf("create insight: %w", scanErr)
	}

	return nil
}

// ListInsights returns insights, newest first.
func (r *Repository) ListInsights(ctx context.Context, limit int) ([]domain.Insight, error) {
	query := `
		SELECT id, title, summary, bullets, citations, article_ids, confidence, created_at, updated_at
		FROM insights
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, queryErr := r.db.QueryContext(ctx, query, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("query insights: %w", queryErr)
	}
	defer rows.Close()

	var insights []domain.Insight
	for rows.Next() {
		insight, scanErr := scanInsight(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		insights = append(insights, *insight)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("insight rows: %w", rowsErr)
	}

	return insights, nil
}

// GetInsight returns one insight by id, or ErrNotFound.
func (r *Repository) GetInsight(ctx context.Context, id int64) (*domain.Insight, error) {
	query := `
		SELECT id, title, summary, bullets, citations, article_ids, confidence, created_at, updated_at
		FROM insights
		WHERE id = $1
	`

	rows, queryErr := r.db.QueryContext(ctx, query, id)
	if queryErr != nil {
		return nil, fmt.Errorf("query insight: %w", queryErr)
	}
	defer rows.Close()

	if !rows.Next() {
		if rowsErr := rows.Err(); rowsErr != nil {
			return nil, fmt.Errorf("insight rows: %w", rowsErr)
		}
		return nil, ErrNotFound
	}

	return scanInsight(rows)
}

// CreateHypothesis inserts a new hypothesis and sets hypothesis.ID.
func (r *Repository) CreateHypothesis(ctx context.Context, hypothesis *domain.Hypothesis) error {
	query := `
		INSERT INTO hypotheses (insight_id, hypothesis, rationale, confidence)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	scanErr := r.db.QueryRowContext(ctx, query,
		hypothesis.InsightID,
		hypothesis.Hypothesis,
		hypothesis.Rationale,
		hypothesis.Confidence,
	).Scan(&hypothesis.ID, &hypothesis.CreatedAt)
	if scanErr != nil {
		return fmt.Errorf("create hypothesis: %w", scanErr)
	}

	return nil
}

// GetHypothesis returns one hypothesis by id, or ErrNotFound.
func (r *Repository) GetHypothesis(ctx context.Context, id int64) (*domain.Hypothesis, error) {
	query := `
		SELECT id, insight_id, hypothesis, rationale, confidence, created_at
		FROM hypotheses
		WHERE id = $1
	`

	var h domain.Hypothesis
	scanErr := r.db.QueryRowContext(ctx, query, id).Scan(
		&h.ID,
		&h.InsightID,
		&h.Hypothesis,
		&h.Rationale,
		&h.Confidence,
		&h.CreatedAt,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if scanErr != nil {
		return nil, fmt.Errorf("get hypothesis: %w", scanErr)
	}

	return &h, nil
}

// HasHypotheses reports whether an insight already has derived hypotheses.
func (r *Repository) HasHypotheses(ctx context.Context, insightID int64) (bool, error) {
	var exists bool
	scanErr := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM hypotheses WHERE insight_id = $1)`, insightID,
	).Scan(&exists)
	if scanErr != nil {
		return false, fmt.Errorf("check hypotheses: %w", scanErr)
	}
	return exists, nil
}

// ListHypotheses returns hypotheses, newest first.
func (r *Repository) ListHypotheses(ctx context.Context, limit int) ([]domain.Hypothesis, error) {
	query := `
		SELECT id, insight_id, hypothesis, rationale, confidence, created_at
		FROM hypotheses
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, queryErr := r.db.QueryContext(ctx, query, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("query hypotheses: %w", queryErr)
	}
	defer rows.Close()

	var hypotheses []domain.Hypothesis
	for rows.Next() {
		var h domain.Hypothesis
		if scanErr := rows.Scan(
			&h.ID,
			&h.InsightID,
			&h.Hypothesis,
			&h.Rationale,
			&h.Confidence,
			&h.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("scan hypothesis row: %w", scanErr)
		}
		hypotheses = append(hypotheses, h)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("hypothesis rows: %w", rowsErr)
	}

	return hypotheses, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticleRow(row rowScanner, article *domain.Article) error {
	return row.Scan(
		&article.ID,
		&article.URL,
		&article.URLHash,
		&article.ContentHash,
		&article.Title,
		&article.Content,
		&article.Source,
		&article.PublishedAt,
		&article.VectorIndexed,
		&article.VectorIndexedAt,
		&article.Summarized,
		&article.CreatedAt,
		&article.UpdatedAt,
	)
}

func (r *Repository) queryArticles(ctx context.Context, query string, args ...any) ([]domain.Article, error) {
	rows, queryErr := r.db.QueryContext(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("query articles: %w", queryErr)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var article domain.Article
		if scanErr := scanArticleRow(rows, &article); scanErr != nil {
			return nil, fmt.Errorf("scan article row: %w", scanErr)
		}
		articles = append(articles, article)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("article rows: %w", rowsErr)
	}

	return articles, nil
}

func scanInsight(rows *sql.Rows) (*domain.Insight, error) {
	var insight domain.Insight
	var bullets, citations, articleIDs string

	if scanErr := rows.Scan(
		&insight.ID,
		&insight.Title,
		&insight.Summary,
		&bullets,
		&citations,
		&articleIDs,
		&insight.Confidence,
		&insight.CreatedAt,
		&insight.UpdatedAt,
	); scanErr != nil {
		return nil, fmt.Errorf("scan insight row: %w", scanErr)
	}

	if unmarshalErr := json.Unmarshal([]byte(bullets), &insight.Bullets); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal bullets: %w", unmarshalErr)
	}
	if unmarshalErr := json.Unmarshal([]byte(citations), &insight.Citations); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal citations: %w", unmarshalErr)
	}
	if unmarshalErr := json.Unmarshal([]byte(articleIDs), &insight.ArticleIDs); unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal article ids: %w", unmarshalErr)
	}

	return &insight, nil
}
