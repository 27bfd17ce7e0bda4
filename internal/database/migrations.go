package database

import (
	"context"
	"fmt"
)

// schemaStatements are executed in order at startup. Every statement is
// idempotent so repeated startups against an existing database are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS articles (
		id BIGSERIAL PRIMARY KEY,
		url TEXT NOT NULL,
		url_hash VARCHAR(64) NOT NULL UNIQUE,
		content_hash VARCHAR(64) NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		published_at TIMESTAMPTZ,
		vector_indexed BOOLEAN NOT NULL DEFAULT FALSE,
		vector_indexed_at TIMESTAMPTZ,
		summarized BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_content_hash ON articles (content_hash)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_vector_indexed ON articles (vector_indexed) WHERE NOT vector_indexed`,
	`CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles (created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ingestion_runs (
		id BIGSERIAL PRIMARY KEY,
		query TEXT NOT NULL,
		status VARCHAR(16) NOT NULL,
		articles_found INTEGER NOT NULL DEFAULT 0,
		articles_new INTEGER NOT NULL DEFAULT 0,
		articles_skipped INTEGER NOT NULL DEFAULT 0,
		vectors_added INTEGER NOT NULL DEFAULT 0,
		vectors_skipped INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT '',
		started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		completed_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ingestion_runs_started_at ON ingestion_runs (started_at DESC)`,
	`CREATE TABLE IF NOT EXISTS insights (
		id BIGSERIAL PRIMARY KEY,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		bullets TEXT NOT NULL DEFAULT '[]',
		citations TEXT NOT NULL DEFAULT '[]',
		article_ids TEXT NOT NULL DEFAULT '[]',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS hypotheses (
		id BIGSERIAL PRIMARY KEY,
		insight_id BIGINT NOT NULL REFERENCES insights(id) ON DELETE CASCADE,
		hypothesis TEXT NOT NULL,
		rationale TEXT NOT NULL DEFAULT '',
		confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hypotheses_insight_id ON hypotheses (insight_id)`,
}

// Migrate creates the schema if it does not exist.
func (c *Connection) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, execErr := c.DB.ExecContext(ctx, stmt); execErr != nil {
			return fmt.Errorf("failed to apply schema statement: %w", execErr)
		}
	}
	return nil
}
