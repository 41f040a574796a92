package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlUserTerms = `
CREATE TABLE IF NOT EXISTS user_terms (
    term      TEXT         PRIMARY KEY,
    added_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);
`

// ddlUtterances returns the utterances DDL with the embedding dimension
// substituted. The vector dimension is baked into the column type at schema
// creation time.
func ddlUtterances(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS utterances (
    id           TEXT         PRIMARY KEY,
    session_id   TEXT         NOT NULL,
    text         TEXT         NOT NULL,
    raw_text     TEXT         NOT NULL DEFAULT '',
    language     TEXT         NOT NULL DEFAULT '',
    provider     TEXT         NOT NULL DEFAULT '',
    timestamp    TIMESTAMPTZ  NOT NULL DEFAULT now(),
    duration_ns  BIGINT       NOT NULL DEFAULT 0,
    embedding    vector(%d)
);

CREATE INDEX IF NOT EXISTS idx_utterances_timestamp
    ON utterances (timestamp);

CREATE INDEX IF NOT EXISTS idx_utterances_session_id
    ON utterances (session_id);

CREATE INDEX IF NOT EXISTS idx_utterances_embedding
    ON utterances USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures all required tables and extensions exist. It is
// idempotent and safe to call on every application start.
//
// embeddingDimensions must match the embedding model configured for your
// deployment (e.g., 1536 for OpenAI text-embedding-3-small). Changing this
// value after the first migration requires a manual schema update.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	statements := []string{
		ddlUtterances(embeddingDimensions),
		ddlUserTerms,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("history migrate: %w", err)
		}
	}
	return nil
}
