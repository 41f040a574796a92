// Package postgres provides a PostgreSQL-backed implementation of the
// dictation history store. Utterances live in a single table with an optional
// pgvector embedding column; when an embeddings provider is attached, each
// appended utterance is embedded and [Store.Related] can recall semantically
// similar past utterances for correction context.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/voxd/voxd/internal/history"
	"github.com/voxd/voxd/pkg/provider/embeddings"
)

// Compile-time interface check.
var _ history.Store = (*Store)(nil)

// Store is the PostgreSQL-backed history store. All operations are safe for
// concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider // nil disables embeddings and Related
	log      *slog.Logger
}

// Option is a functional option for configuring a Store.
type Option func(*Store)

// WithEmbeddings attaches an embeddings provider. Appended utterances are
// embedded best-effort and [Store.Related] becomes usable.
func WithEmbeddings(p embeddings.Provider) Option {
	return func(s *Store) { s.embedder = p }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore connects to the database at dsn, registers pgvector types on every
// connection, and runs [Migrate]. embeddingDimensions must match the attached
// embeddings provider's output dimension; it is only used at first migration.
func NewStore(ctx context.Context, dsn string, embeddingDimensions int, opts ...Option) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("history store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that the embedding
	// column can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("history store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history store: migrate: %w", err)
	}

	s := &Store{pool: pool, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Append stores the utterance. When an embeddings provider is attached the
// text is embedded first; embedding failures are logged and the row is stored
// without a vector.
func (s *Store) Append(ctx context.Context, u history.Utterance) error {
	var vec any
	if s.embedder != nil {
		emb, err := s.embedder.Embed(ctx, u.Text)
		if err != nil {
			s.log.Warn("history: embedding failed, storing without vector",
				"utterance_id", u.ID, "error", err)
		} else {
			vec = pgvector.NewVector(emb)
		}
	}

	const q = `
		INSERT INTO utterances
		    (id, session_id, text, raw_text, language, provider, timestamp, duration_ns, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, q,
		u.ID,
		u.SessionID,
		u.Text,
		u.RawText,
		u.Language,
		u.Provider,
		u.Timestamp,
		u.Duration.Nanoseconds(),
		vec,
	)
	if err != nil {
		return fmt.Errorf("history store: append: %w", err)
	}
	return nil
}

// Recent returns up to n utterances, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]history.Utterance, error) {
	const q = `
		SELECT id, session_id, text, raw_text, language, provider, timestamp, duration_ns
		FROM   utterances
		ORDER  BY timestamp DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, n)
	if err != nil {
		return nil, fmt.Errorf("history store: recent: %w", err)
	}
	return collectUtterances(rows)
}

// Related returns up to k past utterances semantically closest to text,
// ordered most similar first. Requires an attached embeddings provider.
func (s *Store) Related(ctx context.Context, text string, k int) ([]history.Utterance, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("history store: related: no embeddings provider")
	}
	emb, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("history store: related: embed: %w", err)
	}

	const q = `
		SELECT id, session_id, text, raw_text, language, provider, timestamp, duration_ns
		FROM   utterances
		WHERE  embedding IS NOT NULL
		ORDER  BY embedding <=> $1
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(emb), k)
	if err != nil {
		return nil, fmt.Errorf("history store: related: %w", err)
	}
	return collectUtterances(rows)
}

// UserTerms returns the stored dictionary terms in alphabetical order.
func (s *Store) UserTerms(ctx context.Context) ([]string, error) {
	const q = `SELECT term FROM user_terms ORDER BY term`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("history store: user terms: %w", err)
	}
	terms, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var t string
		err := row.Scan(&t)
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("history store: scan terms: %w", err)
	}
	return terms, nil
}

// SaveUserTerms replaces the stored dictionary terms in one transaction.
func (s *Store) SaveUserTerms(ctx context.Context, terms []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history store: save terms: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_terms`); err != nil {
		return fmt.Errorf("history store: save terms: clear: %w", err)
	}
	for _, term := range terms {
		if _, err := tx.Exec(ctx,
			`INSERT INTO user_terms (term) VALUES ($1) ON CONFLICT DO NOTHING`, term); err != nil {
			return fmt.Errorf("history store: save terms: insert: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("history store: save terms: commit: %w", err)
	}
	return nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// collectUtterances scans pgx rows into a slice of Utterance values.
func collectUtterances(rows pgx.Rows) ([]history.Utterance, error) {
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Utterance, error) {
		var (
			u          history.Utterance
			durationNS int64
		)
		if err := row.Scan(
			&u.ID,
			&u.SessionID,
			&u.Text,
			&u.RawText,
			&u.Language,
			&u.Provider,
			&u.Timestamp,
			&durationNS,
		); err != nil {
			return history.Utterance{}, err
		}
		u.Duration = time.Duration(durationNS)
		return u, nil
	})
	if err != nil {
		return nil, fmt.Errorf("history store: scan rows: %w", err)
	}
	if out == nil {
		out = []history.Utterance{}
	}
	return out, nil
}
