// Package postgres provides a PostgreSQL-backed implementation of
// records.Store using the pgvector extension for approximate
// nearest-neighbour search.
//
// The pgvector extension must be available in the target database; Migrate
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/socialsync/pkg/provider/embeddings"
	"github.com/MrWong99/socialsync/pkg/records"
)

var _ records.Store = (*Store)(nil)

// Store implements records.Store on top of a blocks table with an HNSW
// cosine index. Queries are embedded with the configured embeddings provider
// before ranking.
//
// All methods are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
}

// NewStore establishes a connection pool to the PostgreSQL database at dsn,
// registers pgvector types on every connection, and runs Migrate to ensure
// the blocks table and vector extension exist.
//
// The embedding dimension is taken from embedder.Dimensions() and baked into
// the vector column type at schema creation time. Changing the embedding
// model after the first migration requires a manual schema change.
func NewStore(ctx context.Context, dsn string, embedder embeddings.Provider) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("records store: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so that vector columns
	// can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("records store: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("records store: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embedder.Dimensions()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("records store: migrate: %w", err)
	}

	return &Store{pool: pool, embedder: embedder}, nil
}

// Pool exposes the underlying connection pool so other stores can share it.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// ddlBlocks returns the blocks DDL with the embedding dimension substituted.
func ddlBlocks(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS blocks (
    id         TEXT         PRIMARY KEY,
    kind       TEXT         NOT NULL,
    content    TEXT         NOT NULL,
    embedding  vector(%d),
    indexed_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_blocks_kind
    ON blocks (kind);

CREATE INDEX IF NOT EXISTS idx_blocks_embedding
    ON blocks USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates or ensures the blocks table and vector extension exist. It
// is idempotent and safe to call on every application start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddlBlocks(embeddingDimensions)); err != nil {
		return fmt.Errorf("records migrate: %w", err)
	}
	return nil
}

// IndexBlock implements records.Store. It embeds the block content and
// upserts it; a block with the same ID is completely replaced.
func (s *Store) IndexBlock(ctx context.Context, block records.Block) error {
	vec, err := s.embedder.Embed(ctx, block.Content)
	if err != nil {
		return fmt.Errorf("records store: index block: embed: %w", err)
	}

	const q = `
		INSERT INTO blocks (id, kind, content, embedding, indexed_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
		    kind       = EXCLUDED.kind,
		    content    = EXCLUDED.content,
		    embedding  = EXCLUDED.embedding,
		    indexed_at = EXCLUDED.indexed_at`

	if _, err := s.pool.Exec(ctx, q, block.ID, string(block.Kind), block.Content, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("records store: index block: %w", err)
	}
	return nil
}

// Search implements records.Store. The query is embedded and the k closest
// blocks of the given kind are returned by ascending cosine distance (most
// similar first).
func (s *Store) Search(ctx context.Context, query string, k int, kind records.Kind) ([]string, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("records store: search: embed query: %w", err)
	}

	const q = `
		SELECT content
		FROM   blocks
		WHERE  kind = $2
		ORDER  BY embedding <=> $1
		LIMIT  $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vec), string(kind), k)
	if err != nil {
		return nil, fmt.Errorf("records store: search: %w", err)
	}

	results, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("records store: search: collect rows: %w", err)
	}
	return results, nil
}

// Close releases all connections held by the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable. Used by health checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
