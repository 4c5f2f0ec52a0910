// Package postgres provides a PostgreSQL-backed implementation of
// knowledge.Store using pgvector for similarity search.
//
// One series maps to one table, named from the sanitized series name, with a
// collection discriminator column. The pgvector extension must be available
// in the target database; [Migrate] installs it automatically via CREATE
// EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, "Breaking Bad", embedder)
//	if err != nil { … }
//	defer store.Close()
//
//	err = store.Add(ctx, knowledge.Characters, rec)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlTemplate = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS %[1]s (
    collection  TEXT         NOT NULL,
    id          TEXT         NOT NULL,
    document    TEXT         NOT NULL,
    metadata    JSONB        NOT NULL DEFAULT '{}',
    embedding   vector(%[2]d),
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_%[1]s_collection
    ON %[1]s (collection);

CREATE INDEX IF NOT EXISTS idx_%[1]s_metadata
    ON %[1]s USING GIN (metadata);
`

// Migrate ensures the pgvector extension and the series table exist.
// embeddingDimensions must match the output dimension of the embedding model
// used by the store; changing it after the first migration requires a manual
// schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, table string, embeddingDimensions int) error {
	ddl := fmt.Sprintf(ddlTemplate, table, embeddingDimensions)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("knowledge postgres: migrate: %w", err)
	}
	return nil
}
