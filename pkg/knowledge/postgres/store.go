package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/plotwright/plotwright/pkg/knowledge"
	"github.com/plotwright/plotwright/pkg/provider/embeddings"
)

// Store is the PostgreSQL-backed knowledge store for one series.
// All operations are safe for concurrent use.
type Store struct {
	pool     *pgxpool.Pool
	embedder embeddings.Provider
	table    string
}

var _ knowledge.Store = (*Store)(nil)

// NewStore creates a Store for the given series, establishes a connection
// pool to the PostgreSQL database at dsn, registers pgvector types on every
// connection, and runs [Migrate] to ensure the series table exists.
//
// Every document written through Add is embedded with embedder, and Query
// embeds its text with the same provider, so one Store must always be paired
// with one embedding model.
func NewStore(ctx context.Context, dsn, seriesName string, embedder embeddings.Provider) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("knowledge postgres: embedder must not be nil")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so vector columns can
	// be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("knowledge postgres: ping: %w", err)
	}

	table := knowledge.SanitizeSeriesName(seriesName) + "_knowledge"
	if err := Migrate(ctx, pool, table, embedder.Dimensions()); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool, embedder: embedder, table: table}, nil
}

// Close releases all connections held by the underlying pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Add implements knowledge.Store. An existing record with the same ID is
// replaced in full; there is no partial-field patch.
func (s *Store) Add(ctx context.Context, col knowledge.Collection, rec knowledge.Record) error {
	vec, err := s.embedder.Embed(ctx, rec.Document)
	if err != nil {
		return fmt.Errorf("knowledge postgres: embed document %q: %w", rec.ID, err)
	}

	metaJSON, err := json.Marshal(knowledge.StripNullMetadata(rec.Metadata))
	if err != nil {
		return fmt.Errorf("knowledge postgres: marshal metadata for %q: %w", rec.ID, err)
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (collection, id, document, metadata, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, id) DO UPDATE
		SET document = EXCLUDED.document,
		    metadata = EXCLUDED.metadata,
		    embedding = EXCLUDED.embedding,
		    updated_at = now()`, s.table)

	if _, err := s.pool.Exec(ctx, q, string(col), rec.ID, rec.Document, metaJSON, pgvector.NewVector(vec)); err != nil {
		return fmt.Errorf("knowledge postgres: add %q to %s: %w", rec.ID, col, err)
	}
	return nil
}

// Get implements knowledge.Store.
func (s *Store) Get(ctx context.Context, col knowledge.Collection, id string) (*knowledge.Record, error) {
	q := fmt.Sprintf(`SELECT id, document, metadata FROM %s WHERE collection = $1 AND id = $2`, s.table)

	var rec knowledge.Record
	var metaJSON []byte
	err := s.pool.QueryRow(ctx, q, string(col), id).Scan(&rec.ID, &rec.Document, &metaJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, knowledge.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: get %q from %s: %w", id, col, err)
	}
	if err := json.Unmarshal(metaJSON, &rec.Metadata); err != nil {
		return nil, fmt.Errorf("knowledge postgres: decode metadata for %q: %w", id, err)
	}
	return &rec, nil
}

// Query implements knowledge.Store. Ranking uses cosine distance over the
// stored embeddings; the filter is applied as JSONB containment.
func (s *Store) Query(ctx context.Context, col knowledge.Collection, text string, n int, filter map[string]any) ([]knowledge.QueryResult, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: embed query: %w", err)
	}
	if n <= 0 {
		n = 10
	}

	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: marshal filter: %w", err)
	}

	q := fmt.Sprintf(`
		SELECT id, document, metadata, embedding <=> $1 AS distance
		FROM %s
		WHERE collection = $2
		  AND ($3::jsonb = '{}'::jsonb OR metadata @> $3::jsonb)
		ORDER BY embedding <=> $1
		LIMIT $4`, s.table)

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(vec), string(col), filterJSON, n)
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: query %s: %w", col, err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (knowledge.QueryResult, error) {
		var r knowledge.QueryResult
		var metaJSON []byte
		if err := row.Scan(&r.ID, &r.Document, &metaJSON, &r.Distance); err != nil {
			return r, err
		}
		if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
			return r, err
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: collect query results: %w", err)
	}
	return results, nil
}

// List implements knowledge.Store.
func (s *Store) List(ctx context.Context, col knowledge.Collection, filter map[string]any) ([]knowledge.Record, error) {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: marshal filter: %w", err)
	}

	q := fmt.Sprintf(`
		SELECT id, document, metadata
		FROM %s
		WHERE collection = $1
		  AND ($2::jsonb = '{}'::jsonb OR metadata @> $2::jsonb)
		ORDER BY id`, s.table)

	rows, err := s.pool.Query(ctx, q, string(col), filterJSON)
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: list %s: %w", col, err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (knowledge.Record, error) {
		var r knowledge.Record
		var metaJSON []byte
		if err := row.Scan(&r.ID, &r.Document, &metaJSON); err != nil {
			return r, err
		}
		if err := json.Unmarshal(metaJSON, &r.Metadata); err != nil {
			return r, err
		}
		return r, nil
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge postgres: collect list results: %w", err)
	}
	return records, nil
}

// Delete implements knowledge.Store.
func (s *Store) Delete(ctx context.Context, col knowledge.Collection, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE collection = $1 AND id = ANY($2)`, s.table)
	if _, err := s.pool.Exec(ctx, q, string(col), ids); err != nil {
		return fmt.Errorf("knowledge postgres: delete from %s: %w", col, err)
	}
	return nil
}

// Count implements knowledge.Store.
func (s *Store) Count(ctx context.Context, col knowledge.Collection) (int, error) {
	q := fmt.Sprintf(`SELECT count(*) FROM %s WHERE collection = $1`, s.table)
	var n int
	if err := s.pool.QueryRow(ctx, q, string(col)).Scan(&n); err != nil {
		return 0, fmt.Errorf("knowledge postgres: count %s: %w", col, err)
	}
	return n, nil
}

// Reset implements knowledge.Store. It removes every record in every
// collection of this series but keeps the table.
func (s *Store) Reset(ctx context.Context) error {
	q := fmt.Sprintf(`DELETE FROM %s`, s.table)
	if _, err := s.pool.Exec(ctx, q); err != nil {
		return fmt.Errorf("knowledge postgres: reset: %w", err)
	}
	return nil
}
