// Package knowledge defines the vector-searchable store boundary the
// pipeline persists into.
//
// A store holds five independent collections (episodes, scenes, characters,
// relationships, plot events), each a set of documents with flat metadata,
// addressable by ID and searchable by natural-language similarity. The
// pipeline treats the store as a collaborator: writes are best-effort and
// per-entity, never transactional across collections.
//
// Implementations must be safe for concurrent use.
package knowledge

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Collection names one of the store's five entity collections.
type Collection string

// The five collections every store carries.
const (
	Episodes      Collection = "episodes"
	Scenes        Collection = "scenes"
	Characters    Collection = "characters"
	Relationships Collection = "relationships"
	PlotEvents    Collection = "plot_events"
)

// AllCollections returns the five collections in a stable order.
func AllCollections() []Collection {
	return []Collection{Episodes, Scenes, Characters, Relationships, PlotEvents}
}

// ErrNotFound is returned by Get when no record has the requested ID.
var ErrNotFound = errors.New("knowledge: record not found")

// Record is one stored document with its metadata.
type Record struct {
	// ID is the record's identity within its collection.
	ID string

	// Document is the searchable text body.
	Document string

	// Metadata holds flat key/value attributes used for filtering. Values
	// are JSON-representable scalars or lists.
	Metadata map[string]any
}

// QueryResult is one ranked match from Query.
type QueryResult struct {
	Record

	// Distance is the similarity distance to the query text. Smaller is
	// closer; the scale is implementation-defined but consistent within one
	// result set.
	Distance float64
}

// Store is the abstraction over the persistent vector store.
type Store interface {
	// Add writes a record into the collection, replacing any existing record
	// with the same ID. Nil-valued metadata keys are stripped before
	// writing.
	Add(ctx context.Context, col Collection, rec Record) error

	// Get returns the record with the given ID, or ErrNotFound.
	Get(ctx context.Context, col Collection, id string) (*Record, error)

	// Query returns up to n records ranked by similarity to text. A non-nil
	// filter restricts results to records whose metadata contains every
	// filter key with an equal value.
	Query(ctx context.Context, col Collection, text string, n int, filter map[string]any) ([]QueryResult, error)

	// List returns every record in the collection matching the filter, in
	// no guaranteed order. A nil filter returns the whole collection.
	List(ctx context.Context, col Collection, filter map[string]any) ([]Record, error)

	// Delete removes the records with the given IDs. Missing IDs are
	// ignored.
	Delete(ctx context.Context, col Collection, ids ...string) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context, col Collection) (int, error)

	// Reset deletes every record in every collection.
	Reset(ctx context.Context) error
}

// StripNullMetadata returns a copy of metadata without nil-valued keys. The
// store boundary never persists explicit nulls; absence and null are the
// same thing to every reader.
func StripNullMetadata(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata))
	for k, v := range metadata {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

var seriesNameRe = regexp.MustCompile(`[^a-z0-9_]+`)

// SanitizeSeriesName normalizes a series name into the prefix that keys a
// series' collections: lowercased, spaces to underscores, everything outside
// [a-z0-9_] dropped.
func SanitizeSeriesName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	s = seriesNameRe.ReplaceAllString(s, "")
	s = strings.Trim(s, "_")
	if s == "" {
		return "default_series"
	}
	return s
}
