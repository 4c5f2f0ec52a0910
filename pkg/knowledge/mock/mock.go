// Package mock provides an in-memory knowledge.Store for tests.
//
// Query ranks records by lexical term overlap with the query text instead of
// vector similarity, which keeps results deterministic without an embedding
// backend. All operations are safe for concurrent use.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/plotwright/plotwright/pkg/knowledge"
)

// Store is an in-memory implementation of knowledge.Store.
type Store struct {
	mu   sync.RWMutex
	data map[knowledge.Collection]map[string]knowledge.Record

	// AddHook, if non-nil, runs before every Add and may reject the write by
	// returning an error. Used to test per-entity write-failure handling.
	AddHook func(col knowledge.Collection, rec knowledge.Record) error

	// QueryErr, if non-nil, is returned by every Query call.
	QueryErr error
}

var _ knowledge.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{data: map[knowledge.Collection]map[string]knowledge.Record{}}
}

// Add implements knowledge.Store.
func (s *Store) Add(ctx context.Context, col knowledge.Collection, rec knowledge.Record) error {
	if hook := s.AddHook; hook != nil {
		if err := hook(col, rec); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[col] == nil {
		s.data[col] = map[string]knowledge.Record{}
	}
	rec.Metadata = knowledge.StripNullMetadata(rec.Metadata)
	s.data[col][rec.ID] = rec
	return nil
}

// Get implements knowledge.Store.
func (s *Store) Get(ctx context.Context, col knowledge.Collection, id string) (*knowledge.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.data[col][id]
	if !ok {
		return nil, knowledge.ErrNotFound
	}
	cp := rec
	return &cp, nil
}

// Query implements knowledge.Store. Records are ranked by the fraction of
// query terms absent from the document, so distance 0 means every term
// matched.
func (s *Store) Query(ctx context.Context, col knowledge.Collection, text string, n int, filter map[string]any) ([]knowledge.QueryResult, error) {
	if s.QueryErr != nil {
		return nil, s.QueryErr
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := strings.Fields(strings.ToLower(text))
	var results []knowledge.QueryResult
	for _, rec := range s.data[col] {
		if !matchesFilter(rec.Metadata, filter) {
			continue
		}
		results = append(results, knowledge.QueryResult{
			Record:   rec,
			Distance: termDistance(terms, rec.Document),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ID < results[j].ID
	})
	if n > 0 && len(results) > n {
		results = results[:n]
	}
	return results, nil
}

// List implements knowledge.Store.
func (s *Store) List(ctx context.Context, col knowledge.Collection, filter map[string]any) ([]knowledge.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []knowledge.Record
	for _, rec := range s.data[col] {
		if matchesFilter(rec.Metadata, filter) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Delete implements knowledge.Store.
func (s *Store) Delete(ctx context.Context, col knowledge.Collection, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.data[col], id)
	}
	return nil
}

// Count implements knowledge.Store.
func (s *Store) Count(ctx context.Context, col knowledge.Collection) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[col]), nil
}

// Reset implements knowledge.Store.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[knowledge.Collection]map[string]knowledge.Record{}
	return nil
}

// matchesFilter reports whether metadata contains every filter key with an
// equal value.
func matchesFilter(metadata, filter map[string]any) bool {
	for k, want := range filter {
		if got, ok := metadata[k]; !ok || got != want {
			return false
		}
	}
	return true
}

// termDistance is the fraction of terms not found in doc.
func termDistance(terms []string, doc string) float64 {
	if len(terms) == 0 {
		return 1
	}
	lower := strings.ToLower(doc)
	missing := 0
	for _, t := range terms {
		if !strings.Contains(lower, t) {
			missing++
		}
	}
	return float64(missing) / float64(len(terms))
}
