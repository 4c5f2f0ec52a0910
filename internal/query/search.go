package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/plotwright/plotwright/internal/pipeline"
	"github.com/plotwright/plotwright/pkg/knowledge"
)

// SearchResults holds one cross-collection search: the top matches from each
// of the five collections for the same query text.
type SearchResults struct {
	Query   string
	Matches map[knowledge.Collection][]knowledge.QueryResult
}

// Search runs the query against every collection and returns up to n matches
// per collection. A collection that fails to search is logged and reported
// empty rather than failing the whole search.
func (q *Interface) Search(ctx context.Context, text string, n int) (*SearchResults, error) {
	out := &SearchResults{
		Query:   text,
		Matches: make(map[knowledge.Collection][]knowledge.QueryResult, 5),
	}
	for _, col := range knowledge.AllCollections() {
		results, err := q.store.Query(ctx, col, text, n, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			q.log.Warn("collection search failed", "collection", col, "error", err)
			continue
		}
		out.Matches[col] = results
	}
	return out, nil
}

// GraphEdge is one edge of the character relationship graph.
type GraphEdge struct {
	Other      string
	Type       string
	Importance float64
}

// RelationshipGraph builds the undirected character graph: every character
// maps to its neighbors with the relationship type and importance as edge
// attributes. Neighbor lists are sorted by importance, then name.
func (q *Interface) RelationshipGraph(ctx context.Context) (map[string][]GraphEdge, error) {
	recs, err := q.store.List(ctx, knowledge.Relationships, nil)
	if err != nil {
		return nil, fmt.Errorf("query: list relationships: %w", err)
	}

	graph := make(map[string][]GraphEdge)
	for i := range recs {
		rel, err := pipeline.DecodeRelationship(&recs[i])
		if err != nil {
			q.log.Warn("skipping undecodable relationship", "id", recs[i].ID, "error", err)
			continue
		}
		if rel.Character1 == "" || rel.Character2 == "" {
			continue
		}
		graph[rel.Character1] = append(graph[rel.Character1], GraphEdge{
			Other:      rel.Character2,
			Type:       string(rel.Type),
			Importance: rel.ImportanceScore,
		})
		graph[rel.Character2] = append(graph[rel.Character2], GraphEdge{
			Other:      rel.Character1,
			Type:       string(rel.Type),
			Importance: rel.ImportanceScore,
		})
	}
	for _, edges := range graph {
		sort.SliceStable(edges, func(i, j int) bool {
			if edges[i].Importance != edges[j].Importance {
				return edges[i].Importance > edges[j].Importance
			}
			return edges[i].Other < edges[j].Other
		})
	}
	return graph, nil
}
