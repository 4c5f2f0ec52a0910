package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/pipeline"
	"github.com/plotwright/plotwright/pkg/knowledge"
)

// EpisodeContext is everything the store knows strictly before a given
// episode: the watcher's knowledge state at that point in the series.
type EpisodeContext struct {
	TargetEpisode    string
	PreviousEpisodes []string

	// KnownCharacters maps each character known before the target episode
	// to the episode that introduced them.
	KnownCharacters map[string]string

	// KnownRelationships lists relationships whose first interaction lies
	// before the target episode.
	KnownRelationships []*model.Relationship

	// ActivePlotArcs names every arc touched by a previous episode.
	ActivePlotArcs []string
}

// Context reconstructs the knowledge state before season/episode. Only
// episodes airing strictly earlier contribute.
func (q *Interface) Context(ctx context.Context, season, episode int) (*EpisodeContext, error) {
	out := &EpisodeContext{
		TargetEpisode:   model.EpisodeID(season, episode),
		KnownCharacters: map[string]string{},
	}

	recs, err := q.store.List(ctx, knowledge.Episodes, nil)
	if err != nil {
		return nil, fmt.Errorf("query: list episodes: %w", err)
	}

	previous := map[string]struct{}{}
	arcs := map[string]struct{}{}
	for i := range recs {
		ep, err := pipeline.DecodeEpisode(&recs[i])
		if err != nil {
			q.log.Warn("skipping undecodable episode", "id", recs[i].ID, "error", err)
			continue
		}
		if !airsBefore(ep.Info, season, episode) {
			continue
		}
		previous[ep.ID] = struct{}{}
		out.PreviousEpisodes = append(out.PreviousEpisodes, ep.ID)
		for _, name := range ep.CharactersIntroduced {
			if _, known := out.KnownCharacters[name]; !known {
				out.KnownCharacters[name] = ep.ID
			}
		}
		for _, arc := range ep.PlotArcs {
			arcs[arc] = struct{}{}
		}
	}
	sort.Strings(out.PreviousEpisodes)
	for arc := range arcs {
		out.ActivePlotArcs = append(out.ActivePlotArcs, arc)
	}
	sort.Strings(out.ActivePlotArcs)

	if len(previous) == 0 {
		return out, nil
	}

	relRecs, err := q.store.List(ctx, knowledge.Relationships, nil)
	if err != nil {
		return nil, fmt.Errorf("query: list relationships: %w", err)
	}
	for i := range relRecs {
		rel, err := pipeline.DecodeRelationship(&relRecs[i])
		if err != nil {
			q.log.Warn("skipping undecodable relationship", "id", relRecs[i].ID, "error", err)
			continue
		}
		if _, ok := previous[rel.FirstInteraction]; ok {
			out.KnownRelationships = append(out.KnownRelationships, rel)
		}
	}
	sort.SliceStable(out.KnownRelationships, func(i, j int) bool {
		return out.KnownRelationships[i].ID < out.KnownRelationships[j].ID
	})
	return out, nil
}

// airsBefore reports whether info airs strictly before (season, episode).
func airsBefore(info model.EpisodeInfo, season, episode int) bool {
	if info.Season != season {
		return info.Season < season
	}
	return info.Episode < episode
}
