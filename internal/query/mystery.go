package query

import (
	"context"
	"fmt"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/pipeline"
	"github.com/plotwright/plotwright/pkg/knowledge"
)

// mysterySearchLimit caps how many candidate events a mystery search pulls
// before classification.
const mysterySearchLimit = 20

// MysteryReport tracks one mystery thread across the series: the clues laid
// down, the resolutions, and any other event touching the same elements, all
// in airing order.
type MysteryReport struct {
	Mystery       string
	Clues         []*model.PlotEvent
	Resolutions   []*model.PlotEvent
	RelatedEvents []*model.PlotEvent
}

// Resolved reports whether at least one resolution event exists.
func (r *MysteryReport) Resolved() bool {
	return len(r.Resolutions) > 0
}

// TrackMystery searches plot events semantically for the described mystery
// and classifies the matches into clues, resolutions, and related events.
func (q *Interface) TrackMystery(ctx context.Context, description string) (*MysteryReport, error) {
	results, err := q.store.Query(ctx, knowledge.PlotEvents, description, mysterySearchLimit, nil)
	if err != nil {
		return nil, fmt.Errorf("query: search plot events: %w", err)
	}

	report := &MysteryReport{Mystery: description}
	for i := range results {
		ev, err := pipeline.DecodeEvent(&results[i].Record)
		if err != nil {
			q.log.Warn("skipping undecodable plot event", "id", results[i].ID, "error", err)
			continue
		}
		switch {
		case ev.Type == model.EventMysteryClue:
			report.Clues = append(report.Clues, ev)
		case ev.Type == model.EventMysteryResolution:
			report.Resolutions = append(report.Resolutions, ev)
		case len(ev.MysteryElements) > 0:
			report.RelatedEvents = append(report.RelatedEvents, ev)
		}
	}
	sortEventsByEpisode(report.Clues)
	sortEventsByEpisode(report.Resolutions)
	sortEventsByEpisode(report.RelatedEvents)
	return report, nil
}
