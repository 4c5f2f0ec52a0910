package extract

import (
	"context"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/normalize"
	"github.com/plotwright/plotwright/internal/prompt"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

// EventExtractor extracts the plot events occurring in a scene.
type EventExtractor struct {
	caller
}

// NewEventExtractor creates an extractor backed by provider.
func NewEventExtractor(provider llm.Provider, opts ...Option) *EventExtractor {
	return &EventExtractor{caller: newCaller(provider, opts...)}
}

// Events extracts the plot events from content. Event IDs derive from
// parentID with a 1-based sequence that counts only accepted events; an
// event without both a title and a description is discarded. A model or
// parse failure degrades to no events.
func (e *EventExtractor) Events(ctx context.Context, parentID, episodeID, sceneID, content string) ([]*model.PlotEvent, error) {
	resp, err := e.complete(ctx, "plot_events", prompt.Get(prompt.PlotEvents), content)
	if err != nil {
		return nil, e.degraded(ctx, "plot event extraction failed", err, "scene_id", sceneID)
	}
	objs, err := normalize.ParseArray(resp)
	if err != nil {
		return nil, e.degraded(ctx, "plot event response unparseable", err, "scene_id", sceneID)
	}

	var events []*model.PlotEvent
	for _, obj := range objs {
		title := obj.String("title", "")
		description := obj.String("description", "")
		if title == "" || description == "" {
			e.log.Warn("discarding plot event without title and description", "scene_id", sceneID)
			continue
		}

		ev := model.NewPlotEvent(parentID, len(events)+1, title, description)
		ev.EpisodeID = episodeID
		ev.SceneID = sceneID
		ev.Type = model.ParseEventType(obj.String("event_type", string(model.EventMainPlot)))
		ev.Importance = model.ParseEventImportance(obj.String("importance", string(model.ImportanceMedium)))
		for _, name := range obj.StringList("characters_involved") {
			ev.AddCharacter(name)
		}
		ev.PlotArc = obj.String("plot_arc", "")
		for _, theme := range obj.StringList("themes") {
			ev.AddTheme(theme)
		}
		ev.EmotionalImpact = clamp01(obj.Float("emotional_impact", 0.5))
		ev.PlotSignificance = clamp01(obj.Float("plot_significance", 0.5))
		for _, elem := range obj.StringList("mystery_elements") {
			ev.AddMysteryElement(elem)
		}
		ev.RevealsInformation = obj.StringList("reveals_information")
		ev.QuestionsRaised = obj.StringList("questions_raised")
		ev.QuestionsAnswered = obj.StringList("questions_answered")
		ev.ForeshadowingClues = obj.StringList("foreshadowing_clues")
		for _, tag := range obj.StringList("tags") {
			ev.AddTag(tag)
		}
		events = append(events, ev)
	}
	return events, nil
}
