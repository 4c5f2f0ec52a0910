// Package prompt is the compile-time registry of model instructions used by
// the extraction pipeline.
//
// Every model call is keyed by a typed Purpose rather than a free-form
// template name, and every template's required placeholders are validated
// when the package loads, so a missing or misspelled placeholder fails at
// startup instead of mid-episode.
package prompt

import (
	"fmt"
	"strings"
)

// Purpose identifies one kind of model call the pipeline makes.
type Purpose int

// All registered prompt purposes.
const (
	// SceneBreaks splits a transcript into scenes at the delimiter token.
	SceneBreaks Purpose = iota

	// SceneAnalysis produces the structured per-scene analysis object.
	SceneAnalysis

	// CharacterIdentification lists the named characters in a scene.
	CharacterIdentification

	// CharacterProfile produces a detailed profile for one new character.
	CharacterProfile

	// CharacterUpdates analyzes development of an already-known character.
	CharacterUpdates

	// RelationshipPairs lists interacting character pairs in a scene.
	RelationshipPairs

	// RelationshipDetails analyzes the relationship of one pair.
	RelationshipDetails

	// PlotEvents produces the JSON array of plot events in a scene.
	PlotEvents

	// SummaryCohesion smooths the concatenated episode summary into
	// flowing prose.
	SummaryCohesion

	// ContentSummary produces a free-form summary of arbitrary content.
	ContentSummary
)

// String returns a stable name for logging and metrics labels.
func (p Purpose) String() string {
	switch p {
	case SceneBreaks:
		return "scene_breaks"
	case SceneAnalysis:
		return "scene_analysis"
	case CharacterIdentification:
		return "character_identification"
	case CharacterProfile:
		return "character_profile"
	case CharacterUpdates:
		return "character_updates"
	case RelationshipPairs:
		return "relationship_pairs"
	case RelationshipDetails:
		return "relationship_details"
	case PlotEvents:
		return "plot_events"
	case SummaryCohesion:
		return "summary_cohesion"
	case ContentSummary:
		return "content_summary"
	}
	return fmt.Sprintf("purpose(%d)", int(p))
}

// SceneBreakDelimiter is the token the scene segmentation prompt instructs
// the model to place between scenes.
const SceneBreakDelimiter = "---SCENE_BREAK---"

// entry pairs a template with the placeholders it must contain.
type entry struct {
	template     string
	placeholders []string
}

// Placeholders use the {name} form. Templates with no placeholders are
// static system prompts.
var registry = map[Purpose]entry{
	SceneBreaks: {template: sceneBreaksTemplate},
	SceneAnalysis: {
		template:     sceneAnalysisTemplate,
		placeholders: nil,
	},
	CharacterIdentification: {template: characterIdentificationTemplate},
	CharacterProfile: {
		template:     characterProfileTemplate,
		placeholders: []string{"character"},
	},
	CharacterUpdates: {
		template:     characterUpdatesTemplate,
		placeholders: []string{"character"},
	},
	RelationshipPairs: {template: relationshipPairsTemplate},
	RelationshipDetails: {
		template:     relationshipDetailsTemplate,
		placeholders: []string{"char1", "char2"},
	},
	PlotEvents:      {template: plotEventsTemplate},
	SummaryCohesion: {template: summaryCohesionTemplate},
	ContentSummary:  {template: contentSummaryTemplate},
}

func init() {
	for purpose, e := range registry {
		for _, ph := range e.placeholders {
			if !strings.Contains(e.template, "{"+ph+"}") {
				panic(fmt.Sprintf("prompt: template %s missing placeholder {%s}", purpose, ph))
			}
		}
	}
}

// Render returns the template for purpose with every {name} placeholder
// replaced by vars[name]. It returns an error for an unregistered purpose or
// a missing variable; both are programmer errors, surfaced rather than sent
// to the model half-filled.
func Render(purpose Purpose, vars map[string]string) (string, error) {
	e, ok := registry[purpose]
	if !ok {
		return "", fmt.Errorf("prompt: unregistered purpose %s", purpose)
	}
	out := e.template
	for _, ph := range e.placeholders {
		v, ok := vars[ph]
		if !ok {
			return "", fmt.Errorf("prompt: %s: missing variable %q", purpose, ph)
		}
		out = strings.ReplaceAll(out, "{"+ph+"}", v)
	}
	return out, nil
}

// Get returns the static template for a purpose with no placeholders.
// It panics if the purpose requires variables; use Render for those.
func Get(purpose Purpose) string {
	e, ok := registry[purpose]
	if !ok {
		panic(fmt.Sprintf("prompt: unregistered purpose %s", purpose))
	}
	if len(e.placeholders) > 0 {
		panic(fmt.Sprintf("prompt: %s requires variables, use Render", purpose))
	}
	return e.template
}
