// Package model defines the typed records the extraction pipeline produces:
// episodes, scenes, characters, relationships, and plot events.
//
// All records are mutated only through explicit append helpers. List-valued
// fields deduplicate on append and preserve insertion order; scalar fields are
// written once during construction except where a helper documents otherwise
// (status transitions, appearance tracking). Identity is always derived from
// the record's content, never assigned free-form, so reprocessing the same
// input resolves to the same IDs.
package model

import (
	"fmt"
	"strings"
)

// EpisodeID derives the canonical episode identifier for a season/episode
// pair, e.g. season 1 episode 3 becomes "S01E03".
func EpisodeID(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}

// SceneID derives the canonical scene identifier within an episode. Scene
// numbers are 1-based, e.g. ("S01E03", 2) becomes "S01E03_S002".
func SceneID(episodeID string, sceneNumber int) string {
	return fmt.Sprintf("%s_S%03d", episodeID, sceneNumber)
}

// PlotEventID derives a plot event identifier from its containing scene or
// episode ID and a 1-based sequence index, e.g. ("S01E03_S002", 1) becomes
// "S01E03_S002_E001".
func PlotEventID(parentID string, seq int) string {
	return fmt.Sprintf("%s_E%03d", parentID, seq)
}

// normalizeEnum lowercases and trims free-text model output before enum
// table lookup.
func normalizeEnum(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// appendUnique appends v to list unless it is already present. Insertion
// order is preserved.
func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

// clampScore bounds a score to the [0, 1] range used by all importance and
// relevance fields.
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
