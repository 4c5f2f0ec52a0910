package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/pkg/knowledge"
)

// Record encoding: every entity is stored as a natural-language document (the
// text the vector search ranks against) plus flat metadata for filtering. The
// full typed entity travels in the "json" metadata key so readers can decode
// it without a second lookup.

// EpisodeRecord builds the store record for an episode.
func EpisodeRecord(ep *model.Episode) knowledge.Record {
	doc := ep.Summary
	if doc == "" {
		doc = fmt.Sprintf("Episode %s: %s", ep.ID, ep.Info.Title)
	}
	return knowledge.Record{
		ID:       ep.ID,
		Document: doc,
		Metadata: map[string]any{
			"season":     ep.Info.Season,
			"episode":    ep.Info.Episode,
			"title":      ep.Info.Title,
			"importance": ep.ImportanceScore,
			"json":       mustJSON(ep),
		},
	}
}

// SceneRecord builds the store record for a scene.
func SceneRecord(sc *model.Scene) knowledge.Record {
	var b strings.Builder
	if sc.Summary != "" {
		b.WriteString(sc.Summary)
	} else {
		b.WriteString(truncate(sc.Content, 500))
	}
	if sc.Location != "" {
		fmt.Fprintf(&b, "\nLocation: %s", sc.Location)
	}
	if len(sc.CharactersPresent) > 0 {
		fmt.Fprintf(&b, "\nCharacters: %s", strings.Join(sc.CharactersPresent, ", "))
	}
	return knowledge.Record{
		ID:       sc.ID,
		Document: b.String(),
		Metadata: map[string]any{
			"episode_id":   sc.EpisodeID,
			"scene_number": sc.SceneNumber,
			"location":     nullable(sc.Location),
			"importance":   sc.ImportanceScore,
			"json":         mustJSON(sc),
		},
	}
}

// CharacterRecord builds the store record for a character, keyed by the
// normalized character key.
func CharacterRecord(ch *model.Character) knowledge.Record {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", ch.Name, ch.Role)
	if ch.Description != "" {
		fmt.Fprintf(&b, "\n%s", ch.Description)
	}
	if len(ch.PersonalityTraits) > 0 {
		fmt.Fprintf(&b, "\nTraits: %s", strings.Join(ch.PersonalityTraits, ", "))
	}
	if ch.CharacterArc != "" {
		fmt.Fprintf(&b, "\nArc: %s", ch.CharacterArc)
	}
	return knowledge.Record{
		ID:       ch.Key(),
		Document: b.String(),
		Metadata: map[string]any{
			"name":             ch.Name,
			"role":             string(ch.Role),
			"importance":       ch.ImportanceScore,
			"first_appearance": nullable(ch.FirstAppearance),
			"last_appearance":  nullable(ch.LastAppearance),
			"json":             mustJSON(ch),
		},
	}
}

// RelationshipRecord builds the store record for a relationship, keyed by the
// symmetric pair key.
func RelationshipRecord(rel *model.Relationship) knowledge.Record {
	var b strings.Builder
	fmt.Fprintf(&b, "%s and %s: %s (%s)", rel.Character1, rel.Character2, rel.Type, rel.CurrentStatus)
	if rel.Description != "" {
		fmt.Fprintf(&b, "\n%s", rel.Description)
	}
	if rel.Dynamic != "" {
		fmt.Fprintf(&b, "\nDynamic: %s", rel.Dynamic)
	}
	return knowledge.Record{
		ID:       rel.ID,
		Document: b.String(),
		Metadata: map[string]any{
			"character1": rel.Character1,
			"character2": rel.Character2,
			"type":       string(rel.Type),
			"status":     string(rel.CurrentStatus),
			"importance": rel.ImportanceScore,
			"json":       mustJSON(rel),
		},
	}
}

// EventRecord builds the store record for a plot event.
func EventRecord(ev *model.PlotEvent) knowledge.Record {
	doc := ev.Title
	if ev.Description != "" {
		doc += "\n" + ev.Description
	}
	return knowledge.Record{
		ID:       ev.ID,
		Document: doc,
		Metadata: map[string]any{
			"episode_id": ev.EpisodeID,
			"scene_id":   nullable(ev.SceneID),
			"event_type": string(ev.Type),
			"importance": string(ev.Importance),
			"plot_arc":   nullable(ev.PlotArc),
			"json":       mustJSON(ev),
		},
	}
}

// DecodeEpisode reconstructs the episode entity from its store record.
func DecodeEpisode(rec *knowledge.Record) (*model.Episode, error) {
	var ep model.Episode
	if err := decodeJSON(rec, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// DecodeScene reconstructs the scene entity from its store record.
func DecodeScene(rec *knowledge.Record) (*model.Scene, error) {
	var sc model.Scene
	if err := decodeJSON(rec, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// DecodeCharacter reconstructs the character entity from its store record.
func DecodeCharacter(rec *knowledge.Record) (*model.Character, error) {
	var ch model.Character
	if err := decodeJSON(rec, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// DecodeRelationship reconstructs the relationship entity from its store record.
func DecodeRelationship(rec *knowledge.Record) (*model.Relationship, error) {
	var rel model.Relationship
	if err := decodeJSON(rec, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// DecodeEvent reconstructs the plot event entity from its store record.
func DecodeEvent(rec *knowledge.Record) (*model.PlotEvent, error) {
	var ev model.PlotEvent
	if err := decodeJSON(rec, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func decodeJSON(rec *knowledge.Record, v any) error {
	raw, ok := rec.Metadata["json"].(string)
	if !ok {
		return fmt.Errorf("pipeline: record %q has no json metadata", rec.ID)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("pipeline: decode record %q: %w", rec.ID, err)
	}
	return nil
}

// mustJSON marshals an entity for the json metadata key. All entity types
// are plain structs, so marshalling cannot fail.
func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic("pipeline: marshal entity: " + err.Error())
	}
	return string(data)
}

// nullable maps "" to nil so empty optional fields are stripped at the store
// boundary instead of persisted as empty strings.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
