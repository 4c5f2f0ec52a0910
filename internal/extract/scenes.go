package extract

import (
	"context"
	"strings"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/normalize"
	"github.com/plotwright/plotwright/internal/prompt"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

// SceneSegmenter splits an episode transcript into scenes and analyzes each
// one.
type SceneSegmenter struct {
	caller
}

// NewSceneSegmenter creates a segmenter backed by provider.
func NewSceneSegmenter(provider llm.Provider, opts ...Option) *SceneSegmenter {
	return &SceneSegmenter{caller: newCaller(provider, opts...)}
}

// Segment splits transcript into scenes and runs the per-scene analysis on
// each segment. Scene numbers are contiguous starting at 1.
//
// When the segmentation call fails or the model returns no usable split, the
// whole transcript becomes a single scene. A failed analysis leaves the scene
// with its raw content and default scores. The returned error is non-nil only
// on context cancellation.
func (s *SceneSegmenter) Segment(ctx context.Context, episodeID, transcript string) ([]*model.Scene, error) {
	segments, err := s.split(ctx, transcript)
	if err != nil {
		return nil, err
	}

	scenes := make([]*model.Scene, 0, len(segments))
	for i, content := range segments {
		scene := model.NewScene(episodeID, i+1, content)
		if err := s.analyze(ctx, scene); err != nil {
			return nil, err
		}
		scenes = append(scenes, scene)
	}
	return scenes, nil
}

// split asks the model for delimiter-separated scenes and falls back to the
// whole transcript when that produces nothing usable.
func (s *SceneSegmenter) split(ctx context.Context, transcript string) ([]string, error) {
	resp, err := s.complete(ctx, "scene_breaks", prompt.Get(prompt.SceneBreaks), transcript)
	if err != nil {
		if derr := s.degraded(ctx, "scene segmentation failed, using whole transcript", err); derr != nil {
			return nil, derr
		}
		return []string{transcript}, nil
	}

	var segments []string
	for _, part := range strings.Split(resp, prompt.SceneBreakDelimiter) {
		part = strings.TrimSpace(part)
		if part != "" {
			segments = append(segments, part)
		}
	}
	if len(segments) == 0 {
		s.log.Warn("scene segmentation returned no segments, using whole transcript")
		return []string{transcript}, nil
	}
	return segments, nil
}

// analyze fills scene from the structured analysis response. On failure the
// scene keeps its defaults.
func (s *SceneSegmenter) analyze(ctx context.Context, scene *model.Scene) error {
	resp, err := s.complete(ctx, "scene_analysis", prompt.Get(prompt.SceneAnalysis), scene.Content)
	if err != nil {
		return s.degraded(ctx, "scene analysis failed, keeping defaults", err, "scene_id", scene.ID)
	}

	obj, err := normalize.ParseObject(resp)
	if err != nil {
		return s.degraded(ctx, "scene analysis unparseable, keeping defaults", err, "scene_id", scene.ID)
	}

	scene.Summary = obj.String("summary", "")
	scene.Location = obj.String("location", "")
	scene.TimeOfDay = obj.String("time_of_day", "")
	scene.MoodDescription = obj.String("mood_description", "")
	for _, name := range obj.StringList("characters_present") {
		scene.AddCharacter(name)
	}
	for _, line := range obj.StringList("key_dialogue") {
		scene.AddKeyDialogue(line)
	}
	for _, event := range obj.StringList("plot_events") {
		scene.AddPlotEvent(event)
	}
	scene.CharacterDevelopments = obj.StringList("character_developments")
	scene.RelationshipDynamics = obj.StringList("relationship_dynamics")
	for _, raw := range obj.StringList("emotional_tone") {
		if tone, ok := model.ParseEmotionalTone(raw); ok {
			scene.AddEmotionalTone(tone)
		}
	}
	scene.Foreshadowing = obj.StringList("foreshadowing")
	scene.Callbacks = obj.StringList("callbacks")
	scene.Themes = obj.StringList("themes")
	scene.SetScores(obj.Float("plot_relevance", 0.5), obj.Float("importance_score", 0.5))
	return nil
}
