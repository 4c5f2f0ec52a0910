package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/pipeline"
	"github.com/plotwright/plotwright/internal/resilience"
	"github.com/plotwright/plotwright/pkg/knowledge"
	storemock "github.com/plotwright/plotwright/pkg/knowledge/mock"
	"github.com/plotwright/plotwright/pkg/provider/llm"
	llmmock "github.com/plotwright/plotwright/pkg/provider/llm/mock"
)

// testTranscript clears the minimum length precondition.
var testTranscript = strings.Repeat("WALT: Say my name.\nJESSE: You're Heisenberg.\n", 10)

var testInfo = model.EpisodeInfo{Season: 1, Episode: 1, Title: "Pilot"}

// scriptedAnswers maps a distinctive phrase of each system prompt to its
// canned response, covering every model call the pipeline makes.
func scriptedAnswers() map[string]string {
	return map[string]string{
		"scene breaks":                      "Scene one in the diner.\n---SCENE_BREAK---\nScene two on the street.",
		"script analyst":                    `{"summary": "A tense confrontation.", "location": "Diner", "characters_present": [], "emotional_tone": ["tense"], "plot_relevance": 0.8, "importance_score": 0.6}`,
		"identifying characters":            "Walter White\nJesse Pinkman",
		"analyzing a character named":       `{"role": "protagonist", "description": "A chemistry teacher.", "personality_traits": ["proud"], "importance_score": 0.9}`,
		"character development and changes": `{"new_personality_traits": [], "character_changes": []}`,
		"character interactions":            "Walter White | Jesse Pinkman",
		"analyzing the relationship":        `{"type": "professional", "status": "strained", "description": "Partners in the lab.", "importance_score": 0.8, "emotional_intensity": 0.7}`,
		"identifying plot events":           `[{"title": "The cook", "description": "They cook a batch.", "event_type": "main_plot", "importance": "critical", "plot_arc": "the empire", "themes": ["pride"]}]`,
		"comprehensive episode summaries":   "A smoothed episode summary.",
	}
}

// scripted builds a provider answering by system-prompt phrase.
func scripted(t *testing.T, answers map[string]string) *llmmock.Provider {
	t.Helper()
	return &llmmock.Provider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			for phrase, answer := range answers {
				if strings.Contains(req.SystemPrompt, phrase) {
					return &llm.CompletionResponse{Content: answer}, nil
				}
			}
			t.Errorf("unexpected system prompt: %.80s", req.SystemPrompt)
			return &llm.CompletionResponse{}, nil
		},
	}
}

func TestProcessEpisode_FullRun(t *testing.T) {
	t.Parallel()
	store := storemock.New()
	p := pipeline.NewProcessor(store, scripted(t, scriptedAnswers()))
	ctx := context.Background()

	ep, err := p.ProcessEpisode(ctx, testTranscript, testInfo)
	if err != nil {
		t.Fatalf("ProcessEpisode() error = %v", err)
	}

	if ep.ID != "S01E01" {
		t.Errorf("episode ID = %q, want S01E01", ep.ID)
	}
	if len(ep.Scenes) != 2 {
		t.Fatalf("episode scenes = %v, want 2", ep.Scenes)
	}
	if ep.Scenes[1] != "S01E01_S002" {
		t.Errorf("second scene ID = %q, want S01E01_S002", ep.Scenes[1])
	}
	if ep.Summary != "A smoothed episode summary." {
		t.Errorf("summary = %q", ep.Summary)
	}
	if len(ep.CharactersIntroduced) != 2 {
		t.Errorf("characters introduced = %v", ep.CharactersIntroduced)
	}
	if len(ep.PlotArcs) != 1 || ep.PlotArcs[0] != "the empire" {
		t.Errorf("plot arcs = %v", ep.PlotArcs)
	}

	// Everything is persisted, episode record last.
	if _, err := store.Get(ctx, knowledge.Episodes, "S01E01"); err != nil {
		t.Errorf("episode record missing: %v", err)
	}
	if n, _ := store.Count(ctx, knowledge.Scenes); n != 2 {
		t.Errorf("scene count = %d, want 2", n)
	}
	if n, _ := store.Count(ctx, knowledge.Characters); n != 2 {
		t.Errorf("character count = %d, want 2", n)
	}
	if n, _ := store.Count(ctx, knowledge.Relationships); n != 1 {
		t.Errorf("relationship count = %d, want 1", n)
	}
	// One event per scene.
	if n, _ := store.Count(ctx, knowledge.PlotEvents); n != 2 {
		t.Errorf("plot event count = %d, want 2", n)
	}

	// The stored character decodes back to the typed entity.
	rec, err := store.Get(ctx, knowledge.Characters, "walter_white")
	if err != nil {
		t.Fatalf("character record missing: %v", err)
	}
	ch, err := pipeline.DecodeCharacter(rec)
	if err != nil {
		t.Fatalf("DecodeCharacter: %v", err)
	}
	if ch.Role != model.RoleProtagonist || ch.FirstAppearance != "S01E01" {
		t.Errorf("decoded character = %+v", ch)
	}
}

func TestProcessEpisode_RelationshipKeyIsSymmetric(t *testing.T) {
	t.Parallel()
	store := storemock.New()
	p := pipeline.NewProcessor(store, scripted(t, scriptedAnswers()))
	ctx := context.Background()

	if _, err := p.ProcessEpisode(ctx, testTranscript, testInfo); err != nil {
		t.Fatalf("ProcessEpisode() error = %v", err)
	}

	// Lookup by either ordering resolves to the same record.
	key := model.RelationshipKey("Jesse Pinkman", "Walter White")
	reversed := model.RelationshipKey("Walter White", "Jesse Pinkman")
	if key != reversed {
		t.Fatalf("keys differ: %q vs %q", key, reversed)
	}
	rec, err := store.Get(ctx, knowledge.Relationships, key)
	if err != nil {
		t.Fatalf("relationship lookup: %v", err)
	}
	rel, err := pipeline.DecodeRelationship(rec)
	if err != nil {
		t.Fatalf("DecodeRelationship: %v", err)
	}
	if rel.Type != model.RelProfessional {
		t.Errorf("relationship type = %q", rel.Type)
	}
}

func TestProcessEpisode_ValidationFailsFast(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name       string
		transcript string
		info       model.EpisodeInfo
	}{
		{"transcript at 99 chars", strings.Repeat("x", 99), testInfo},
		{"transcript over maximum", strings.Repeat("x", model.MaxTranscriptLen+1), testInfo},
		{"season zero", testTranscript, model.EpisodeInfo{Season: 0, Episode: 1, Title: "Pilot"}},
		{"episode zero", testTranscript, model.EpisodeInfo{Season: 1, Episode: 0, Title: "Pilot"}},
		{"empty title", testTranscript, model.EpisodeInfo{Season: 1, Episode: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			provider := &llmmock.Provider{}
			p := pipeline.NewProcessor(storemock.New(), provider)

			_, err := p.ProcessEpisode(context.Background(), tc.transcript, tc.info)
			var verr *pipeline.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			// Fail-fast: no model call may have been made.
			if calls := provider.Calls(); len(calls) != 0 {
				t.Errorf("model calls = %d, want 0", len(calls))
			}
		})
	}
}

func TestProcessEpisode_BoundaryLengthAccepted(t *testing.T) {
	t.Parallel()
	store := storemock.New()
	p := pipeline.NewProcessor(store, scripted(t, scriptedAnswers()))

	transcript := strings.Repeat("x", model.MinTranscriptLen)
	if _, err := p.ProcessEpisode(context.Background(), transcript, testInfo); err != nil {
		t.Fatalf("transcript of exactly %d chars must be accepted, got %v", model.MinTranscriptLen, err)
	}
}

func TestProcessEpisode_ReprocessingSupersedes(t *testing.T) {
	t.Parallel()
	store := storemock.New()
	ctx := context.Background()

	// First run: three scenes.
	answers := scriptedAnswers()
	answers["scene breaks"] = "One.\n---SCENE_BREAK---\nTwo.\n---SCENE_BREAK---\nThree."
	first := pipeline.NewProcessor(store, scripted(t, answers))
	if _, err := first.ProcessEpisode(ctx, testTranscript, testInfo); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if n, _ := store.Count(ctx, knowledge.Scenes); n != 3 {
		t.Fatalf("scene count after first run = %d, want 3", n)
	}

	// Second run with a revised transcript: two scenes, same episode ID.
	second := pipeline.NewProcessor(store, scripted(t, scriptedAnswers()))
	ep, err := second.ProcessEpisode(ctx, testTranscript+"\nrevised", testInfo)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if ep.ID != "S01E01" {
		t.Errorf("episode ID = %q", ep.ID)
	}

	// Old scenes are fully superseded, not merged.
	if n, _ := store.Count(ctx, knowledge.Scenes); n != 2 {
		t.Errorf("scene count after reprocess = %d, want 2", n)
	}
	if _, err := store.Get(ctx, knowledge.Scenes, "S01E01_S003"); !errors.Is(err, knowledge.ErrNotFound) {
		t.Errorf("stale scene S003 should be deleted, got err = %v", err)
	}

	// Characters are not rolled back: both survive the reprocess even though
	// only the new transcript was analyzed. Orphaning is deliberate.
	if n, _ := store.Count(ctx, knowledge.Characters); n != 2 {
		t.Errorf("character count after reprocess = %d, want 2 (orphans preserved)", n)
	}
}

func TestProcessEpisode_CharacterDedupByKnownNames(t *testing.T) {
	t.Parallel()
	store := storemock.New()
	provider := scripted(t, scriptedAnswers())
	p := pipeline.NewProcessor(store, provider)

	if _, err := p.ProcessEpisode(context.Background(), testTranscript, testInfo); err != nil {
		t.Fatalf("ProcessEpisode() error = %v", err)
	}

	// Both characters appear in both scenes, but each is profiled exactly
	// once; later scenes issue development updates instead.
	var profiles, updates int
	for _, call := range provider.Calls() {
		if strings.Contains(call.Req.SystemPrompt, "analyzing a character named") {
			profiles++
		}
		if strings.Contains(call.Req.SystemPrompt, "character development and changes") {
			updates++
		}
	}
	if profiles != 2 {
		t.Errorf("profile calls = %d, want 2 (one per unique character)", profiles)
	}
	if updates == 0 {
		t.Error("expected development updates for already-known characters")
	}
}

func TestProcessEpisode_KnownCharacterFromStoreNotReprofiled(t *testing.T) {
	t.Parallel()
	store := storemock.New()
	ctx := context.Background()

	// Seed the store with a character from a previous episode.
	seeded := model.NewCharacter("Walter White")
	seeded.AddAppearance("S01E01")
	if err := store.Add(ctx, knowledge.Characters, pipeline.CharacterRecord(seeded)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	provider := scripted(t, scriptedAnswers())
	p := pipeline.NewProcessor(store, provider)
	if _, err := p.ProcessEpisode(ctx, testTranscript, model.EpisodeInfo{Season: 1, Episode: 2, Title: "Cat's in the Bag"}); err != nil {
		t.Fatalf("ProcessEpisode() error = %v", err)
	}

	var profiled []string
	for _, call := range provider.Calls() {
		if strings.Contains(call.Req.SystemPrompt, "analyzing a character named") {
			profiled = append(profiled, call.Req.SystemPrompt)
		}
	}
	if len(profiled) != 1 {
		t.Fatalf("profile calls = %d, want 1 (only the new character)", len(profiled))
	}
	if !strings.Contains(profiled[0], "Jesse Pinkman") {
		t.Errorf("profiled the wrong character: %.120s", profiled[0])
	}

	// The seeded record accumulated the new appearance.
	rec, err := store.Get(ctx, knowledge.Characters, "walter_white")
	if err != nil {
		t.Fatalf("seeded character missing: %v", err)
	}
	ch, err := pipeline.DecodeCharacter(rec)
	if err != nil {
		t.Fatalf("DecodeCharacter: %v", err)
	}
	if ch.FirstAppearance != "S01E01" || ch.LastAppearance != "S01E02" {
		t.Errorf("appearances = %q..%q, want S01E01..S01E02", ch.FirstAppearance, ch.LastAppearance)
	}
}

func TestProcessEpisode_EpisodeWriteFailureIsRetried(t *testing.T) {
	t.Parallel()
	store := storemock.New()
	var episodeWrites int
	store.AddHook = func(col knowledge.Collection, rec knowledge.Record) error {
		if col == knowledge.Episodes {
			episodeWrites++
			if episodeWrites == 1 {
				return errors.New("store briefly down")
			}
		}
		return nil
	}

	p := pipeline.NewProcessor(store, scripted(t, scriptedAnswers()),
		pipeline.WithRetry(resilience.RetryConfig{Name: "test", MaxAttempts: 2, BaseDelay: time.Millisecond}),
	)

	ep, err := p.ProcessEpisode(context.Background(), testTranscript, testInfo)
	if err != nil {
		t.Fatalf("ProcessEpisode() error = %v, want recovery on retry", err)
	}
	if episodeWrites != 2 {
		t.Errorf("episode writes = %d, want 2", episodeWrites)
	}
	if ep.Summary == "" {
		t.Error("retried run must still produce a summary")
	}
}

func TestProcessEpisode_SceneWriteFailureIsSkipped(t *testing.T) {
	t.Parallel()
	store := storemock.New()
	store.AddHook = func(col knowledge.Collection, rec knowledge.Record) error {
		if col == knowledge.Scenes && rec.ID == "S01E01_S001" {
			return errors.New("disk full, briefly")
		}
		return nil
	}

	p := pipeline.NewProcessor(store, scripted(t, scriptedAnswers()))
	ctx := context.Background()

	if _, err := p.ProcessEpisode(ctx, testTranscript, testInfo); err != nil {
		t.Fatalf("a single entity write failure must not fail the episode: %v", err)
	}
	// The failed scene is skipped, the other one lands.
	if n, _ := store.Count(ctx, knowledge.Scenes); n != 1 {
		t.Errorf("scene count = %d, want 1", n)
	}
	if _, err := store.Get(ctx, knowledge.Episodes, "S01E01"); err != nil {
		t.Errorf("episode record missing: %v", err)
	}
}

func TestProcessEpisode_SummaryFallsBackToDraft(t *testing.T) {
	t.Parallel()
	answers := scriptedAnswers()
	provider := &llmmock.Provider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			if strings.Contains(req.SystemPrompt, "comprehensive episode summaries") {
				return nil, errors.New("cohesion model down")
			}
			for phrase, answer := range answers {
				if strings.Contains(req.SystemPrompt, phrase) {
					return &llm.CompletionResponse{Content: answer}, nil
				}
			}
			return &llm.CompletionResponse{}, nil
		},
	}

	p := pipeline.NewProcessor(storemock.New(), provider)
	ep, err := p.ProcessEpisode(context.Background(), testTranscript, testInfo)
	if err != nil {
		t.Fatalf("ProcessEpisode() error = %v", err)
	}
	if !strings.HasPrefix(ep.Summary, "Scene Summary:\n") {
		t.Errorf("summary should be the raw draft, got %q", ep.Summary)
	}
	if !strings.Contains(ep.Summary, "Major Events:") {
		t.Errorf("draft missing events section: %q", ep.Summary)
	}
}

func TestEpisodeImportance(t *testing.T) {
	t.Parallel()
	scene := func(importance float64) *model.Scene {
		sc := model.NewScene("S01E01", 1, "x")
		sc.ImportanceScore = importance
		return sc
	}
	event := func(imp model.EventImportance) *model.PlotEvent {
		ev := model.NewPlotEvent("S01E01_S001", 1, "t", "d")
		ev.Importance = imp
		return ev
	}

	cases := []struct {
		name   string
		scenes []*model.Scene
		events []*model.PlotEvent
		want   float64
	}{
		{
			name:   "documented example",
			scenes: []*model.Scene{scene(0.4), scene(0.6)},
			events: []*model.PlotEvent{event(model.ImportanceCritical), event(model.ImportanceLow)},
			want:   0.5,
		},
		{
			name: "empty inputs are neutral",
			want: 0.5,
		},
		{
			name:   "all critical events cap at one",
			scenes: []*model.Scene{scene(1.0)},
			events: []*model.PlotEvent{event(model.ImportanceCritical), event(model.ImportanceCritical)},
			want:   1.0,
		},
		{
			name:   "high events count at 0.8",
			scenes: []*model.Scene{scene(0.5)},
			events: []*model.PlotEvent{event(model.ImportanceHigh)},
			want:   0.5*0.3 + 0.8*0.7,
		},
		{
			name:   "low-only events drag the score down",
			scenes: []*model.Scene{scene(0.5)},
			events: []*model.PlotEvent{event(model.ImportanceLow)},
			want:   0.5 * 0.3,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := pipeline.EpisodeImportance(tc.scenes, tc.events)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("EpisodeImportance() = %v, want %v", got, tc.want)
			}
		})
	}
}
