package query_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/pipeline"
	"github.com/plotwright/plotwright/internal/query"
	"github.com/plotwright/plotwright/pkg/knowledge"
	storemock "github.com/plotwright/plotwright/pkg/knowledge/mock"
	"github.com/plotwright/plotwright/pkg/provider/llm"
	llmmock "github.com/plotwright/plotwright/pkg/provider/llm/mock"
)

// seedStore loads a small two-episode series into a fresh mock store.
func seedStore(t *testing.T) *storemock.Store {
	t.Helper()
	store := storemock.New()
	ctx := context.Background()

	add := func(col knowledge.Collection, rec knowledge.Record) {
		if err := store.Add(ctx, col, rec); err != nil {
			t.Fatalf("seed %s/%s: %v", col, rec.ID, err)
		}
	}

	ep1 := model.NewEpisode(model.EpisodeInfo{Season: 1, Episode: 1, Title: "Pilot"}, strings.Repeat("x", 100))
	ep1.Summary = "Walter starts cooking."
	ep1.AddCharacter("Walter White")
	ep1.AddCharacter("Jesse Pinkman")
	ep1.AddPlotArc("the empire")
	add(knowledge.Episodes, pipeline.EpisodeRecord(ep1))

	ep2 := model.NewEpisode(model.EpisodeInfo{Season: 1, Episode: 2, Title: "Cat's in the Bag"}, strings.Repeat("x", 100))
	ep2.Summary = "The aftermath."
	ep2.AddCharacter("Skyler White")
	ep2.AddPlotArc("the lie")
	add(knowledge.Episodes, pipeline.EpisodeRecord(ep2))

	walter := model.NewCharacter("Walter White")
	walter.Role = model.RoleProtagonist
	walter.Description = "A chemistry teacher turned manufacturer."
	walter.AddAppearance("S01E01")
	walter.AddAppearance("S01E02")
	add(knowledge.Characters, pipeline.CharacterRecord(walter))

	jesse := model.NewCharacter("Jesse Pinkman")
	jesse.Role = model.RoleSupporting
	jesse.AddAppearance("S01E01")
	add(knowledge.Characters, pipeline.CharacterRecord(jesse))

	skyler := model.NewCharacter("Skyler White")
	skyler.AddAppearance("S01E02")
	add(knowledge.Characters, pipeline.CharacterRecord(skyler))

	rel1 := model.NewRelationship("Walter White", "Jesse Pinkman", model.RelProfessional)
	rel1.FirstInteraction = "S01E01"
	rel1.ImportanceScore = 0.9
	add(knowledge.Relationships, pipeline.RelationshipRecord(rel1))

	rel2 := model.NewRelationship("Walter White", "Skyler White", model.RelFamily)
	rel2.FirstInteraction = "S01E02"
	rel2.ImportanceScore = 0.6
	add(knowledge.Relationships, pipeline.RelationshipRecord(rel2))

	sc := model.NewScene("S01E01", 1, "WALT: Say my name.")
	sc.Summary = "Walter White and Jesse Pinkman argue in the lab."
	sc.AddCharacter("Walter White")
	sc.AddCharacter("Jesse Pinkman")
	add(knowledge.Scenes, pipeline.SceneRecord(sc))

	clue := model.NewPlotEvent("S01E01_S001", 1, "The missing barrel", "A barrel vanishes from the lab.")
	clue.EpisodeID = "S01E01"
	clue.Type = model.EventMysteryClue
	clue.PlotArc = "the empire"
	clue.Importance = model.ImportanceHigh
	add(knowledge.PlotEvents, pipeline.EventRecord(clue))

	resolution := model.NewPlotEvent("S01E02_S001", 1, "The barrel surfaces", "The missing barrel turns up in the desert.")
	resolution.EpisodeID = "S01E02"
	resolution.Type = model.EventMysteryResolution
	resolution.PlotArc = "the empire"
	add(knowledge.PlotEvents, pipeline.EventRecord(resolution))

	return store
}

func TestCharacter_Lookup(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))
	ctx := context.Background()

	cases := []struct {
		name   string
		lookup string
		want   string
	}{
		{name: "exact name", lookup: "Walter White", want: "Walter White"},
		{name: "case insensitive", lookup: "walter white", want: "Walter White"},
		{name: "misspelling resolves", lookup: "Walter Whyte", want: "Walter White"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ch, err := q.Character(ctx, tc.lookup)
			if err != nil {
				t.Fatalf("Character(%q) error = %v", tc.lookup, err)
			}
			if ch.Name != tc.want {
				t.Errorf("Character(%q).Name = %q, want %q", tc.lookup, ch.Name, tc.want)
			}
		})
	}

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()
		_, err := q.Character(ctx, "Zebulon Quasar")
		if !errors.Is(err, query.ErrCharacterNotFound) {
			t.Errorf("error = %v, want ErrCharacterNotFound", err)
		}
	})
}

func TestRelationship_EitherOrderResolves(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))
	ctx := context.Background()

	rel, err := q.Relationship(ctx, "Jesse Pinkman", "Walter White")
	if err != nil {
		t.Fatalf("Relationship() error = %v", err)
	}
	if rel.Type != model.RelProfessional {
		t.Errorf("type = %q, want professional", rel.Type)
	}

	swapped, err := q.Relationship(ctx, "Walter White", "Jesse Pinkman")
	if err != nil {
		t.Fatalf("Relationship() swapped error = %v", err)
	}
	if swapped.ID != rel.ID {
		t.Errorf("swapped lookup resolved %q, want %q", swapped.ID, rel.ID)
	}

	_, err = q.Relationship(ctx, "Walter White", "Gus Fring")
	if !errors.Is(err, query.ErrRelationshipNotFound) {
		t.Errorf("missing pair error = %v, want ErrRelationshipNotFound", err)
	}
}

func TestRelationships_SortedByImportance(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	rels, err := q.Relationships(context.Background(), "Walter White")
	if err != nil {
		t.Fatalf("Relationships() error = %v", err)
	}
	if len(rels) != 2 {
		t.Fatalf("relationships = %d, want 2", len(rels))
	}
	if rels[0].OtherCharacter != "Jesse Pinkman" || rels[1].OtherCharacter != "Skyler White" {
		t.Errorf("order = [%s, %s], want most important first",
			rels[0].OtherCharacter, rels[1].OtherCharacter)
	}
	if rels[0].Type != model.RelProfessional {
		t.Errorf("type = %q", rels[0].Type)
	}
}

func TestProfile_WithProvider(t *testing.T) {
	t.Parallel()
	provider := &llmmock.Provider{
		CompleteFunc: func(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
			return &llm.CompletionResponse{Content: "A model-written profile."}, nil
		},
	}
	q := query.New(seedStore(t), query.WithProvider(provider))

	profile, err := q.Profile(context.Background(), "Walter White")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if profile.Summary != "A model-written profile." {
		t.Errorf("summary = %q", profile.Summary)
	}
	if len(profile.Relationships) != 2 {
		t.Errorf("relationships = %d, want 2", len(profile.Relationships))
	}
	if len(profile.KeyScenes) == 0 {
		t.Error("expected at least one key scene")
	}

	// The digest handed to the model carries the stored facts.
	calls := provider.Calls()
	if len(calls) != 1 {
		t.Fatalf("model calls = %d, want 1", len(calls))
	}
	digest := calls[0].Req.Messages[0].Content
	if !strings.Contains(digest, "Walter White") || !strings.Contains(digest, "Jesse Pinkman") {
		t.Errorf("digest missing facts: %q", digest)
	}
}

func TestProfile_WithoutProviderHasNoSummary(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	profile, err := q.Profile(context.Background(), "Jesse Pinkman")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	if profile.Summary != "" {
		t.Errorf("summary without provider = %q, want empty", profile.Summary)
	}
}

func TestPlotArc(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	arc, err := q.PlotArc(context.Background(), "the empire")
	if err != nil {
		t.Fatalf("PlotArc() error = %v", err)
	}
	if len(arc.Events) != 2 {
		t.Fatalf("events = %d, want 2", len(arc.Events))
	}
	// Airing order.
	if arc.Events[0].EpisodeID != "S01E01" || arc.Events[1].EpisodeID != "S01E02" {
		t.Errorf("event order = [%s, %s]", arc.Events[0].EpisodeID, arc.Events[1].EpisodeID)
	}
	want := []string{"S01E01", "S01E02"}
	if len(arc.EpisodesInvolved) != len(want) {
		t.Fatalf("episodes involved = %v, want %v", arc.EpisodesInvolved, want)
	}
	for i, id := range want {
		if arc.EpisodesInvolved[i] != id {
			t.Errorf("episodes involved = %v, want %v", arc.EpisodesInvolved, want)
			break
		}
	}
}

func TestPlotArc_UnknownArcIsEmpty(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	arc, err := q.PlotArc(context.Background(), "no such arc")
	if err != nil {
		t.Fatalf("PlotArc() error = %v", err)
	}
	if len(arc.Events) != 0 || len(arc.EpisodesInvolved) != 0 {
		t.Errorf("unknown arc returned events: %+v", arc)
	}
}

func TestTrackMystery(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	report, err := q.TrackMystery(context.Background(), "missing barrel")
	if err != nil {
		t.Fatalf("TrackMystery() error = %v", err)
	}
	if len(report.Clues) != 1 {
		t.Fatalf("clues = %d, want 1", len(report.Clues))
	}
	if report.Clues[0].Title != "The missing barrel" {
		t.Errorf("clue = %q", report.Clues[0].Title)
	}
	if len(report.Resolutions) != 1 {
		t.Fatalf("resolutions = %d, want 1", len(report.Resolutions))
	}
	if !report.Resolved() {
		t.Error("mystery with a resolution must report resolved")
	}
}

func TestContext(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	ec, err := q.Context(context.Background(), 1, 2)
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if ec.TargetEpisode != "S01E02" {
		t.Errorf("target = %q", ec.TargetEpisode)
	}
	if len(ec.PreviousEpisodes) != 1 || ec.PreviousEpisodes[0] != "S01E01" {
		t.Fatalf("previous episodes = %v, want [S01E01]", ec.PreviousEpisodes)
	}
	if ec.KnownCharacters["Walter White"] != "S01E01" {
		t.Errorf("known characters = %v", ec.KnownCharacters)
	}
	if _, known := ec.KnownCharacters["Skyler White"]; known {
		t.Error("Skyler White is introduced in the target episode, must not be known before it")
	}
	if len(ec.KnownRelationships) != 1 || !ec.KnownRelationships[0].Involves("Jesse Pinkman") {
		t.Errorf("known relationships = %+v", ec.KnownRelationships)
	}
	if len(ec.ActivePlotArcs) != 1 || ec.ActivePlotArcs[0] != "the empire" {
		t.Errorf("active plot arcs = %v", ec.ActivePlotArcs)
	}
}

func TestContext_BeforeFirstEpisode(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	ec, err := q.Context(context.Background(), 1, 1)
	if err != nil {
		t.Fatalf("Context() error = %v", err)
	}
	if len(ec.PreviousEpisodes) != 0 || len(ec.KnownCharacters) != 0 || len(ec.KnownRelationships) != 0 {
		t.Errorf("context before the first episode must be empty, got %+v", ec)
	}
}

func TestFindScenes(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	scenes, err := q.FindScenes(context.Background(), "argue in the lab", 5)
	if err != nil {
		t.Fatalf("FindScenes() error = %v", err)
	}
	if len(scenes) != 1 {
		t.Fatalf("scenes = %d, want 1", len(scenes))
	}
	if scenes[0].Scene.ID != "S01E01_S001" {
		t.Errorf("scene = %q", scenes[0].Scene.ID)
	}
	if scenes[0].Relevance != 1 {
		t.Errorf("relevance = %v, want 1 for a full term match", scenes[0].Relevance)
	}
}

func TestSearch_CoversAllCollections(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	results, err := q.Search(context.Background(), "Walter", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results.Matches) != 5 {
		t.Errorf("collections searched = %d, want 5", len(results.Matches))
	}
	if len(results.Matches[knowledge.Characters]) == 0 {
		t.Error("expected character matches for Walter")
	}
}

func TestSearch_CollectionFailureIsSoft(t *testing.T) {
	t.Parallel()
	store := seedStore(t)
	store.QueryErr = errors.New("index offline")
	q := query.New(store)

	results, err := q.Search(context.Background(), "Walter", 3)
	if err != nil {
		t.Fatalf("Search() must absorb collection failures, got %v", err)
	}
	if len(results.Matches) != 0 {
		t.Errorf("matches = %v, want none when every collection fails", results.Matches)
	}
}

func TestRelationshipGraph(t *testing.T) {
	t.Parallel()
	q := query.New(seedStore(t))

	graph, err := q.RelationshipGraph(context.Background())
	if err != nil {
		t.Fatalf("RelationshipGraph() error = %v", err)
	}
	if len(graph) != 3 {
		t.Fatalf("graph nodes = %d, want 3", len(graph))
	}
	walter := graph["Walter White"]
	if len(walter) != 2 {
		t.Fatalf("Walter's edges = %d, want 2", len(walter))
	}
	if walter[0].Other != "Jesse Pinkman" {
		t.Errorf("most important edge = %q, want Jesse Pinkman", walter[0].Other)
	}
	if len(graph["Jesse Pinkman"]) != 1 {
		t.Errorf("Jesse's edges = %d, want 1", len(graph["Jesse Pinkman"]))
	}
}
