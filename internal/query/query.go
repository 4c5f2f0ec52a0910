// Package query is the read side of the knowledge store: typed lookups and
// semantic searches over the five collections the pipeline writes.
//
// All operations are pure reads except the optional summary passes, which
// make one model call each and degrade to store-derived text when the model
// is unavailable.
package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/namematch"
	"github.com/plotwright/plotwright/internal/pipeline"
	"github.com/plotwright/plotwright/internal/prompt"
	"github.com/plotwright/plotwright/pkg/knowledge"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

// ErrCharacterNotFound is returned when a character lookup resolves nothing,
// even after fuzzy matching against the known roster.
var ErrCharacterNotFound = errors.New("query: character not found")

// ErrRelationshipNotFound is returned when no relationship exists between a
// pair, in either order.
var ErrRelationshipNotFound = errors.New("query: relationship not found")

// Interface answers questions about the series from the knowledge store.
// Construct with [New]; the zero value is not usable.
type Interface struct {
	store    knowledge.Store
	provider llm.Provider
	matcher  *namematch.Matcher
	log      *slog.Logger
}

// Option configures an [Interface].
type Option func(*Interface)

// WithProvider enables the model-backed summary passes on profile and plot
// arc lookups. Without a provider those fields stay empty.
func WithProvider(p llm.Provider) Option {
	return func(q *Interface) { q.provider = p }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(q *Interface) { q.log = log }
}

// WithNameMatcher overrides the character name canonicalizer used for
// forgiving lookups.
func WithNameMatcher(m *namematch.Matcher) Option {
	return func(q *Interface) { q.matcher = m }
}

// New creates a query interface over the store.
func New(store knowledge.Store, opts ...Option) *Interface {
	q := &Interface{
		store:   store,
		matcher: namematch.New(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// CharacterProfile is the full answer to a character lookup.
type CharacterProfile struct {
	Character     *model.Character
	Summary       string
	Relationships []RelationshipSummary
	KeyScenes     []SceneMatch
}

// RelationshipSummary is one relationship seen from one participant's side.
type RelationshipSummary struct {
	OtherCharacter     string
	Type               model.RelationshipType
	CurrentStatus      model.RelationshipStatus
	FirstInteraction   string
	ImportanceScore    float64
	EmotionalIntensity float64
}

// SceneMatch is one ranked scene from a semantic search. Relevance is
// 1 - distance, so higher is closer.
type SceneMatch struct {
	Scene     *model.Scene
	Relevance float64
}

// Character resolves a name to its stored record. Lookups are forgiving:
// an exact key miss falls back to fuzzy matching against every known
// character name, so transcript spellings find the canonical record.
func (q *Interface) Character(ctx context.Context, name string) (*model.Character, error) {
	rec, err := q.store.Get(ctx, knowledge.Characters, model.CharacterKey(name))
	if err == nil {
		return pipeline.DecodeCharacter(rec)
	}
	if !errors.Is(err, knowledge.ErrNotFound) {
		return nil, fmt.Errorf("query: get character %q: %w", name, err)
	}

	roster, err := q.rosterNames(ctx)
	if err != nil {
		return nil, err
	}
	canonical, _, ok := q.matcher.Canonicalize(name, roster)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCharacterNotFound, name)
	}
	rec, err = q.store.Get(ctx, knowledge.Characters, model.CharacterKey(canonical))
	if err != nil {
		return nil, fmt.Errorf("query: get character %q: %w", canonical, err)
	}
	return pipeline.DecodeCharacter(rec)
}

// Profile assembles the comprehensive character profile: the stored record,
// every relationship the character is part of, the ten most relevant scenes,
// and, with a provider configured, a model-written summary.
func (q *Interface) Profile(ctx context.Context, name string) (*CharacterProfile, error) {
	ch, err := q.Character(ctx, name)
	if err != nil {
		return nil, err
	}

	rels, err := q.Relationships(ctx, ch.Name)
	if err != nil {
		return nil, err
	}
	scenes, err := q.FindScenes(ctx, fmt.Sprintf("important scenes with %s", ch.Name), 10)
	if err != nil {
		return nil, err
	}

	profile := &CharacterProfile{
		Character:     ch,
		Relationships: rels,
		KeyScenes:     scenes,
	}
	profile.Summary = q.summarize(ctx, characterDigest(ch, rels))
	return profile, nil
}

// Relationships returns every relationship the character participates in,
// most important first.
func (q *Interface) Relationships(ctx context.Context, name string) ([]RelationshipSummary, error) {
	recs, err := q.store.List(ctx, knowledge.Relationships, nil)
	if err != nil {
		return nil, fmt.Errorf("query: list relationships: %w", err)
	}

	var out []RelationshipSummary
	for i := range recs {
		rel, err := pipeline.DecodeRelationship(&recs[i])
		if err != nil {
			q.log.Warn("skipping undecodable relationship", "id", recs[i].ID, "error", err)
			continue
		}
		if !rel.Involves(name) {
			continue
		}
		out = append(out, RelationshipSummary{
			OtherCharacter:     rel.OtherCharacter(name),
			Type:               rel.Type,
			CurrentStatus:      rel.CurrentStatus,
			FirstInteraction:   rel.FirstInteraction,
			ImportanceScore:    rel.ImportanceScore,
			EmotionalIntensity: rel.EmotionalIntensity,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImportanceScore > out[j].ImportanceScore
	})
	return out, nil
}

// RelationshipHistory is the full answer to a pair lookup.
type RelationshipHistory struct {
	Relationship      *model.Relationship
	InteractionScenes []SceneMatch
}

// Relationship looks up the pair's record. The stored key is symmetric, so
// either argument order resolves the same record.
func (q *Interface) Relationship(ctx context.Context, character1, character2 string) (*model.Relationship, error) {
	key := model.RelationshipKey(character1, character2)
	rec, err := q.store.Get(ctx, knowledge.Relationships, key)
	if errors.Is(err, knowledge.ErrNotFound) {
		return nil, fmt.Errorf("%w: %q and %q", ErrRelationshipNotFound, character1, character2)
	}
	if err != nil {
		return nil, fmt.Errorf("query: get relationship %q: %w", key, err)
	}
	return pipeline.DecodeRelationship(rec)
}

// History returns the pair's relationship with the scenes where they
// interact.
func (q *Interface) History(ctx context.Context, character1, character2 string) (*RelationshipHistory, error) {
	rel, err := q.Relationship(ctx, character1, character2)
	if err != nil {
		return nil, err
	}
	scenes, err := q.FindScenes(ctx,
		fmt.Sprintf("%s and %s interact together", rel.Character1, rel.Character2), 10)
	if err != nil {
		return nil, err
	}
	return &RelationshipHistory{Relationship: rel, InteractionScenes: scenes}, nil
}

// PlotArcSummary is the aggregate view of one named plot arc.
type PlotArcSummary struct {
	Arc              string
	Summary          string
	Events           []*model.PlotEvent
	EpisodesInvolved []string
}

// PlotArc collects every event tagged with the arc, the episodes it spans,
// and, with a provider configured, a model-written summary of the arc.
func (q *Interface) PlotArc(ctx context.Context, arc string) (*PlotArcSummary, error) {
	recs, err := q.store.List(ctx, knowledge.PlotEvents, map[string]any{"plot_arc": arc})
	if err != nil {
		return nil, fmt.Errorf("query: list plot arc %q: %w", arc, err)
	}

	out := &PlotArcSummary{Arc: arc}
	episodes := map[string]struct{}{}
	for i := range recs {
		ev, err := pipeline.DecodeEvent(&recs[i])
		if err != nil {
			q.log.Warn("skipping undecodable plot event", "id", recs[i].ID, "error", err)
			continue
		}
		out.Events = append(out.Events, ev)
		if ev.EpisodeID != "" {
			episodes[ev.EpisodeID] = struct{}{}
		}
	}
	sortEventsByEpisode(out.Events)
	for id := range episodes {
		out.EpisodesInvolved = append(out.EpisodesInvolved, id)
	}
	sort.Strings(out.EpisodesInvolved)

	out.Summary = q.summarize(ctx, arcDigest(out))
	return out, nil
}

// FindScenes runs a semantic search over the scenes collection.
func (q *Interface) FindScenes(ctx context.Context, description string, n int) ([]SceneMatch, error) {
	results, err := q.store.Query(ctx, knowledge.Scenes, description, n, nil)
	if err != nil {
		return nil, fmt.Errorf("query: search scenes: %w", err)
	}
	var out []SceneMatch
	for i := range results {
		sc, err := pipeline.DecodeScene(&results[i].Record)
		if err != nil {
			q.log.Warn("skipping undecodable scene", "id", results[i].ID, "error", err)
			continue
		}
		out = append(out, SceneMatch{Scene: sc, Relevance: 1 - results[i].Distance})
	}
	return out, nil
}

// rosterNames lists every known character name.
func (q *Interface) rosterNames(ctx context.Context) ([]string, error) {
	recs, err := q.store.List(ctx, knowledge.Characters, nil)
	if err != nil {
		return nil, fmt.Errorf("query: list characters: %w", err)
	}
	names := make([]string, 0, len(recs))
	for _, rec := range recs {
		if name, _ := rec.Metadata["name"].(string); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// summarize runs one model pass over digest. Without a provider, or when the
// model fails, it returns "" and the caller's struct simply carries no
// summary.
func (q *Interface) summarize(ctx context.Context, digest string) string {
	if q.provider == nil || digest == "" {
		return ""
	}
	resp, err := q.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     []llm.Message{{Role: "user", Content: digest}},
		SystemPrompt: prompt.Get(prompt.ContentSummary),
		Temperature:  0.3,
	})
	if err != nil {
		q.log.Warn("summary pass failed", "error", err)
		return ""
	}
	return strings.TrimSpace(resp.Content)
}

func characterDigest(ch *model.Character, rels []RelationshipSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Character: %s (%s)\n", ch.Name, ch.Role)
	if ch.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", ch.Description)
	}
	if len(ch.PersonalityTraits) > 0 {
		fmt.Fprintf(&b, "Traits: %s\n", strings.Join(ch.PersonalityTraits, ", "))
	}
	if ch.CharacterArc != "" {
		fmt.Fprintf(&b, "Arc: %s\n", ch.CharacterArc)
	}
	for _, change := range ch.CharacterChanges {
		fmt.Fprintf(&b, "Development (%s): %s\n", change.EpisodeID, change.Description)
	}
	for _, rel := range rels {
		fmt.Fprintf(&b, "Relationship with %s: %s, currently %s\n",
			rel.OtherCharacter, rel.Type, rel.CurrentStatus)
	}
	return b.String()
}

func arcDigest(arc *PlotArcSummary) string {
	if len(arc.Events) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Plot arc: %s\n", arc.Arc)
	for _, ev := range arc.Events {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", ev.EpisodeID, ev.Title, ev.Description)
	}
	return b.String()
}

// sortEventsByEpisode orders events by episode then sequence within the
// episode. Episode IDs sort lexically in airing order.
func sortEventsByEpisode(events []*model.PlotEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].EpisodeID != events[j].EpisodeID {
			return events[i].EpisodeID < events[j].EpisodeID
		}
		return events[i].ID < events[j].ID
	})
}
