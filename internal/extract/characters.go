package extract

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/normalize"
	"github.com/plotwright/plotwright/internal/prompt"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

// CharacterExtractor identifies named characters in scene content, builds
// full profiles for characters seen for the first time, and extracts
// development updates for characters already on record.
type CharacterExtractor struct {
	caller
}

// NewCharacterExtractor creates an extractor backed by provider. Profile
// calls for multiple new characters in the same scene run concurrently,
// bounded by [WithProfileConcurrency] (default 4).
func NewCharacterExtractor(provider llm.Provider, opts ...Option) *CharacterExtractor {
	return &CharacterExtractor{caller: newCaller(provider, opts...)}
}

// Identify returns the named characters found in content, one per response
// line, blank lines dropped. A model failure degrades to an empty list.
func (e *CharacterExtractor) Identify(ctx context.Context, content string) ([]string, error) {
	resp, err := e.complete(ctx, "character_identification", prompt.Get(prompt.CharacterIdentification), content)
	if err != nil {
		return nil, e.degraded(ctx, "character identification failed", err)
	}

	var names []string
	seen := map[string]struct{}{}
	for _, line := range normalize.ParseLines(resp) {
		key := model.CharacterKey(line)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, line)
	}
	return names, nil
}

// Profile builds a full character record for name from content. A model or
// parse failure degrades to a bare record carrying only the name and
// defaults.
func (e *CharacterExtractor) Profile(ctx context.Context, name, content string) (*model.Character, error) {
	ch := model.NewCharacter(name)

	system, err := prompt.Render(prompt.CharacterProfile, map[string]string{"character": name})
	if err != nil {
		return nil, err
	}
	resp, err := e.complete(ctx, "character_profile", system, content)
	if err != nil {
		return ch, e.degraded(ctx, "character profile failed, keeping defaults", err, "character", name)
	}
	obj, err := normalize.ParseObject(resp)
	if err != nil {
		return ch, e.degraded(ctx, "character profile unparseable, keeping defaults", err, "character", name)
	}

	for _, alias := range obj.StringList("aliases") {
		ch.AddAlias(alias)
	}
	ch.Role = model.ParseCharacterRole(obj.String("role", string(model.RoleMinor)))
	ch.Description = obj.String("description", "")
	ch.Occupation = obj.String("occupation", "")
	ch.Age = obj.String("age", "")
	ch.Background = obj.String("background", "")
	for _, trait := range obj.StringList("personality_traits") {
		ch.AddPersonalityTrait(trait)
	}
	for _, skill := range obj.StringList("skills_abilities") {
		ch.AddSkill(skill)
	}
	for _, goal := range obj.StringList("goals_motivations") {
		ch.AddGoal(goal)
	}
	for _, fear := range obj.StringList("fears_weaknesses") {
		ch.AddFear(fear)
	}
	ch.CharacterArc = obj.String("character_arc", "")
	for _, quote := range obj.StringList("important_quotes") {
		ch.AddQuote(quote)
	}
	ch.ImportanceScore = clamp01(obj.Float("importance_score", 0.5))
	return ch, nil
}

// ProfileAll builds profiles for every name concurrently. Results preserve
// the order of names. Only context cancellation aborts the group; individual
// failures degrade per Profile.
func (e *CharacterExtractor) ProfileAll(ctx context.Context, names []string, content string) ([]*model.Character, error) {
	out := make([]*model.Character, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.profileConcurrency)
	for i, name := range names {
		g.Go(func() error {
			ch, err := e.Profile(gctx, name, content)
			if err != nil {
				return err
			}
			out[i] = ch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update extracts development information for an already-known character from
// content and applies it to ch. A model or parse failure leaves ch untouched.
func (e *CharacterExtractor) Update(ctx context.Context, ch *model.Character, content, episodeID, sceneID string) error {
	system, err := prompt.Render(prompt.CharacterUpdates, map[string]string{"character": ch.Name})
	if err != nil {
		return err
	}
	resp, err := e.complete(ctx, "character_update", system, content)
	if err != nil {
		return e.degraded(ctx, "character update failed, skipping", err, "character", ch.Name)
	}
	obj, err := normalize.ParseObject(resp)
	if err != nil {
		return e.degraded(ctx, "character update unparseable, skipping", err, "character", ch.Name)
	}

	for _, trait := range obj.StringList("new_personality_traits") {
		ch.AddPersonalityTrait(trait)
	}
	for _, change := range obj.StringList("character_changes") {
		ch.AddChange(change, episodeID, sceneID)
	}
	for _, quote := range obj.StringList("new_quotes") {
		ch.AddQuote(quote)
	}
	for _, goal := range obj.StringList("new_goals_motivations") {
		ch.AddGoal(goal)
	}
	for _, skill := range obj.StringList("new_skills_abilities") {
		ch.AddSkill(skill)
	}
	if info := obj.String("new_background_info", ""); info != "" {
		if ch.Background == "" {
			ch.Background = info
		} else if !strings.Contains(ch.Background, info) {
			ch.Background += "\n" + info
		}
	}
	if arc := obj.String("character_arc_progression", ""); arc != "" {
		if ch.CharacterArc == "" {
			ch.CharacterArc = arc
		} else if !strings.Contains(ch.CharacterArc, arc) {
			ch.CharacterArc += "\n" + arc
		}
	}
	return nil
}

// clamp01 bounds a model-reported score to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
