package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/normalize"
	"github.com/plotwright/plotwright/internal/prompt"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

// Pair is one interacting character pair, in the order the model reported it.
type Pair struct {
	Character1 string
	Character2 string
}

// Key returns the order-independent identity of the pair.
func (p Pair) Key() string {
	return model.RelationshipKey(p.Character1, p.Character2)
}

// RelationshipExtractor discovers which character pairs interact in a scene
// and analyzes each pair's relationship.
type RelationshipExtractor struct {
	caller
}

// NewRelationshipExtractor creates an extractor backed by provider.
func NewRelationshipExtractor(provider llm.Provider, opts ...Option) *RelationshipExtractor {
	return &RelationshipExtractor{caller: newCaller(provider, opts...)}
}

// Pairs returns the interacting pairs the model found in content, validated
// against present: both names must resolve to someone in the scene, self
// pairs are dropped, and symmetric duplicates collapse to one pair. Names in
// the result are the canonical names from present, not the model's spelling.
// A model failure degrades to no pairs.
func (e *RelationshipExtractor) Pairs(ctx context.Context, content string, present []string) ([]Pair, error) {
	if len(present) < 2 {
		return nil, nil
	}

	user := fmt.Sprintf("Characters present: %s\n\nScene content:\n%s", strings.Join(present, ", "), content)
	resp, err := e.complete(ctx, "relationship_pairs", prompt.Get(prompt.RelationshipPairs), user)
	if err != nil {
		return nil, e.degraded(ctx, "relationship pair identification failed", err)
	}

	roster := make(map[string]string, len(present))
	for _, name := range present {
		roster[model.CharacterKey(name)] = name
	}

	var pairs []Pair
	seen := map[string]struct{}{}
	for _, line := range normalize.ParseLines(resp) {
		left, right, ok := strings.Cut(line, "|")
		if !ok {
			continue
		}
		c1, ok1 := roster[model.CharacterKey(left)]
		c2, ok2 := roster[model.CharacterKey(right)]
		if !ok1 || !ok2 || c1 == c2 {
			continue
		}
		p := Pair{Character1: c1, Character2: c2}
		if _, dup := seen[p.Key()]; dup {
			continue
		}
		seen[p.Key()] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// Details analyzes the relationship between the pair from content and returns
// a fresh record. A nil record with nil error means the model reported no
// meaningful relationship (the literal "null" response) or the analysis
// failed; callers skip the pair in both cases.
func (e *RelationshipExtractor) Details(ctx context.Context, p Pair, content string) (*model.Relationship, error) {
	system, err := prompt.Render(prompt.RelationshipDetails, map[string]string{
		"char1": p.Character1,
		"char2": p.Character2,
	})
	if err != nil {
		return nil, err
	}
	resp, err := e.complete(ctx, "relationship_details", system, content)
	if err != nil {
		return nil, e.degraded(ctx, "relationship analysis failed, skipping pair", err,
			"character1", p.Character1, "character2", p.Character2)
	}
	if strings.EqualFold(strings.TrimSpace(resp), "null") {
		return nil, nil
	}
	obj, err := normalize.ParseObject(resp)
	if err != nil {
		return nil, e.degraded(ctx, "relationship analysis unparseable, skipping pair", err,
			"character1", p.Character1, "character2", p.Character2)
	}

	rel := model.NewRelationship(p.Character1, p.Character2,
		model.ParseRelationshipType(obj.String("type", string(model.RelAcquaintance))))
	rel.CurrentStatus = model.ParseRelationshipStatus(obj.String("status", string(model.StatusUnknown)))
	rel.Description = obj.String("description", "")
	rel.HowTheyMet = obj.String("how_they_met", "")
	rel.Dynamic = obj.String("dynamic", "")
	for _, line := range obj.StringList("key_dialogue") {
		rel.AddDialogue(line)
	}
	rel.ImportanceScore = clamp01(obj.Float("importance_score", 0.5))
	rel.EmotionalIntensity = clamp01(obj.Float("emotional_intensity", 0.5))
	return rel, nil
}
