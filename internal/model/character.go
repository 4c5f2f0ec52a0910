package model

import (
	"strings"
	"time"
)

// CharacterRole classifies a character's role in the series.
type CharacterRole string

// Recognised character roles.
const (
	RoleProtagonist CharacterRole = "protagonist"
	RoleAntagonist  CharacterRole = "antagonist"
	RoleSupporting  CharacterRole = "supporting"
	RoleMinor       CharacterRole = "minor"
	RoleGuest       CharacterRole = "guest"
	RoleRecurring   CharacterRole = "recurring"
)

var characterRoles = map[string]CharacterRole{
	"protagonist": RoleProtagonist,
	"antagonist":  RoleAntagonist,
	"supporting":  RoleSupporting,
	"minor":       RoleMinor,
	"guest":       RoleGuest,
	"recurring":   RoleRecurring,
}

// ParseCharacterRole maps free-text model output to a CharacterRole.
// Unrecognised values fall back to RoleMinor. The fallback is deliberate
// policy: an unclassifiable character is assumed unimportant until proven
// otherwise.
func ParseCharacterRole(s string) CharacterRole {
	if r, ok := characterRoles[normalizeEnum(s)]; ok {
		return r
	}
	return RoleMinor
}

// CharacterKey normalizes a character name into its identity key:
// lowercased with spaces replaced by underscores.
func CharacterKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// CharacterChange is one timestamped entry in a character's development
// history.
type CharacterChange struct {
	// Description says what changed.
	Description string `json:"description"`

	// EpisodeID locates the change in the series.
	EpisodeID string `json:"episode_id"`

	// SceneID locates the change within the episode, if known.
	SceneID string `json:"scene_id,omitempty"`

	// Timestamp records when the change was extracted.
	Timestamp time.Time `json:"timestamp"`
}

// Character is the accumulated knowledge about one named character.
//
// A Character is created exactly once per unique name per series. Later
// encounters update the existing record through the append helpers; the
// pipeline's known-names set guarantees no duplicate record is ever created
// for the same person.
type Character struct {
	// Name is the canonical character name.
	Name string `json:"name"`

	// Aliases lists alternative names, deduplicated, never containing Name
	// itself.
	Aliases []string `json:"aliases"`

	// Role classifies the character in the series.
	Role CharacterRole `json:"role"`

	// Description is a free-text physical description.
	Description string `json:"description,omitempty"`

	// Occupation is the character's job, if known.
	Occupation string `json:"occupation,omitempty"`

	// Age is the character's age as free text (may be approximate).
	Age string `json:"age,omitempty"`

	// Background is free-text history.
	Background string `json:"background,omitempty"`

	// PersonalityTraits lists key traits, deduplicated on append.
	PersonalityTraits []string `json:"personality_traits"`

	// SkillsAbilities lists special skills, deduplicated on append.
	SkillsAbilities []string `json:"skills_abilities"`

	// GoalsMotivations lists goals, deduplicated on append.
	GoalsMotivations []string `json:"goals_motivations"`

	// FearsWeaknesses lists fears and weaknesses, deduplicated on append.
	FearsWeaknesses []string `json:"fears_weaknesses"`

	// CharacterArc is the overall development arc as free text.
	CharacterArc string `json:"character_arc,omitempty"`

	// ImportantQuotes lists memorable quotes, deduplicated on append.
	ImportantQuotes []string `json:"important_quotes"`

	// KeyScenes lists scene IDs of important character moments.
	KeyScenes []string `json:"key_scenes"`

	// FirstAppearance is the episode ID of the first appearance. Set once,
	// never overwritten.
	FirstAppearance string `json:"first_appearance,omitempty"`

	// LastAppearance is the episode ID of the latest appearance. Advances
	// monotonically as appearances are recorded.
	LastAppearance string `json:"last_appearance,omitempty"`

	// EpisodeAppearances lists every episode the character appears in,
	// deduplicated, insertion-ordered.
	EpisodeAppearances []string `json:"episode_appearances"`

	// CharacterChanges is the timestamped development history.
	CharacterChanges []CharacterChange `json:"character_changes"`

	// Relationships lists relationship IDs this character participates in.
	Relationships []string `json:"relationships"`

	// ImportanceScore is the character importance in [0, 1].
	ImportanceScore float64 `json:"importance_score"`

	// CreatedAt records when the character was first extracted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt records the last mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewCharacter constructs a Character with default role and score.
func NewCharacter(name string) *Character {
	now := time.Now()
	return &Character{
		Name:            name,
		Role:            RoleMinor,
		ImportanceScore: 0.5,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Key returns the character's identity key.
func (c *Character) Key() string {
	return CharacterKey(c.Name)
}

// AddAlias records an alternative name, ignoring duplicates and the
// canonical name itself.
func (c *Character) AddAlias(alias string) {
	if alias == c.Name {
		return
	}
	c.Aliases = appendUnique(c.Aliases, alias)
}

// AddPersonalityTrait records a trait, ignoring duplicates.
func (c *Character) AddPersonalityTrait(trait string) {
	c.PersonalityTraits = appendUnique(c.PersonalityTraits, trait)
}

// AddSkill records a skill or ability, ignoring duplicates.
func (c *Character) AddSkill(skill string) {
	c.SkillsAbilities = appendUnique(c.SkillsAbilities, skill)
}

// AddGoal records a goal or motivation, ignoring duplicates.
func (c *Character) AddGoal(goal string) {
	c.GoalsMotivations = appendUnique(c.GoalsMotivations, goal)
}

// AddFear records a fear or weakness, ignoring duplicates.
func (c *Character) AddFear(fear string) {
	c.FearsWeaknesses = appendUnique(c.FearsWeaknesses, fear)
}

// AddQuote records a memorable quote, ignoring duplicates.
func (c *Character) AddQuote(quote string) {
	c.ImportantQuotes = appendUnique(c.ImportantQuotes, quote)
}

// AddAppearance records an episode appearance. The first recorded episode
// becomes FirstAppearance permanently; LastAppearance always advances to the
// most recently recorded episode.
func (c *Character) AddAppearance(episodeID string) {
	c.EpisodeAppearances = appendUnique(c.EpisodeAppearances, episodeID)
	if c.FirstAppearance == "" {
		c.FirstAppearance = episodeID
	}
	c.LastAppearance = episodeID
	c.UpdatedAt = time.Now()
}

// AddChange appends a development entry to the character's history.
func (c *Character) AddChange(description, episodeID, sceneID string) {
	c.CharacterChanges = append(c.CharacterChanges, CharacterChange{
		Description: description,
		EpisodeID:   episodeID,
		SceneID:     sceneID,
		Timestamp:   time.Now(),
	})
	c.UpdatedAt = time.Now()
}

// AddRelationship records a relationship ID, ignoring duplicates.
func (c *Character) AddRelationship(relationshipID string) {
	c.Relationships = appendUnique(c.Relationships, relationshipID)
}
