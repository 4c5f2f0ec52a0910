package model

import (
	"strings"
	"time"
)

// RelationshipType classifies the bond between two characters.
type RelationshipType string

// Recognised relationship types.
const (
	RelFamily        RelationshipType = "family"
	RelRomantic      RelationshipType = "romantic"
	RelFriendship    RelationshipType = "friendship"
	RelRivalry       RelationshipType = "rivalry"
	RelProfessional  RelationshipType = "professional"
	RelMentorStudent RelationshipType = "mentor_student"
	RelEnemy         RelationshipType = "enemy"
	RelAcquaintance  RelationshipType = "acquaintance"
	RelAlliance      RelationshipType = "alliance"
	RelComplicated   RelationshipType = "complicated"
)

var relationshipTypes = map[string]RelationshipType{
	"family":         RelFamily,
	"romantic":       RelRomantic,
	"friendship":     RelFriendship,
	"rivalry":        RelRivalry,
	"professional":   RelProfessional,
	"mentor_student": RelMentorStudent,
	"enemy":          RelEnemy,
	"acquaintance":   RelAcquaintance,
	"alliance":       RelAlliance,
	"complicated":    RelComplicated,
}

// ParseRelationshipType maps free-text model output to a RelationshipType.
// Unrecognised values fall back to RelAcquaintance, the weakest claim the
// system can make about two characters who interacted.
func ParseRelationshipType(s string) RelationshipType {
	if t, ok := relationshipTypes[normalizeEnum(s)]; ok {
		return t
	}
	return RelAcquaintance
}

// RelationshipStatus is the current state of a relationship.
type RelationshipStatus string

// Recognised relationship statuses.
const (
	StatusDeveloping  RelationshipStatus = "developing"
	StatusEstablished RelationshipStatus = "established"
	StatusStrained    RelationshipStatus = "strained"
	StatusBroken      RelationshipStatus = "broken"
	StatusReconciled  RelationshipStatus = "reconciled"
	StatusEnded       RelationshipStatus = "ended"
	StatusUnknown     RelationshipStatus = "unknown"
)

var relationshipStatuses = map[string]RelationshipStatus{
	"developing":  StatusDeveloping,
	"established": StatusEstablished,
	"strained":    StatusStrained,
	"broken":      StatusBroken,
	"reconciled":  StatusReconciled,
	"ended":       StatusEnded,
	"unknown":     StatusUnknown,
}

// ParseRelationshipStatus maps free-text model output to a
// RelationshipStatus. Unrecognised values fall back to StatusUnknown.
func ParseRelationshipStatus(s string) RelationshipStatus {
	if st, ok := relationshipStatuses[normalizeEnum(s)]; ok {
		return st
	}
	return StatusUnknown
}

// RelationshipKey derives the order-independent identity for a character
// pair: the two names sorted, joined with "_", lowercased, spaces replaced
// by underscores. RelationshipKey(a, b) == RelationshipKey(b, a) always.
func RelationshipKey(a, b string) string {
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	key := first + "_" + second
	return strings.ToLower(strings.ReplaceAll(key, " ", "_"))
}

// RelationshipChange is one entry in a relationship's status history.
type RelationshipChange struct {
	// EpisodeID locates the change in the series.
	EpisodeID string `json:"episode_id"`

	// SceneID locates the change within the episode, if known.
	SceneID string `json:"scene_id,omitempty"`

	// OldStatus is the status before the change.
	OldStatus RelationshipStatus `json:"old_status,omitempty"`

	// NewStatus is the status after the change.
	NewStatus RelationshipStatus `json:"new_status"`

	// Description says what changed.
	Description string `json:"description"`

	// KeyMoment is the dialogue or action that caused the change, if known.
	KeyMoment string `json:"key_moment,omitempty"`

	// Timestamp records when the change was extracted.
	Timestamp time.Time `json:"timestamp"`
}

// Relationship is the accumulated knowledge about the bond between two
// characters.
//
// Identity is symmetric: (A, B) and (B, A) resolve to the same record.
// Status changes go through AddChange, which appends to the ordered history
// and advances CurrentStatus.
type Relationship struct {
	// ID is the order-independent key from RelationshipKey.
	ID string `json:"id"`

	// Character1 and Character2 are the two participants, in the order they
	// were first reported.
	Character1 string `json:"character1"`
	Character2 string `json:"character2"`

	// Type classifies the relationship.
	Type RelationshipType `json:"relationship_type"`

	// CurrentStatus is the latest known status.
	CurrentStatus RelationshipStatus `json:"current_status"`

	// Description is free text about the relationship.
	Description string `json:"description,omitempty"`

	// HowTheyMet records the first meeting, if known.
	HowTheyMet string `json:"how_they_met,omitempty"`

	// Dynamic describes the overall dynamic between the characters.
	Dynamic string `json:"relationship_dynamic,omitempty"`

	// FirstInteraction is the episode ID of the first observed interaction.
	FirstInteraction string `json:"first_interaction,omitempty"`

	// KeyScenes lists important scenes for this relationship.
	KeyScenes []string `json:"key_scenes"`

	// ImportantDialogue lists key exchanges between the characters.
	ImportantDialogue []string `json:"important_dialogue"`

	// Changes is the ordered status-change history.
	Changes []RelationshipChange `json:"relationship_changes"`

	// ImportanceScore is the relationship importance in [0, 1].
	ImportanceScore float64 `json:"importance_score"`

	// EmotionalIntensity scores how emotionally charged the bond is in [0, 1].
	EmotionalIntensity float64 `json:"emotional_intensity"`

	// CreatedAt records when the relationship was first extracted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt records the last mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRelationship constructs a Relationship between two characters with its
// derived symmetric ID and default scores.
func NewRelationship(character1, character2 string, relType RelationshipType) *Relationship {
	now := time.Now()
	return &Relationship{
		ID:                 RelationshipKey(character1, character2),
		Character1:         character1,
		Character2:         character2,
		Type:               relType,
		CurrentStatus:      StatusUnknown,
		ImportanceScore:    0.5,
		EmotionalIntensity: 0.5,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// Involves reports whether name is one of the two participants.
func (r *Relationship) Involves(name string) bool {
	return name == r.Character1 || name == r.Character2
}

// OtherCharacter returns the participant that is not name, or "" if name is
// not part of this relationship.
func (r *Relationship) OtherCharacter(name string) string {
	switch name {
	case r.Character1:
		return r.Character2
	case r.Character2:
		return r.Character1
	}
	return ""
}

// AddKeyScene records an important scene, ignoring duplicates.
func (r *Relationship) AddKeyScene(sceneID string) {
	r.KeyScenes = appendUnique(r.KeyScenes, sceneID)
}

// AddDialogue records a key exchange, ignoring duplicates.
func (r *Relationship) AddDialogue(dialogue string) {
	r.ImportantDialogue = appendUnique(r.ImportantDialogue, dialogue)
}

// AddChange appends a status change to the history and advances
// CurrentStatus to newStatus.
func (r *Relationship) AddChange(episodeID string, newStatus RelationshipStatus, description, sceneID, keyMoment string) {
	r.Changes = append(r.Changes, RelationshipChange{
		EpisodeID:   episodeID,
		SceneID:     sceneID,
		OldStatus:   r.CurrentStatus,
		NewStatus:   newStatus,
		Description: description,
		KeyMoment:   keyMoment,
		Timestamp:   time.Now(),
	})
	r.CurrentStatus = newStatus
	r.UpdatedAt = time.Now()
}
