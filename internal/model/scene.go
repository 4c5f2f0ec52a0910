package model

import "time"

// EmotionalTone labels the mood of a scene.
type EmotionalTone string

// Recognised emotional tones.
const (
	ToneHappy      EmotionalTone = "happy"
	ToneSad        EmotionalTone = "sad"
	ToneTense      EmotionalTone = "tense"
	ToneRomantic   EmotionalTone = "romantic"
	ToneComedic    EmotionalTone = "comedic"
	ToneDramatic   EmotionalTone = "dramatic"
	ToneMysterious EmotionalTone = "mysterious"
	ToneAction     EmotionalTone = "action"
	TonePeaceful   EmotionalTone = "peaceful"
	ToneAngry      EmotionalTone = "angry"
	ToneFearful    EmotionalTone = "fearful"
	ToneNostalgic  EmotionalTone = "nostalgic"
)

var emotionalTones = map[string]EmotionalTone{
	"happy":      ToneHappy,
	"sad":        ToneSad,
	"tense":      ToneTense,
	"romantic":   ToneRomantic,
	"comedic":    ToneComedic,
	"dramatic":   ToneDramatic,
	"mysterious": ToneMysterious,
	"action":     ToneAction,
	"peaceful":   TonePeaceful,
	"angry":      ToneAngry,
	"fearful":    ToneFearful,
	"nostalgic":  ToneNostalgic,
}

// ParseEmotionalTone maps free-text model output to an EmotionalTone.
// Unrecognised values are dropped (ok == false) rather than defaulted; a
// scene simply ends up with fewer tone tags.
func ParseEmotionalTone(s string) (EmotionalTone, bool) {
	t, ok := emotionalTones[normalizeEnum(s)]
	return t, ok
}

// Scene is one contiguous segment of an episode's transcript.
//
// Identity is always derived from the parent episode and the 1-based scene
// number; it is never assigned directly. Scene numbers are contiguous within
// an episode.
type Scene struct {
	// ID is the derived identifier, e.g. "S01E03_S002".
	ID string `json:"id"`

	// EpisodeID is the parent episode's identifier.
	EpisodeID string `json:"episode_id"`

	// SceneNumber is the 1-based position within the episode.
	SceneNumber int `json:"scene_number"`

	// Content is the raw scene text.
	Content string `json:"content"`

	// Summary is the generated scene summary, if any.
	Summary string `json:"summary,omitempty"`

	// Location is the scene's setting, if identified.
	Location string `json:"location,omitempty"`

	// TimeOfDay is when the scene occurs, if identified.
	TimeOfDay string `json:"time_of_day,omitempty"`

	// CharactersPresent lists characters in the scene, insertion-ordered and
	// deduplicated.
	CharactersPresent []string `json:"characters_present"`

	// KeyDialogue lists important dialogue lines.
	KeyDialogue []string `json:"key_dialogue"`

	// PlotEvents lists plot event references occurring in the scene.
	PlotEvents []string `json:"plot_events"`

	// CharacterDevelopments lists character development notes.
	CharacterDevelopments []string `json:"character_developments"`

	// RelationshipDynamics lists relationship interaction notes.
	RelationshipDynamics []string `json:"relationship_dynamics"`

	// EmotionalTone lists tone tags present, deduplicated.
	EmotionalTone []EmotionalTone `json:"emotional_tone"`

	// MoodDescription is a free-text mood description.
	MoodDescription string `json:"mood_description,omitempty"`

	// PlotRelevance scores relevance to the main plot in [0, 1].
	PlotRelevance float64 `json:"plot_relevance"`

	// Foreshadowing lists foreshadowing elements.
	Foreshadowing []string `json:"foreshadowing"`

	// Callbacks lists references to earlier events.
	Callbacks []string `json:"callbacks"`

	// ImportanceScore is the scene importance in [0, 1].
	ImportanceScore float64 `json:"importance_score"`

	// Themes lists themes explored in the scene.
	Themes []string `json:"themes"`

	// ProcessedAt records when the scene was extracted.
	ProcessedAt time.Time `json:"processed_at"`
}

// NewScene constructs a Scene with its derived ID and default scores.
func NewScene(episodeID string, sceneNumber int, content string) *Scene {
	return &Scene{
		ID:              SceneID(episodeID, sceneNumber),
		EpisodeID:       episodeID,
		SceneNumber:     sceneNumber,
		Content:         content,
		PlotRelevance:   0.5,
		ImportanceScore: 0.5,
		ProcessedAt:     time.Now(),
	}
}

// AddCharacter records a character present in the scene, ignoring duplicates.
func (s *Scene) AddCharacter(name string) {
	s.CharactersPresent = appendUnique(s.CharactersPresent, name)
}

// AddKeyDialogue records an important dialogue line, ignoring duplicates.
func (s *Scene) AddKeyDialogue(line string) {
	s.KeyDialogue = appendUnique(s.KeyDialogue, line)
}

// AddPlotEvent records a plot event reference, ignoring duplicates.
func (s *Scene) AddPlotEvent(event string) {
	s.PlotEvents = appendUnique(s.PlotEvents, event)
}

// AddEmotionalTone records a tone tag, ignoring duplicates.
func (s *Scene) AddEmotionalTone(tone EmotionalTone) {
	for _, existing := range s.EmotionalTone {
		if existing == tone {
			return
		}
	}
	s.EmotionalTone = append(s.EmotionalTone, tone)
}

// SetScores clamps and stores the relevance and importance scores.
func (s *Scene) SetScores(plotRelevance, importance float64) {
	s.PlotRelevance = clampScore(plotRelevance)
	s.ImportanceScore = clampScore(importance)
}
