package model

import "time"

// EventType classifies a plot event's narrative function.
type EventType string

// Recognised event types.
const (
	EventMainPlot             EventType = "main_plot"
	EventSubplot              EventType = "subplot"
	EventCharacterDevelopment EventType = "character_development"
	EventWorldBuilding        EventType = "world_building"
	EventMysteryClue          EventType = "mystery_clue"
	EventMysteryResolution    EventType = "mystery_resolution"
	EventConflictIntroduction EventType = "conflict_introduction"
	EventConflictEscalation   EventType = "conflict_escalation"
	EventConflictResolution   EventType = "conflict_resolution"
	EventRevelation           EventType = "revelation"
	EventTwist                EventType = "twist"
	EventCliffhanger          EventType = "cliffhanger"
	EventFlashback            EventType = "flashback"
	EventForeshadowing        EventType = "foreshadowing"
	EventCallback             EventType = "callback"
)

var eventTypes = map[string]EventType{
	"main_plot":             EventMainPlot,
	"subplot":               EventSubplot,
	"character_development": EventCharacterDevelopment,
	"world_building":        EventWorldBuilding,
	"mystery_clue":          EventMysteryClue,
	"mystery_resolution":    EventMysteryResolution,
	"conflict_introduction": EventConflictIntroduction,
	"conflict_escalation":   EventConflictEscalation,
	"conflict_resolution":   EventConflictResolution,
	"revelation":            EventRevelation,
	"twist":                 EventTwist,
	"cliffhanger":           EventCliffhanger,
	"flashback":             EventFlashback,
	"foreshadowing":         EventForeshadowing,
	"callback":              EventCallback,
}

// ParseEventType maps free-text model output to an EventType. Unrecognised
// values fall back to EventMainPlot.
func ParseEventType(s string) EventType {
	if t, ok := eventTypes[normalizeEnum(s)]; ok {
		return t
	}
	return EventMainPlot
}

// EventImportance ranks how much a plot event matters.
type EventImportance string

// Recognised importance levels.
const (
	// ImportanceCritical marks major, series-changing events.
	ImportanceCritical EventImportance = "critical"

	// ImportanceHigh marks important developments.
	ImportanceHigh EventImportance = "high"

	// ImportanceMedium marks significant but not crucial events.
	ImportanceMedium EventImportance = "medium"

	// ImportanceLow marks minor events.
	ImportanceLow EventImportance = "low"
)

var eventImportances = map[string]EventImportance{
	"critical": ImportanceCritical,
	"high":     ImportanceHigh,
	"medium":   ImportanceMedium,
	"low":      ImportanceLow,
}

// ParseEventImportance maps free-text model output to an EventImportance.
// Unrecognised values fall back to ImportanceMedium.
func ParseEventImportance(s string) EventImportance {
	if imp, ok := eventImportances[normalizeEnum(s)]; ok {
		return imp
	}
	return ImportanceMedium
}

// PlotEvent is one extracted narrative event.
//
// Causal links (Causes, Consequences, RelatedEvents) form a directed,
// possibly cyclic graph over event IDs. The graph is advisory: link targets
// are not validated and cycles are allowed, since flash-forwards can
// legitimately reference "future" causes.
type PlotEvent struct {
	// ID is the derived identifier, e.g. "S01E03_S002_E001".
	ID string `json:"id"`

	// Title is a brief name for the event.
	Title string `json:"title"`

	// Description says in detail what happened.
	Description string `json:"description"`

	// Type classifies the event's narrative function.
	Type EventType `json:"event_type"`

	// Importance ranks the event.
	Importance EventImportance `json:"importance"`

	// EpisodeID locates the event in the series.
	EpisodeID string `json:"episode_id"`

	// SceneID locates the event within the episode, if known.
	SceneID string `json:"scene_id,omitempty"`

	// CharactersInvolved lists participating characters, deduplicated.
	CharactersInvolved []string `json:"characters_involved"`

	// RelationshipsAffected lists relationship IDs the event touches.
	RelationshipsAffected []string `json:"relationships_affected"`

	// PlotArc tags the longer-running storyline the event belongs to.
	PlotArc string `json:"plot_arc,omitempty"`

	// Causes lists event IDs that led to this event.
	Causes []string `json:"causes"`

	// Consequences lists event IDs that result from this event.
	Consequences []string `json:"consequences"`

	// RelatedEvents lists other associated event IDs.
	RelatedEvents []string `json:"related_events"`

	// ForeshadowingClues lists earlier clues that hinted at this event.
	ForeshadowingClues []string `json:"foreshadowing_clues"`

	// Themes lists themes explored through the event.
	Themes []string `json:"themes"`

	// EmotionalImpact scores the impact on the audience in [0, 1].
	EmotionalImpact float64 `json:"emotional_impact"`

	// PlotSignificance scores significance to the overall plot in [0, 1].
	PlotSignificance float64 `json:"plot_significance"`

	// MysteryElements lists mystery elements introduced or resolved.
	MysteryElements []string `json:"mystery_elements"`

	// RevealsInformation lists information revealed by the event.
	RevealsInformation []string `json:"reveals_information"`

	// QuestionsRaised lists questions the event raises.
	QuestionsRaised []string `json:"questions_raised"`

	// QuestionsAnswered lists questions the event answers.
	QuestionsAnswered []string `json:"questions_answered"`

	// Tags holds free-form categorization labels.
	Tags []string `json:"tags"`

	// CreatedAt records when the event was extracted.
	CreatedAt time.Time `json:"created_at"`
}

// NewPlotEvent constructs a PlotEvent with its derived ID and default
// classification.
func NewPlotEvent(parentID string, seq int, title, description string) *PlotEvent {
	return &PlotEvent{
		ID:               PlotEventID(parentID, seq),
		Title:            title,
		Description:      description,
		Type:             EventMainPlot,
		Importance:       ImportanceMedium,
		EmotionalImpact:  0.5,
		PlotSignificance: 0.5,
		CreatedAt:        time.Now(),
	}
}

// AddCharacter records an involved character, ignoring duplicates.
func (e *PlotEvent) AddCharacter(name string) {
	e.CharactersInvolved = appendUnique(e.CharactersInvolved, name)
}

// AddCause links an event that led to this one, ignoring duplicates.
func (e *PlotEvent) AddCause(eventID string) {
	e.Causes = appendUnique(e.Causes, eventID)
}

// AddConsequence links an event that results from this one, ignoring
// duplicates.
func (e *PlotEvent) AddConsequence(eventID string) {
	e.Consequences = appendUnique(e.Consequences, eventID)
}

// AddRelatedEvent links an associated event, ignoring duplicates.
func (e *PlotEvent) AddRelatedEvent(eventID string) {
	e.RelatedEvents = appendUnique(e.RelatedEvents, eventID)
}

// AddMysteryElement records a mystery element, ignoring duplicates.
func (e *PlotEvent) AddMysteryElement(element string) {
	e.MysteryElements = appendUnique(e.MysteryElements, element)
}

// AddTheme records a theme, ignoring duplicates.
func (e *PlotEvent) AddTheme(theme string) {
	e.Themes = appendUnique(e.Themes, theme)
}

// AddTag records a categorization tag, ignoring duplicates.
func (e *PlotEvent) AddTag(tag string) {
	e.Tags = appendUnique(e.Tags, tag)
}

// IsMysteryRelated reports whether the event is part of a mystery thread.
func (e *PlotEvent) IsMysteryRelated() bool {
	return e.Type == EventMysteryClue || e.Type == EventMysteryResolution || len(e.MysteryElements) > 0
}

// IsMajor reports whether the event is a major plot point.
func (e *PlotEvent) IsMajor() bool {
	return e.Importance == ImportanceCritical || e.Importance == ImportanceHigh || e.PlotSignificance >= 0.7
}
