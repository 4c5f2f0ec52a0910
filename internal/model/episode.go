package model

import (
	"errors"
	"fmt"
	"time"
)

// Transcript length bounds enforced before any model call is made.
const (
	// MinTranscriptLen is the minimum accepted transcript length in characters.
	MinTranscriptLen = 100

	// MaxTranscriptLen is the maximum accepted transcript length in characters.
	MaxTranscriptLen = 1_000_000
)

// EpisodeInfo is the caller-supplied metadata for one episode.
type EpisodeInfo struct {
	// Season is the 1-based season number.
	Season int `json:"season"`

	// Episode is the 1-based episode number within the season.
	Episode int `json:"episode"`

	// Title is the episode title.
	Title string `json:"title"`

	// AirDate is the original air date (YYYY-MM-DD), if known.
	AirDate string `json:"air_date,omitempty"`

	// Duration is the episode runtime in minutes, if known.
	Duration int `json:"duration,omitempty"`

	// Description is a short synopsis, if known.
	Description string `json:"description,omitempty"`
}

// Validate checks the info against the pipeline's preconditions. All
// violations are reported together via errors.Join.
func (info EpisodeInfo) Validate() error {
	var errs []error
	if info.Season < 1 {
		errs = append(errs, fmt.Errorf("season must be >= 1, got %d", info.Season))
	}
	if info.Episode < 1 {
		errs = append(errs, fmt.Errorf("episode must be >= 1, got %d", info.Episode))
	}
	if info.Title == "" {
		errs = append(errs, errors.New("title must not be empty"))
	}
	return errors.Join(errs...)
}

// ID derives the canonical episode identifier from the season and episode
// numbers.
func (info EpisodeInfo) ID() string {
	return EpisodeID(info.Season, info.Episode)
}

// Episode is the aggregate record for one processed transcript.
//
// Scenes, CharactersIntroduced, and PlotArcs grow append-only during one
// processing pass. Summary and ImportanceScore are set exactly once, after
// scene and event aggregation completes.
type Episode struct {
	// ID is the canonical identifier, e.g. "S01E03".
	ID string `json:"id"`

	// Info is the caller-supplied episode metadata.
	Info EpisodeInfo `json:"info"`

	// Transcript is the full raw transcript this episode was built from.
	Transcript string `json:"transcript"`

	// Scenes lists scene IDs in narrative order.
	Scenes []string `json:"scenes"`

	// CharactersIntroduced lists characters first seen in this episode.
	CharactersIntroduced []string `json:"characters_introduced"`

	// PlotArcs lists plot arc tags active in this episode.
	PlotArcs []string `json:"plot_arcs"`

	// Themes lists major themes explored.
	Themes []string `json:"themes"`

	// Summary is the generated natural-language episode summary.
	Summary string `json:"summary,omitempty"`

	// ImportanceScore is the derived overall importance in [0, 1].
	ImportanceScore float64 `json:"importance_score"`

	// ProcessedAt records when the episode was processed.
	ProcessedAt time.Time `json:"processed_at"`
}

// NewEpisode constructs an Episode with its derived ID and default scores.
func NewEpisode(info EpisodeInfo, transcript string) *Episode {
	return &Episode{
		ID:              info.ID(),
		Info:            info,
		Transcript:      transcript,
		ImportanceScore: 0.5,
		ProcessedAt:     time.Now(),
	}
}

// AddScene appends a scene ID, ignoring duplicates.
func (e *Episode) AddScene(sceneID string) {
	e.Scenes = appendUnique(e.Scenes, sceneID)
}

// AddCharacter appends a newly introduced character name, ignoring duplicates.
func (e *Episode) AddCharacter(name string) {
	e.CharactersIntroduced = appendUnique(e.CharactersIntroduced, name)
}

// AddPlotArc appends a plot arc tag, ignoring duplicates.
func (e *Episode) AddPlotArc(arc string) {
	e.PlotArcs = appendUnique(e.PlotArcs, arc)
}

// AddTheme appends a theme, ignoring duplicates.
func (e *Episode) AddTheme(theme string) {
	e.Themes = appendUnique(e.Themes, theme)
}
