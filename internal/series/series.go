// Package series is the top-level facade: one value wiring the knowledge
// store, the episode pipeline, and the query interface for a single TV
// series.
//
// Everything a caller does to a series goes through here; the packages
// underneath stay independently testable.
package series

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/narrator"
	"github.com/plotwright/plotwright/internal/pipeline"
	"github.com/plotwright/plotwright/internal/query"
	"github.com/plotwright/plotwright/pkg/knowledge"
	"github.com/plotwright/plotwright/pkg/provider/llm"
	"github.com/plotwright/plotwright/pkg/provider/tts"
)

// ErrResetNotConfirmed is returned by Reset when the caller did not confirm
// the deletion.
var ErrResetNotConfirmed = errors.New("series: reset not confirmed")

// ErrNoNarrator is returned by NarrateEpisode when no TTS provider was
// configured.
var ErrNoNarrator = errors.New("series: no narrator configured")

// Series is the facade over one series' knowledge base. Construct with
// [New]; the zero value is not usable.
type Series struct {
	name      string
	store     knowledge.Store
	provider  llm.Provider
	processor *pipeline.Processor
	queries   *query.Interface
	narrator  *narrator.Narrator
	log       *slog.Logger

	processorOpts []pipeline.ProcessorOption
	queryOpts     []query.Option
}

// Option configures a [Series].
type Option func(*Series)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(s *Series) { s.log = log }
}

// WithProcessorOptions forwards options to the episode processor.
func WithProcessorOptions(opts ...pipeline.ProcessorOption) Option {
	return func(s *Series) { s.processorOpts = append(s.processorOpts, opts...) }
}

// WithQueryOptions forwards options to the query interface.
func WithQueryOptions(opts ...query.Option) Option {
	return func(s *Series) { s.queryOpts = append(s.queryOpts, opts...) }
}

// WithTTS enables episode narration through the given provider.
func WithTTS(provider tts.Provider, opts ...narrator.Option) Option {
	return func(s *Series) { s.narrator = narrator.New(provider, opts...) }
}

// New wires a series over the store and model provider.
func New(name string, store knowledge.Store, provider llm.Provider, opts ...Option) *Series {
	s := &Series{
		name:     name,
		store:    store,
		provider: provider,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("series", knowledge.SanitizeSeriesName(name))

	s.processor = pipeline.NewProcessor(store, provider,
		append([]pipeline.ProcessorOption{pipeline.WithLogger(s.log)}, s.processorOpts...)...)
	s.queries = query.New(store,
		append([]query.Option{query.WithLogger(s.log), query.WithProvider(provider)}, s.queryOpts...)...)
	return s
}

// Name returns the series name as given.
func (s *Series) Name() string { return s.name }

// Queries exposes the read side of the knowledge base.
func (s *Series) Queries() *query.Interface { return s.queries }

// ProcessEpisode ingests one transcript through the full pipeline.
func (s *Series) ProcessEpisode(ctx context.Context, transcript string, info model.EpisodeInfo) (*model.Episode, error) {
	return s.processor.ProcessEpisode(ctx, transcript, info)
}

// Episode returns the stored episode record.
func (s *Series) Episode(ctx context.Context, season, episode int) (*model.Episode, error) {
	id := model.EpisodeID(season, episode)
	rec, err := s.store.Get(ctx, knowledge.Episodes, id)
	if err != nil {
		return nil, fmt.Errorf("series: get episode %s: %w", id, err)
	}
	return pipeline.DecodeEpisode(rec)
}

// EpisodeSummary returns the stored summary of one episode.
func (s *Series) EpisodeSummary(ctx context.Context, season, episode int) (string, error) {
	ep, err := s.Episode(ctx, season, episode)
	if err != nil {
		return "", err
	}
	return ep.Summary, nil
}

// NarrateEpisode synthesizes the episode summary into audio. Requires a TTS
// provider configured via [WithTTS].
func (s *Series) NarrateEpisode(ctx context.Context, season, episode int) (*tts.Audio, error) {
	if s.narrator == nil {
		return nil, ErrNoNarrator
	}
	summary, err := s.EpisodeSummary(ctx, season, episode)
	if err != nil {
		return nil, err
	}
	return s.narrator.Narrate(ctx, summary)
}

// Statistics is a per-collection census of the knowledge base.
type Statistics struct {
	SeriesName    string
	Episodes      int
	Scenes        int
	Characters    int
	Relationships int
	PlotEvents    int
	CollectedAt   time.Time
}

// HasEpisodes reports whether at least one episode was processed.
func (st *Statistics) HasEpisodes() bool { return st.Episodes > 0 }

// Statistics counts every collection.
func (s *Series) Statistics(ctx context.Context) (*Statistics, error) {
	st := &Statistics{SeriesName: s.name, CollectedAt: time.Now()}
	targets := []struct {
		col  knowledge.Collection
		dest *int
	}{
		{knowledge.Episodes, &st.Episodes},
		{knowledge.Scenes, &st.Scenes},
		{knowledge.Characters, &st.Characters},
		{knowledge.Relationships, &st.Relationships},
		{knowledge.PlotEvents, &st.PlotEvents},
	}
	for _, t := range targets {
		n, err := s.store.Count(ctx, t.col)
		if err != nil {
			return nil, fmt.Errorf("series: count %s: %w", t.col, err)
		}
		*t.dest = n
	}
	return st, nil
}

// CharacterExport bundles everything known about one character.
type CharacterExport struct {
	Profile    *query.CharacterProfile
	Scenes     []query.SceneMatch
	ExportedAt time.Time
}

// ExportCharacter gathers the character's profile, relationships, and every
// scene they plausibly appear in.
func (s *Series) ExportCharacter(ctx context.Context, name string) (*CharacterExport, error) {
	profile, err := s.queries.Profile(ctx, name)
	if err != nil {
		return nil, err
	}
	scenes, err := s.queries.FindScenes(ctx,
		fmt.Sprintf("scenes with %s", profile.Character.Name), 100)
	if err != nil {
		return nil, err
	}
	return &CharacterExport{
		Profile:    profile,
		Scenes:     scenes,
		ExportedAt: time.Now(),
	}, nil
}

// Reset deletes every record in every collection. The caller must pass
// confirm=true; anything else returns ErrResetNotConfirmed without touching
// the store.
func (s *Series) Reset(ctx context.Context, confirm bool) error {
	if !confirm {
		s.log.Warn("reset requested without confirmation, refusing")
		return ErrResetNotConfirmed
	}
	s.log.Warn("resetting knowledge base, all data will be deleted")
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("series: reset: %w", err)
	}
	s.log.Warn("knowledge base reset complete")
	return nil
}
