package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plotwright/plotwright/internal/extract"
	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/namematch"
	"github.com/plotwright/plotwright/internal/observe"
	"github.com/plotwright/plotwright/internal/resilience"
	"github.com/plotwright/plotwright/pkg/knowledge"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

// Processor runs the episode pipeline end to end. Construct with
// [NewProcessor]; the zero value is not usable.
//
// A Processor assumes single-writer access to its store: concurrent
// ProcessEpisode calls for the same series require external serialization.
type Processor struct {
	store    knowledge.Store
	provider llm.Provider

	segmenter *extract.SceneSegmenter
	chars     *extract.CharacterExtractor
	rels      *extract.RelationshipExtractor
	events    *extract.EventExtractor
	matcher   *namematch.Matcher

	metrics     *observe.Metrics
	log         *slog.Logger
	retry       resilience.RetryConfig
	extractOpts []extract.Option
	temperature float64
	maxTokens   int
}

// ProcessorOption configures a [Processor].
type ProcessorOption func(*Processor)

// WithLogger sets the processor's logger. Default: slog.Default().
func WithLogger(log *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.log = log }
}

// WithMetrics sets the metrics instance. Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// WithRetry overrides the outer episode retry policy.
// Default: 3 attempts, exponential backoff from 1s.
func WithRetry(cfg resilience.RetryConfig) ProcessorOption {
	return func(p *Processor) { p.retry = cfg }
}

// WithNameMatcher overrides the character name canonicalizer.
func WithNameMatcher(m *namematch.Matcher) ProcessorOption {
	return func(p *Processor) { p.matcher = m }
}

// WithTemperature sets the sampling temperature for every model call the
// pipeline makes, extraction and summarization alike. Default: 0.1.
func WithTemperature(t float64) ProcessorOption {
	return func(p *Processor) {
		p.temperature = t
		p.extractOpts = append(p.extractOpts, extract.WithTemperature(t))
	}
}

// WithMaxTokens caps the completion length of every model call. Zero uses
// the provider default.
func WithMaxTokens(n int) ProcessorOption {
	return func(p *Processor) {
		p.maxTokens = n
		p.extractOpts = append(p.extractOpts, extract.WithMaxTokens(n))
	}
}

// WithProfileConcurrency bounds parallel character-profile extraction per
// scene. Default: 4.
func WithProfileConcurrency(n int) ProcessorOption {
	return func(p *Processor) {
		p.extractOpts = append(p.extractOpts, extract.WithProfileConcurrency(n))
	}
}

// NewProcessor wires a Processor over the given store and model provider.
func NewProcessor(store knowledge.Store, provider llm.Provider, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:       store,
		provider:    provider,
		matcher:     namematch.New(),
		log:         slog.Default(),
		retry:       resilience.RetryConfig{Name: "process_episode"},
		temperature: 0.1,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}

	extractOpts := append([]extract.Option{
		extract.WithLogger(p.log),
		extract.WithMetrics(p.metrics),
	}, p.extractOpts...)
	p.segmenter = extract.NewSceneSegmenter(provider, extractOpts...)
	p.chars = extract.NewCharacterExtractor(provider, extractOpts...)
	p.rels = extract.NewRelationshipExtractor(provider, extractOpts...)
	p.events = extract.NewEventExtractor(provider, extractOpts...)
	return p
}

// ProcessEpisode runs the full pipeline for one transcript and returns the
// fully formed episode.
//
// Preconditions are checked before any model call: transcript length within
// [model.MinTranscriptLen, model.MaxTranscriptLen] and valid episode info.
// Violations return a [*ValidationError] immediately and are never retried.
// Everything after validation runs under the outer retry policy; each retry
// repeats the whole pipeline, relying on the delete-and-recreate idempotency
// to supersede partial writes from the failed attempt.
func (p *Processor) ProcessEpisode(ctx context.Context, transcript string, info model.EpisodeInfo) (*model.Episode, error) {
	if err := validateInput(transcript, info); err != nil {
		return nil, err
	}

	start := time.Now()
	p.metrics.ActiveEpisodes.Add(ctx, 1)
	defer p.metrics.ActiveEpisodes.Add(ctx, -1)

	var ep *model.Episode
	err := resilience.Retry(ctx, p.retry, func() error {
		var runErr error
		ep, runErr = p.run(ctx, transcript, info)
		return runErr
	})

	p.metrics.EpisodeDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordEpisode(ctx, "failed")
		return nil, fmt.Errorf("pipeline: process episode %s: %w", info.ID(), err)
	}
	p.metrics.RecordEpisode(ctx, "ok")
	return ep, nil
}

// run executes one full pass of the pipeline.
func (p *Processor) run(ctx context.Context, transcript string, info model.EpisodeInfo) (*model.Episode, error) {
	ep := model.NewEpisode(info, transcript)
	log := p.log.With("episode_id", ep.ID)

	if err := p.supersede(ctx, ep.ID, log); err != nil {
		return nil, err
	}

	// SEGMENTING
	var scenes []*model.Scene
	err := p.stage(ctx, log, StageSegmenting, func() error {
		var segErr error
		scenes, segErr = p.segmenter.Segment(ctx, ep.ID, transcript)
		return segErr
	})
	if err != nil {
		return nil, err
	}
	for _, sc := range scenes {
		ep.AddScene(sc.ID)
		for _, theme := range sc.Themes {
			ep.AddTheme(theme)
		}
	}

	// EXTRACTING_CHARACTERS: breadth-first across all scenes so the known
	// roster is final before relationship extraction sees it.
	var characters map[string]*model.Character
	err = p.stage(ctx, log, StageExtractingCharacters, func() error {
		var charErr error
		characters, charErr = p.extractCharacters(ctx, ep, scenes)
		return charErr
	})
	if err != nil {
		return nil, err
	}

	// EXTRACTING_RELATIONSHIPS
	var relationships map[string]*model.Relationship
	err = p.stage(ctx, log, StageExtractingRelations, func() error {
		var relErr error
		relationships, relErr = p.extractRelationships(ctx, ep, scenes, characters)
		return relErr
	})
	if err != nil {
		return nil, err
	}

	// EXTRACTING_EVENTS
	var events []*model.PlotEvent
	err = p.stage(ctx, log, StageExtractingEvents, func() error {
		var evErr error
		events, evErr = p.extractEvents(ctx, ep, scenes)
		return evErr
	})
	if err != nil {
		return nil, err
	}

	// PERSISTING: per-entity, best-effort. A failed write is logged and
	// skipped; only cancellation aborts.
	err = p.stage(ctx, log, StagePersisting, func() error {
		return p.persist(ctx, log, scenes, characters, relationships, events)
	})
	if err != nil {
		return nil, err
	}

	// SUMMARIZING: derive importance and summary, then write the episode
	// record last. A failed episode write propagates to the outer retry: the
	// sub-entities stay persisted and the next attempt supersedes them.
	err = p.stage(ctx, log, StageSummarizing, func() error {
		ep.ImportanceScore = EpisodeImportance(scenes, events)
		ep.Summary = p.summarize(ctx, ep, scenes, events)
		if addErr := p.store.Add(ctx, knowledge.Episodes, EpisodeRecord(ep)); addErr != nil {
			p.metrics.RecordStoreError(ctx, string(knowledge.Episodes), "add")
			return fmt.Errorf("write episode record: %w", addErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("episode processed", "stage", StageDone,
		"scenes", len(scenes),
		"characters", len(characters),
		"relationships", len(relationships),
		"plot_events", len(events),
		"importance", ep.ImportanceScore,
	)
	return ep, nil
}

// stage runs one pipeline stage with duration metrics and a transition log.
func (p *Processor) stage(ctx context.Context, log *slog.Logger, st Stage, fn func() error) error {
	log.Debug("pipeline stage", "stage", st)
	start := time.Now()
	err := fn()
	p.metrics.RecordStage(ctx, string(st), time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("stage %s: %w", st, err)
	}
	return nil
}

// supersede deletes a previously processed episode and its scenes so
// reprocessing fully replaces them. Characters, relationships, and plot
// events persist untouched.
func (p *Processor) supersede(ctx context.Context, episodeID string, log *slog.Logger) error {
	_, err := p.store.Get(ctx, knowledge.Episodes, episodeID)
	if errors.Is(err, knowledge.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("check existing episode: %w", err)
	}

	scenes, err := p.store.List(ctx, knowledge.Scenes, map[string]any{"episode_id": episodeID})
	if err != nil {
		return fmt.Errorf("list scenes of existing episode: %w", err)
	}
	sceneIDs := make([]string, len(scenes))
	for i, rec := range scenes {
		sceneIDs[i] = rec.ID
	}
	if len(sceneIDs) > 0 {
		if err := p.store.Delete(ctx, knowledge.Scenes, sceneIDs...); err != nil {
			return fmt.Errorf("delete scenes of existing episode: %w", err)
		}
	}
	if err := p.store.Delete(ctx, knowledge.Episodes, episodeID); err != nil {
		return fmt.Errorf("delete existing episode: %w", err)
	}

	log.Info("superseding previously processed episode", "deleted_scenes", len(sceneIDs))
	return nil
}

// extractCharacters identifies and profiles characters scene by scene. The
// known-names set is the sole deduplication gate: a name already known (from
// the store or an earlier scene) is never re-profiled, it gets a development
// update instead. Identified names are canonicalized against the roster so
// transcript misspellings resolve to the existing record.
func (p *Processor) extractCharacters(ctx context.Context, ep *model.Episode, scenes []*model.Scene) (map[string]*model.Character, error) {
	roster, known, err := p.loadRoster(ctx)
	if err != nil {
		return nil, err
	}

	characters := make(map[string]*model.Character)
	for _, sc := range scenes {
		identified, err := p.chars.Identify(ctx, sc.Content)
		if err != nil {
			return nil, err
		}

		// Scene analysis already reported a character list; fold it in and
		// rebuild the scene roster from canonicalized names.
		identified = append(identified, sc.CharactersPresent...)
		sc.CharactersPresent = nil

		freshThisScene := make(map[string]bool)
		var fresh []string
		for _, raw := range identified {
			name := strings.TrimSpace(raw)
			if name == "" {
				continue
			}
			if canonical, _, ok := p.matcher.Canonicalize(name, roster); ok {
				name = canonical
			}
			key := model.CharacterKey(name)
			sc.AddCharacter(name)
			if _, exists := known[key]; !exists && !freshThisScene[key] {
				freshThisScene[key] = true
				fresh = append(fresh, name)
			}
		}

		profiles, err := p.chars.ProfileAll(ctx, fresh, sc.Content)
		if err != nil {
			return nil, err
		}
		for _, ch := range profiles {
			key := ch.Key()
			ch.AddAppearance(ep.ID)
			known[key] = ch.Name
			roster = append(roster, ch.Name)
			characters[key] = ch
			ep.AddCharacter(ch.Name)
		}

		// Development updates for characters that already existed before
		// this scene.
		for _, name := range sc.CharactersPresent {
			key := model.CharacterKey(name)
			if freshThisScene[key] {
				continue
			}
			ch := characters[key]
			if ch == nil {
				ch, err = p.fetchCharacter(ctx, key)
				if err != nil {
					return nil, err
				}
				if ch == nil {
					continue
				}
				characters[key] = ch
			}
			if err := p.chars.Update(ctx, ch, sc.Content, ep.ID, sc.ID); err != nil {
				return nil, err
			}
			ch.AddAppearance(ep.ID)
		}
	}
	return characters, nil
}

// loadRoster reads the names of every character already in the store.
func (p *Processor) loadRoster(ctx context.Context) (roster []string, known map[string]string, err error) {
	recs, err := p.store.List(ctx, knowledge.Characters, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("load character roster: %w", err)
	}
	known = make(map[string]string, len(recs))
	for _, rec := range recs {
		name, _ := rec.Metadata["name"].(string)
		if name == "" {
			continue
		}
		roster = append(roster, name)
		known[model.CharacterKey(name)] = name
	}
	return roster, known, nil
}

// fetchCharacter loads and decodes one character from the store. A missing
// or undecodable record is treated as absent, not fatal.
func (p *Processor) fetchCharacter(ctx context.Context, key string) (*model.Character, error) {
	rec, err := p.store.Get(ctx, knowledge.Characters, key)
	if errors.Is(err, knowledge.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn("fetch character failed", "key", key, "error", err)
		return nil, nil
	}
	ch, err := DecodeCharacter(rec)
	if err != nil {
		p.log.Warn("decode character failed", "key", key, "error", err)
		return nil, nil
	}
	return ch, nil
}

// extractRelationships finds interacting pairs per scene and materializes or
// updates the symmetric relationship record for each.
func (p *Processor) extractRelationships(ctx context.Context, ep *model.Episode, scenes []*model.Scene, characters map[string]*model.Character) (map[string]*model.Relationship, error) {
	relationships := make(map[string]*model.Relationship)
	for _, sc := range scenes {
		if len(sc.CharactersPresent) < 2 {
			continue
		}
		pairs, err := p.rels.Pairs(ctx, sc.Content, sc.CharactersPresent)
		if err != nil {
			return nil, err
		}
		for _, pair := range pairs {
			key := pair.Key()
			if rel, ok := relationships[key]; ok {
				rel.AddKeyScene(sc.ID)
				continue
			}

			existing, err := p.fetchRelationship(ctx, key)
			if err != nil {
				return nil, err
			}
			details, err := p.rels.Details(ctx, pair, sc.Content)
			if err != nil {
				return nil, err
			}
			if details == nil && existing == nil {
				continue
			}

			var rel *model.Relationship
			if existing == nil {
				rel = details
				rel.FirstInteraction = ep.ID
			} else {
				rel = existing
				if details != nil {
					if details.CurrentStatus != model.StatusUnknown && details.CurrentStatus != rel.CurrentStatus {
						rel.AddChange(ep.ID, details.CurrentStatus, details.Description, sc.ID, "")
					}
					for _, d := range details.ImportantDialogue {
						rel.AddDialogue(d)
					}
				}
			}
			rel.AddKeyScene(sc.ID)
			relationships[key] = rel
		}
	}

	// Cross-link: characters materialized this episode reference their
	// relationships.
	for _, rel := range relationships {
		for _, name := range []string{rel.Character1, rel.Character2} {
			if ch, ok := characters[model.CharacterKey(name)]; ok {
				ch.AddRelationship(rel.ID)
			}
		}
	}
	return relationships, nil
}

// fetchRelationship loads and decodes one relationship. The key is already
// symmetric, so one lookup covers both orderings.
func (p *Processor) fetchRelationship(ctx context.Context, key string) (*model.Relationship, error) {
	rec, err := p.store.Get(ctx, knowledge.Relationships, key)
	if errors.Is(err, knowledge.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.log.Warn("fetch relationship failed", "key", key, "error", err)
		return nil, nil
	}
	rel, err := DecodeRelationship(rec)
	if err != nil {
		p.log.Warn("decode relationship failed", "key", key, "error", err)
		return nil, nil
	}
	return rel, nil
}

// extractEvents runs the plot-event pass per scene and aggregates arcs and
// themes onto the episode.
func (p *Processor) extractEvents(ctx context.Context, ep *model.Episode, scenes []*model.Scene) ([]*model.PlotEvent, error) {
	var all []*model.PlotEvent
	for _, sc := range scenes {
		events, err := p.events.Events(ctx, sc.ID, ep.ID, sc.ID, sc.Content)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			sc.AddPlotEvent(ev.ID)
			if ev.PlotArc != "" {
				ep.AddPlotArc(ev.PlotArc)
			}
			for _, theme := range ev.Themes {
				ep.AddTheme(theme)
			}
			all = append(all, ev)
		}
	}
	return all, nil
}

// persist writes every sub-entity. Failures are logged and skipped so one
// bad write never sinks the episode; the episode record itself is written
// later, after summarization.
func (p *Processor) persist(ctx context.Context, log *slog.Logger, scenes []*model.Scene, characters map[string]*model.Character, relationships map[string]*model.Relationship, events []*model.PlotEvent) error {
	for _, sc := range scenes {
		if err := p.write(ctx, log, knowledge.Scenes, SceneRecord(sc)); err != nil {
			return err
		}
	}
	for _, ch := range characters {
		if err := p.write(ctx, log, knowledge.Characters, CharacterRecord(ch)); err != nil {
			return err
		}
	}
	for _, rel := range relationships {
		if err := p.write(ctx, log, knowledge.Relationships, RelationshipRecord(rel)); err != nil {
			return err
		}
	}
	for _, ev := range events {
		if err := p.write(ctx, log, knowledge.PlotEvents, EventRecord(ev)); err != nil {
			return err
		}
	}
	return nil
}

// write adds one record, absorbing write failures. Only cancellation aborts.
func (p *Processor) write(ctx context.Context, log *slog.Logger, col knowledge.Collection, rec knowledge.Record) error {
	if err := p.store.Add(ctx, col, rec); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Error("knowledge write skipped", "collection", col, "id", rec.ID, "error", err)
		p.metrics.RecordStoreError(ctx, string(col), "add")
	}
	return nil
}
