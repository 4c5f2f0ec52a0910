// Package pipeline orchestrates the episode extraction pipeline: segment the
// transcript into scenes, extract characters, relationships, and plot events
// breadth-first by stage, persist everything into the knowledge store, and
// derive the episode summary and importance score.
//
// Processing is idempotent at the episode granularity. Reprocessing a
// season/episode pair deletes the old episode record and its scenes before
// the new run; characters, relationships, and cross-episode plot events are
// never rolled back, so a revised transcript can leave orphaned records that
// were only true under the old text. That orphaning is documented behavior.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/plotwright/plotwright/internal/model"
)

// Stage names one state of the episode pipeline. Stages are strictly
// sequential with no branching back.
type Stage string

// The pipeline stages in execution order.
const (
	StageSegmenting           Stage = "segmenting"
	StageExtractingCharacters Stage = "extracting_characters"
	StageExtractingRelations  Stage = "extracting_relationships"
	StageExtractingEvents     Stage = "extracting_events"
	StagePersisting           Stage = "persisting"
	StageSummarizing          Stage = "summarizing"
	StageDone                 Stage = "done"
)

// ValidationError reports input that fails the pipeline's preconditions.
// It is raised before any model call is made and is never retried.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "pipeline: invalid input: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// validateInput checks the transcript bounds and episode metadata, reporting
// every violation together.
func validateInput(transcript string, info model.EpisodeInfo) error {
	var errs []error
	if n := len(transcript); n < model.MinTranscriptLen {
		errs = append(errs, fmt.Errorf("transcript length %d is below the minimum %d", n, model.MinTranscriptLen))
	} else if n > model.MaxTranscriptLen {
		errs = append(errs, fmt.Errorf("transcript length %d exceeds the maximum %d", n, model.MaxTranscriptLen))
	}
	if err := info.Validate(); err != nil {
		errs = append(errs, err)
	}
	if joined := errors.Join(errs...); joined != nil {
		return &ValidationError{Err: joined}
	}
	return nil
}
