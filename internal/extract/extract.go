// Package extract implements the model-driven extraction passes that turn
// raw transcript text into typed records: scene segmentation and analysis,
// character identification and profiling, relationship discovery, and plot
// event extraction.
//
// All extractors share one failure policy: a model or parse failure on a
// single entity degrades to a default record (or skips the entity) and is
// logged, it never aborts the surrounding episode. The only errors extractors
// return are context cancellation, so a shutdown still propagates promptly.
package extract

import (
	"context"
	"log/slog"

	"github.com/plotwright/plotwright/internal/observe"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

const (
	// defaultTemperature keeps extraction output repeatable.
	defaultTemperature = 0.1

	// defaultProfileConcurrency bounds the parallel character-profile calls.
	defaultProfileConcurrency = 4
)

// Option configures the shared extraction caller.
type Option func(*caller)

// WithTemperature sets the sampling temperature for all model calls.
// Default: 0.1.
func WithTemperature(t float64) Option {
	return func(c *caller) { c.temperature = t }
}

// WithMaxTokens caps the completion length per model call. Zero uses the
// provider default.
func WithMaxTokens(n int) Option {
	return func(c *caller) { c.maxTokens = n }
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(log *slog.Logger) Option {
	return func(c *caller) { c.log = log }
}

// WithProfileConcurrency bounds how many character profiles are extracted in
// parallel per scene. Default: 4. Values below 1 are ignored.
func WithProfileConcurrency(n int) Option {
	return func(c *caller) {
		if n >= 1 {
			c.profileConcurrency = n
		}
	}
}

// WithMetrics sets the metrics instance model calls are recorded to.
// Default: observe.DefaultMetrics().
func WithMetrics(m *observe.Metrics) Option {
	return func(c *caller) { c.metrics = m }
}

// caller is the shared single prompt → text round trip used by every
// extractor.
type caller struct {
	provider           llm.Provider
	log                *slog.Logger
	metrics            *observe.Metrics
	temperature        float64
	maxTokens          int
	profileConcurrency int
}

func newCaller(provider llm.Provider, opts ...Option) caller {
	c := caller{
		provider:           provider,
		log:                slog.Default(),
		temperature:        defaultTemperature,
		profileConcurrency: defaultProfileConcurrency,
	}
	for _, o := range opts {
		o(&c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// complete sends one system+user prompt pair and returns the raw response
// text. Every call is counted under purpose, with token usage when the
// provider reports it.
func (c *caller) complete(ctx context.Context, purpose, system, user string) (string, error) {
	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     []llm.Message{{Role: "user", Content: user}},
		SystemPrompt: system,
		Temperature:  c.temperature,
		MaxTokens:    c.maxTokens,
	})
	if err != nil {
		c.metrics.RecordModelCall(ctx, purpose, "error")
		return "", err
	}
	c.metrics.RecordModelCall(ctx, purpose, "ok")
	c.metrics.RecordModelTokens(ctx, purpose, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	return resp.Content, nil
}

// degraded decides whether an extraction failure should abort. Cancellation
// aborts; everything else is logged and absorbed.
func (c *caller) degraded(ctx context.Context, msg string, err error, args ...any) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.log.Warn(msg, append(args, "error", err)...)
	return nil
}
