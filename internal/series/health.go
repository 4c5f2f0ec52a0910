package series

import (
	"context"
	"strings"

	"github.com/plotwright/plotwright/pkg/knowledge"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

// HealthStatus is the overall or per-component verdict of a health check.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth is the check result for one component.
type ComponentHealth struct {
	Status HealthStatus
	Error  string
}

// Health is the result of a full health check.
type Health struct {
	Status     HealthStatus
	Components map[string]ComponentHealth
}

// HealthCheck probes the knowledge store and the model provider. A failing
// component degrades the overall status; both failing makes it unhealthy.
// The model probe makes one minimal completion call.
func (s *Series) HealthCheck(ctx context.Context) *Health {
	h := &Health{
		Status:     StatusHealthy,
		Components: map[string]ComponentHealth{},
	}

	failed := 0
	if err := s.checkStore(ctx); err != nil {
		h.Components["knowledge_store"] = ComponentHealth{Status: StatusUnhealthy, Error: err.Error()}
		failed++
	} else {
		h.Components["knowledge_store"] = ComponentHealth{Status: StatusHealthy}
	}

	if err := s.checkProvider(ctx); err != nil {
		h.Components["model_provider"] = ComponentHealth{Status: StatusUnhealthy, Error: err.Error()}
		failed++
	} else {
		h.Components["model_provider"] = ComponentHealth{Status: StatusHealthy}
	}

	switch failed {
	case 0:
	case len(h.Components):
		h.Status = StatusUnhealthy
	default:
		h.Status = StatusDegraded
	}
	return h
}

// checkStore verifies the store answers a trivial read.
func (s *Series) checkStore(ctx context.Context) error {
	_, err := s.store.Count(ctx, knowledge.Episodes)
	return err
}

// checkProvider verifies the model provider answers at all. The reply
// content is irrelevant.
func (s *Series) checkProvider(ctx context.Context) error {
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Messages:  []llm.Message{{Role: "user", Content: "Reply with the single word: ok"}},
		MaxTokens: 8,
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(resp.Content) == "" {
		s.log.Warn("model provider health probe returned empty content")
	}
	return nil
}
