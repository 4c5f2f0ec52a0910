package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/plotwright/plotwright/internal/model"
	"github.com/plotwright/plotwright/internal/prompt"
	"github.com/plotwright/plotwright/pkg/provider/llm"
)

// maxSummaryParts caps how many scene summaries and how many major event
// descriptions feed the episode summary draft.
const maxSummaryParts = 5

// draftSummary concatenates up to five scene summaries and up to five
// critical/high plot-event descriptions into the raw summary draft. Returns
// "" when neither source has anything to say.
func draftSummary(scenes []*model.Scene, events []*model.PlotEvent) string {
	var sceneLines []string
	for _, sc := range scenes {
		if sc.Summary == "" {
			continue
		}
		sceneLines = append(sceneLines, "- "+sc.Summary)
		if len(sceneLines) == maxSummaryParts {
			break
		}
	}

	var eventLines []string
	for _, ev := range events {
		if ev.Importance != model.ImportanceCritical && ev.Importance != model.ImportanceHigh {
			continue
		}
		if ev.Description == "" {
			continue
		}
		eventLines = append(eventLines, "- "+ev.Description)
		if len(eventLines) == maxSummaryParts {
			break
		}
	}

	if len(sceneLines) == 0 && len(eventLines) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Scene Summary:\n")
	b.WriteString(strings.Join(sceneLines, "\n"))
	b.WriteString("\n\nMajor Events:\n")
	b.WriteString(strings.Join(eventLines, "\n"))
	return b.String()
}

// summarize produces the episode summary: the draft passed through one model
// call for narrative cohesion. On model failure the raw draft is used; with
// no draft at all, a minimal identifying line.
func (p *Processor) summarize(ctx context.Context, ep *model.Episode, scenes []*model.Scene, events []*model.PlotEvent) string {
	fallback := fmt.Sprintf("Episode %s: %s", ep.ID, ep.Info.Title)
	draft := draftSummary(scenes, events)
	if draft == "" {
		return fallback
	}

	resp, err := p.provider.Complete(ctx, llm.CompletionRequest{
		Messages:     []llm.Message{{Role: "user", Content: draft}},
		SystemPrompt: prompt.Get(prompt.SummaryCohesion),
		Temperature:  p.temperature,
		MaxTokens:    p.maxTokens,
	})
	if err != nil {
		p.log.Warn("summary cohesion pass failed, using raw draft",
			"episode_id", ep.ID, "error", err)
		return draft
	}
	if smoothed := strings.TrimSpace(resp.Content); smoothed != "" {
		return smoothed
	}
	return draft
}
