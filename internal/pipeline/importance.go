package pipeline

import "github.com/plotwright/plotwright/internal/model"

// Weighting of the derived episode importance score. Plot events dominate:
// a quiet episode full of critical events still matters more than a busy one
// full of filler.
const (
	sceneWeight = 0.3
	eventWeight = 0.7

	criticalEventValue = 1.0
	highEventValue     = 0.8
)

// EpisodeImportance derives the overall episode importance in [0, 1] from
// the average scene importance (weight 0.3) and the fraction of
// critical/high-importance plot events (weight 0.7, critical counted at full
// value, high at 0.8, capped at 1). Empty inputs contribute the neutral 0.5.
func EpisodeImportance(scenes []*model.Scene, events []*model.PlotEvent) float64 {
	sceneAvg := 0.5
	if len(scenes) > 0 {
		var sum float64
		for _, sc := range scenes {
			sum += sc.ImportanceScore
		}
		sceneAvg = sum / float64(len(scenes))
	}

	eventScore := 0.5
	if len(events) > 0 {
		var weighted float64
		for _, ev := range events {
			switch ev.Importance {
			case model.ImportanceCritical:
				weighted += criticalEventValue
			case model.ImportanceHigh:
				weighted += highEventValue
			}
		}
		eventScore = weighted / float64(len(events))
		if eventScore > 1 {
			eventScore = 1
		}
	}

	return sceneAvg*sceneWeight + eventScore*eventWeight
}
