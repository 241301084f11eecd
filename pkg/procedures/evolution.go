package procedures

import (
	"fmt"
	"math"
	"time"

	"github.com/papercomputeco/muninn/pkg/memory"
)

// Evolution event triggers.
const (
	TriggerSuccess = "success_pattern"
	TriggerFailure = "failure"
)

// ReliableThreshold is the success count at which a procedure is promoted
// to a reliable workflow.
const ReliableThreshold = 3

// Trend describes the recent direction of a procedure's outcomes.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
	TrendDeclining Trend = "declining"
)

// Metrics summarizes a procedure's track record. Reliability weights recent
// outcomes above older ones.
type Metrics struct {
	SuccessRate  float64
	RecentTrend  Trend
	LastFailures []string
	Reliability  float64
}

// ApplyFeedback folds one execution outcome into the procedure. Success
// bumps the success count and promotes the procedure to reliable at the
// threshold. Failure creates a new version, annotating the failed step when
// one is given. The change is appended to the evolution log either way.
func ApplyFeedback(p *memory.Procedure, success bool, failedAtStep int, context string, now time.Time) {
	newVersion := p.Version + 1

	if success {
		p.SuccessCount++
		promoted := p.SuccessCount >= ReliableThreshold && !p.Reliable
		if promoted {
			p.Reliable = true
		}

		change := fmt.Sprintf("Success count: %d.", p.SuccessCount)
		if promoted {
			change += " Promoted to reliable workflow."
		}
		p.EvolutionLog = append(p.EvolutionLog, memory.EvolutionEvent{
			Version:   newVersion,
			Trigger:   TriggerSuccess,
			Change:    change,
			Timestamp: now,
		})
	} else {
		p.FailureCount++
		p.Version = newVersion
		if failedAtStep > 0 && failedAtStep <= len(p.Steps) {
			step := &p.Steps[failedAtStep-1]
			step.Description += " [RETRY: add error handling]"
		}

		change := fmt.Sprintf("Failed at step %d.", failedAtStep)
		if failedAtStep <= 0 {
			change = "Failed at unknown step."
		}
		if context != "" {
			change += " " + context + "."
		}
		change += " New version created."
		p.EvolutionLog = append(p.EvolutionLog, memory.EvolutionEvent{
			Version:   newVersion,
			Trigger:   TriggerFailure,
			Change:    change,
			Timestamp: now,
		})
	}

	p.UpdatedAt = now
}

// Measure computes outcome metrics from the counts and the tail of the
// evolution log. The reliability score decays older events at 0.9 per step
// so a recent failure drags harder than an old one.
func Measure(p memory.Procedure) Metrics {
	total := p.SuccessCount + p.FailureCount
	if total == 0 {
		return Metrics{RecentTrend: TrendStable}
	}

	successRate := float64(p.SuccessCount) / float64(total)

	recent := p.EvolutionLog
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	var weightedSuccess, weightedFailure int
	for i, event := range recent {
		weight := i + 1
		switch event.Trigger {
		case TriggerSuccess:
			weightedSuccess += weight
		case TriggerFailure:
			weightedFailure += weight
		}
	}

	trend := TrendStable
	if weightedSuccess > weightedFailure {
		trend = TrendImproving
	} else if weightedFailure > weightedSuccess {
		trend = TrendDeclining
	}

	const decayFactor = 0.9
	var weightedScore, totalWeight float64
	for i := len(recent) - 1; i >= 0; i-- {
		weight := math.Pow(decayFactor, float64(len(recent)-1-i))
		if recent[i].Trigger == TriggerSuccess {
			weightedScore += weight
		}
		totalWeight += weight
	}
	reliability := successRate
	if totalWeight > 0 {
		reliability = weightedScore / totalWeight
	}

	var lastFailures []string
	for _, event := range recent {
		if event.Trigger == TriggerFailure && len(lastFailures) < 3 {
			lastFailures = append(lastFailures, event.Change)
		}
	}

	return Metrics{
		SuccessRate:  successRate,
		RecentTrend:  trend,
		LastFailures: lastFailures,
		Reliability:  reliability,
	}
}

// ShouldEvolve reports whether a procedure's recent record warrants
// rewriting its steps: a declining trend, at least two failures overall,
// and a failure within the last three events.
func ShouldEvolve(p memory.Procedure) bool {
	metrics := Measure(p)

	tail := p.EvolutionLog
	if len(tail) > 3 {
		tail = tail[len(tail)-3:]
	}
	var recentFailures int
	for _, event := range tail {
		if event.Trigger == TriggerFailure {
			recentFailures++
		}
	}

	return metrics.RecentTrend == TrendDeclining &&
		p.FailureCount >= 2 &&
		recentFailures >= 1
}
