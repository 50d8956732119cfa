// Package analysis implements the pure scoring functions of the decision
// engine: noise and bias analysis over historical outcomes, priority-weighted
// alternative scoring, and the consistency predicate between a human
// resolution and the stored recommendation.
//
// Every function here is deterministic over its inputs: no I/O, no clock
// reads, no randomness, so the artifacts persisted at decision creation
// are reproducible.
package analysis

import (
	"time"

	"github.com/orbitalworks/verdict/internal/model"
)

// Noise factor flags raised by Analyze.
const (
	FactorHighVariance        = "high_variance"
	FactorRecencyBias         = "recency_bias"
	FactorLimitedAlternatives = "limited_alternatives"
)

// Thresholds for noise factor detection.
const (
	varianceThreshold    = 0.4
	recencyBiasThreshold = 0.5
	recencyWindow        = 7 * 24 * time.Hour
)

// NoiseInput carries everything Analyze needs. History is the
// historical-neighbor pool: resolved decisions of the same org and type,
// excluding the decision under analysis. Now anchors the recency window
// so results are reproducible.
type NoiseInput struct {
	Context      map[string]any
	Alternatives map[string]model.AlternativeSpec
	Criteria     map[string]float64
	History      []model.Decision
	Now          time.Time
}

// NoiseResult is the analysis artifact persisted with a new decision.
type NoiseResult struct {
	NoiseFactors []string `json:"noise_factors"`
	BiasDetected bool     `json:"bias_detected"`
	Confidence   float64  `json:"confidence"`
	Variance     float64  `json:"variance"`
}

// Analyze computes variance, recency bias, and structural noise flags from
// the historical decision pool and the supplied alternative set.
//
// Variance measures the diversity of past outcomes: (distinct-1)/total over
// recorded choices, 0 with fewer than 2 historical decisions. Recency bias
// is the fraction of history resolved within the last 7 days. Confidence is
// 1 - max(variance, recencyBias)/2, bounded to [0.5, 1.0].
func Analyze(in NoiseInput) NoiseResult {
	variance := choiceVariance(in.History)
	recency := recencyBias(in.History, in.Now)

	factors := []string{}
	if variance > varianceThreshold {
		factors = append(factors, FactorHighVariance)
	}
	if recency > recencyBiasThreshold {
		factors = append(factors, FactorRecencyBias)
	}
	if len(in.Alternatives) < 2 {
		factors = append(factors, FactorLimitedAlternatives)
	}

	return NoiseResult{
		NoiseFactors: factors,
		BiasDetected: len(factors) > 0,
		Confidence:   1 - max(variance, recency)/2,
		Variance:     variance,
	}
}

// choiceVariance returns (distinctChoices-1)/totalChoices over the recorded
// choices of the historical pool. Fewer than 2 historical decisions, or a
// pool with no recorded choices, yields 0.
func choiceVariance(history []model.Decision) float64 {
	if len(history) < 2 {
		return 0
	}
	seen := make(map[string]struct{})
	total := 0
	for _, d := range history {
		if d.Choice == nil || *d.Choice == "" {
			continue
		}
		seen[*d.Choice] = struct{}{}
		total++
	}
	if total == 0 {
		return 0
	}
	return float64(len(seen)-1) / float64(total)
}

// recencyBias returns the fraction of historical decisions resolved within
// the recency window before now.
func recencyBias(history []model.Decision, now time.Time) float64 {
	if len(history) == 0 {
		return 0
	}
	recent := 0
	for _, d := range history {
		if d.DecidedAt != nil && now.Sub(*d.DecidedAt) < recencyWindow {
			recent++
		}
	}
	return float64(recent) / float64(len(history))
}
