package analysis

import (
	"fmt"
	"sort"

	"github.com/orbitalworks/verdict/internal/model"
)

// Scoring constants. Score and risk default to 0.5 when the caller omits
// them; risk is penalized at a fixed 20% weight.
const (
	defaultScore  = 0.5
	defaultRisk   = 0.5
	riskWeight    = 0.2
	minConfidence = 0.4
	maxConfidence = 0.95

	// FallbackChoice is returned when no alternatives are supplied.
	FallbackChoice     = "review"
	fallbackRationale  = "No alternatives supplied"
	fallbackConfidence = 0.2
)

// ScoreResult is the recommendation artifact persisted with a new decision.
type ScoreResult struct {
	Recommendation model.Recommendation `json:"recommendation"`
	Confidence     float64              `json:"confidence"`
}

// Score ranks the candidate alternatives by priority-weighted, risk-adjusted
// composite score and returns the single recommended choice.
//
// composite = score * priorityWeight(priority) - risk * 0.2. Labels are
// evaluated in ascending order so ties resolve to the first label seen,
// Go maps carry no insertion order, and the artifact must be reproducible.
// With no alternatives the sole fallback path recommends "review" at
// confidence 0.2.
func Score(decisionType string, priority model.Priority, alternatives map[string]model.AlternativeSpec, criteria map[string]float64) ScoreResult {
	if len(alternatives) == 0 {
		return ScoreResult{
			Recommendation: model.Recommendation{
				Choice:             FallbackChoice,
				Rationale:          fallbackRationale,
				SupportingCriteria: []string{},
			},
			Confidence: fallbackConfidence,
		}
	}

	labels := make([]string, 0, len(alternatives))
	for label := range alternatives {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	weight := PriorityWeight(priority)
	bestLabel := ""
	bestScore := 0.0
	for i, label := range labels {
		alt := alternatives[label]
		composite := value(alt.Score, defaultScore)*weight - value(alt.Risk, defaultRisk)*riskWeight
		if i == 0 || composite > bestScore {
			bestLabel = label
			bestScore = composite
		}
	}

	supporting := make([]string, 0, len(criteria))
	for name := range criteria {
		supporting = append(supporting, name)
	}
	sort.Strings(supporting)

	return ScoreResult{
		Recommendation: model.Recommendation{
			Choice:             bestLabel,
			Rationale:          fmt.Sprintf("Selected %s with composite score %.2f", bestLabel, bestScore),
			SupportingCriteria: supporting,
		},
		Confidence: clamp(bestScore, minConfidence, maxConfidence),
	}
}

// PriorityWeight maps a priority level to its scoring boost. Unknown values,
// including free-form strings, weigh 0.9.
func PriorityWeight(p model.Priority) float64 {
	switch p {
	case model.PriorityCritical:
		return 1.2
	case model.PriorityHigh:
		return 1.1
	case model.PriorityMedium:
		return 1.0
	default:
		return 0.9
	}
}

func value(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
