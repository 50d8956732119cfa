// Package metrics aggregates auditable statistics over decision sets:
// grouping counts, decision latency, bias and AI-acceptance rates, per-type
// consistency scoring, and batch inconsistency analysis. All functions are
// pure over the supplied snapshot.
package metrics

import (
	"time"

	"github.com/orbitalworks/verdict/internal/model"
)

// Period is a reporting window for metrics queries.
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodQuarter Period = "quarter"
)

// ValidPeriod reports whether p is a recognized reporting window.
func ValidPeriod(p string) bool {
	switch Period(p) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodQuarter:
		return true
	}
	return false
}

// WindowStart returns the inclusive start of the reporting window ending at
// now. Unrecognized periods fall back to month.
func WindowStart(p Period, now time.Time) time.Time {
	switch p {
	case PeriodDay:
		return now.Add(-24 * time.Hour)
	case PeriodWeek:
		return now.Add(-7 * 24 * time.Hour)
	case PeriodQuarter:
		return now.AddDate(0, -3, 0)
	default:
		return now.AddDate(0, -1, 0)
	}
}

// Summary is the windowed metrics report over a decision set.
type Summary struct {
	TotalDecisions      int            `json:"total_decisions"`
	ByStatus            map[string]int `json:"by_status"`
	ByType              map[string]int `json:"by_type"`
	ByPriority          map[string]int `json:"by_priority"`
	AverageDecisionTime float64        `json:"average_decision_time_hours"`
	BiasDetectionRate   float64        `json:"bias_detection_rate"`
	AIAcceptanceRate    float64        `json:"ai_acceptance_rate"`
	ConsistencyScore    float64        `json:"consistency_score"`
}

// Compute aggregates the full metrics summary over a decision snapshot.
func Compute(decisions []model.Decision) Summary {
	s := Summary{
		TotalDecisions: len(decisions),
		ByStatus:       make(map[string]int),
		ByType:         make(map[string]int),
		ByPriority:     make(map[string]int),
	}

	var resolved, biased, accepted int
	for _, d := range decisions {
		s.ByStatus[string(d.Status)]++
		s.ByType[d.Type]++
		s.ByPriority[string(d.Priority)]++
		if d.BiasDetected {
			biased++
		}
		if d.Resolved() {
			resolved++
			if rec := d.RecommendedChoice(); rec != "" && d.Choice != nil && *d.Choice == rec {
				accepted++
			}
		}
	}

	s.AverageDecisionTime = AverageDecisionTimeHours(decisions)
	if len(decisions) > 0 {
		s.BiasDetectionRate = float64(biased) / float64(len(decisions)) * 100
	}
	if resolved > 0 {
		s.AIAcceptanceRate = float64(accepted) / float64(resolved) * 100
	}
	s.ConsistencyScore = ConsistencyScore(decisions)
	return s
}

// AverageDecisionTimeHours is the mean of (decidedAt - createdAt) in hours
// over resolved decisions, with each interval clamped at zero. Returns 0
// when nothing is resolved.
func AverageDecisionTimeHours(decisions []model.Decision) float64 {
	var total time.Duration
	count := 0
	for _, d := range decisions {
		if !d.Resolved() || d.DecidedAt == nil {
			continue
		}
		elapsed := d.DecidedAt.Sub(d.CreatedAt)
		if elapsed < 0 {
			elapsed = 0
		}
		total += elapsed
		count++
	}
	if count == 0 {
		return 0
	}
	return total.Hours() / float64(count)
}

// ConsistencyScore measures how uniform past outcomes have been, per type,
// on a 0-100 scale. For each type with at least 2 resolved decisions the
// type score is (1 - (distinctChoices-1)/totalChoices) * 100; the overall
// score is the mean across qualifying types, or 100 when no type qualifies.
func ConsistencyScore(decisions []model.Decision) float64 {
	choicesByType := make(map[string][]string)
	for _, d := range decisions {
		if !d.Resolved() || d.Choice == nil || *d.Choice == "" {
			continue
		}
		choicesByType[d.Type] = append(choicesByType[d.Type], *d.Choice)
	}

	var total float64
	qualifying := 0
	for _, choices := range choicesByType {
		if len(choices) < 2 {
			continue
		}
		distinct := make(map[string]struct{}, len(choices))
		for _, c := range choices {
			distinct[c] = struct{}{}
		}
		total += (1 - float64(len(distinct)-1)/float64(len(choices))) * 100
		qualifying++
	}
	if qualifying == 0 {
		return 100
	}
	return total / float64(qualifying)
}

// BatchAnalysis is the hotspot report over an explicitly-selected set of
// decisions.
type BatchAnalysis struct {
	Hotspots          int      `json:"hotspots"`
	InconsistencyRate float64  `json:"inconsistency_rate"`
	Recommendations   []string `json:"recommendations"`
}

// Remediation suggestions returned by AnalyzeBatch.
var (
	hotspotRecommendations = []string{
		"Review policy alignment for inconsistent decisions",
		"Schedule calibration workshop",
	}
	noHotspotRecommendations = []string{"No hotspots detected"}
)

// AnalyzeBatch counts hotspots, decisions whose recorded choice diverges
// from a non-empty AI recommendation, over an explicit decision set and
// returns canned remediation suggestions when any exist.
func AnalyzeBatch(decisions []model.Decision) BatchAnalysis {
	if len(decisions) == 0 {
		return BatchAnalysis{Recommendations: []string{}}
	}

	hotspots := 0
	for _, d := range decisions {
		rec := d.RecommendedChoice()
		if rec != "" && d.Choice != nil && *d.Choice != "" && *d.Choice != rec {
			hotspots++
		}
	}

	recs := noHotspotRecommendations
	if hotspots > 0 {
		recs = hotspotRecommendations
	}
	return BatchAnalysis{
		Hotspots:          hotspots,
		InconsistencyRate: float64(hotspots) / float64(len(decisions)),
		Recommendations:   recs,
	}
}
