package decisions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/analysis"
	"github.com/orbitalworks/verdict/internal/backlog"
	"github.com/orbitalworks/verdict/internal/metrics"
	"github.com/orbitalworks/verdict/internal/model"
)

// similarLimit caps the similar-decision list on the analysis detail view.
const similarLimit = 5

// Get fetches a single decision scoped to the organization.
func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*model.Decision, error) {
	return s.db.GetDecision(ctx, orgID, id)
}

// ListSummary is the headline metrics block returned alongside a filtered
// decision list.
type ListSummary struct {
	Total             int     `json:"total"`
	Pending           int     `json:"pending"`
	Overdue           int     `json:"overdue"`
	AvgDecisionTime   float64 `json:"avg_decision_time_hours"`
	BiasDetectionRate float64 `json:"bias_detection_rate"`
}

// ListResult pairs a filtered decision list with its summary metrics.
type ListResult struct {
	Decisions []*model.Decision `json:"decisions"`
	Summary   ListSummary       `json:"summary"`
}

// List returns decisions matching the filters with summary metrics computed
// over the same snapshot. Overdue counts pending decisions past deadline.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filters model.DecisionFilters) (ListResult, error) {
	listed, err := s.db.ListDecisions(ctx, orgID, filters, 0)
	if err != nil {
		return ListResult{}, fmt.Errorf("list: %w", err)
	}

	now := s.now()
	summary := ListSummary{Total: len(listed)}
	biased := 0
	for _, d := range listed {
		if d.BiasDetected {
			biased++
		}
		if d.Status != model.StatusPending {
			continue
		}
		summary.Pending++
		if d.Deadline != nil && d.Deadline.Before(now) {
			summary.Overdue++
		}
	}
	summary.AvgDecisionTime = metrics.AverageDecisionTimeHours(deref(listed))
	if len(listed) > 0 {
		summary.BiasDetectionRate = float64(biased) / float64(len(listed)) * 100
	}

	if listed == nil {
		listed = []*model.Decision{}
	}
	return ListResult{Decisions: listed, Summary: summary}, nil
}

// AnalysisView is the recomputed analysis narrative for a stored decision.
// It is deterministic over the decision and its current historical pool.
type AnalysisView struct {
	VarianceScore float64  `json:"variance_score"`
	BiasSignals   []string `json:"bias_signals"`
	Confidence    float64  `json:"confidence"`
	Narrative     string   `json:"narrative"`
}

// OutcomePrediction is the coarse forward-looking estimate on the analysis
// detail view, weighted by priority.
type OutcomePrediction struct {
	SuccessProbability float64  `json:"success_probability"`
	Risks              []string `json:"risks"`
	Opportunities      []string `json:"opportunities"`
	Confidence         float64  `json:"confidence"`
}

// DecisionDetail is the full analysis view of a single decision.
type DecisionDetail struct {
	Decision         *model.Decision   `json:"decision"`
	Analysis         AnalysisView      `json:"analysis"`
	SimilarDecisions []*model.Decision `json:"similar_decisions"`
	Predictions      OutcomePrediction `json:"predictions"`
}

// Detail returns a decision together with a recomputed analysis narrative,
// recent similar decisions of the same type, and outcome predictions.
func (s *Service) Detail(ctx context.Context, orgID, id uuid.UUID) (DecisionDetail, error) {
	d, err := s.db.GetDecision(ctx, orgID, id)
	if err != nil {
		return DecisionDetail{}, fmt.Errorf("detail: %w", err)
	}

	history, err := s.db.ListHistoricalDecisions(ctx, orgID, d.Type, historyLimit)
	if err != nil {
		return DecisionDetail{}, fmt.Errorf("detail: load history: %w", err)
	}
	noise := analysis.Analyze(analysis.NoiseInput{
		Context:      d.Context,
		Alternatives: d.Alternatives,
		Criteria:     d.Criteria,
		History:      deref(history),
		Now:          s.now(),
	})

	similar, err := s.db.ListSimilarDecisions(ctx, orgID, d.Type, d.ID, similarLimit)
	if err != nil {
		return DecisionDetail{}, fmt.Errorf("detail: similar decisions: %w", err)
	}
	if similar == nil {
		similar = []*model.Decision{}
	}

	return DecisionDetail{
		Decision: d,
		Analysis: AnalysisView{
			VarianceScore: noise.Variance,
			BiasSignals:   d.NoiseFactors,
			Confidence:    d.AIConfidence,
			Narrative:     "Analysis synthesized from historical variance, bias signals, and AI telemetry.",
		},
		SimilarDecisions: similar,
		Predictions:      predictOutcomes(d.Priority),
	}, nil
}

// predictOutcomes returns the fixed priority-weighted outcome estimate.
func predictOutcomes(p model.Priority) OutcomePrediction {
	weight := 0.7
	switch p {
	case model.PriorityCritical:
		weight = 0.8
	case model.PriorityHigh:
		weight = 0.75
	}
	return OutcomePrediction{
		SuccessProbability: weight + 0.05,
		Risks:              []string{"Supply chain delay", "Quality variance"},
		Opportunities:      []string{"Cost savings", "Faster delivery"},
		Confidence:         weight + 0.12,
	}
}

// BatchReviewResult is the hotspot analysis over an explicit set of pending
// decisions.
type BatchReviewResult struct {
	Decisions []*model.Decision     `json:"decisions"`
	Analysis  metrics.BatchAnalysis `json:"analysis"`
}

// BatchReview loads the named decisions that are still pending in the
// organization and runs hotspot analysis over them. IDs that are missing,
// foreign, or already resolved are silently excluded.
func (s *Service) BatchReview(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (BatchReviewResult, error) {
	decisions, err := s.db.GetDecisionsByIDs(ctx, orgID, ids, true)
	if err != nil {
		return BatchReviewResult{}, fmt.Errorf("batch review: %w", err)
	}
	if decisions == nil {
		decisions = []*model.Decision{}
	}
	return BatchReviewResult{
		Decisions: decisions,
		Analysis:  metrics.AnalyzeBatch(deref(decisions)),
	}, nil
}

// MetricsReport is the windowed metrics summary with its reporting window.
type MetricsReport struct {
	Summary   metrics.Summary `json:"summary"`
	Period    metrics.Period  `json:"period"`
	StartDate time.Time       `json:"start_date"`
}

// Metrics aggregates decision statistics over the reporting window ending
// now. Unrecognized periods fall back to month.
func (s *Service) Metrics(ctx context.Context, orgID uuid.UUID, period metrics.Period) (MetricsReport, error) {
	start := metrics.WindowStart(period, s.now())
	decisions, err := s.db.ListDecisions(ctx, orgID, model.DecisionFilters{CreatedAfter: &start}, 0)
	if err != nil {
		return MetricsReport{}, fmt.Errorf("metrics: %w", err)
	}
	if !metrics.ValidPeriod(string(period)) {
		period = metrics.PeriodMonth
	}
	return MetricsReport{
		Summary:   metrics.Compute(deref(decisions)),
		Period:    period,
		StartDate: start,
	}, nil
}

// Backlog returns the pending backlog ordered by priority then deadline,
// capped at limit.
func (s *Service) Backlog(ctx context.Context, orgID uuid.UUID, limit int) ([]model.Decision, error) {
	pending, err := s.db.ListPendingDecisions(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("backlog: %w", err)
	}
	return backlog.Prioritize(deref(pending), limit), nil
}
