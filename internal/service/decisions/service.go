// Package decisions provides the shared business logic for the decision
// lifecycle.
//
// Both the HTTP API and MCP server delegate to this service, eliminating
// duplicated logic and ensuring consistent behavior (noise analysis,
// scoring, race-safe resolution, side-effect dispatch, notification)
// across all interfaces.
package decisions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/orbitalworks/verdict/internal/analysis"
	"github.com/orbitalworks/verdict/internal/dispatch"
	"github.com/orbitalworks/verdict/internal/model"
	"github.com/orbitalworks/verdict/internal/storage"
	"github.com/orbitalworks/verdict/internal/telemetry"
)

// historyLimit bounds the historical pool fed to the noise analyzer.
const historyLimit = 20

// Service encapsulates decision business logic shared by HTTP and MCP handlers.
type Service struct {
	db           *storage.DB
	dispatcher   *dispatch.Dispatcher
	logger       *slog.Logger
	deriveStatus bool
	now          func() time.Time

	createDuration  metric.Float64Histogram
	resolveDuration metric.Float64Histogram
}

// New creates a new decision Service. deriveStatus selects whether terminal
// status is derived from the resolution outcome or always approved.
func New(db *storage.DB, dispatcher *dispatch.Dispatcher, logger *slog.Logger, deriveStatus bool) *Service {
	meter := telemetry.Meter("verdict/decisions")
	createDur, _ := meter.Float64Histogram("verdict.decision.create.duration",
		metric.WithDescription("Time to create and analyze a decision (ms)"),
		metric.WithUnit("ms"),
	)
	resolveDur, _ := meter.Float64Histogram("verdict.decision.resolve.duration",
		metric.WithDescription("Time to resolve a decision including dispatch (ms)"),
		metric.WithUnit("ms"),
	)
	return &Service{
		db:              db,
		dispatcher:      dispatcher,
		logger:          logger,
		deriveStatus:    deriveStatus,
		now:             time.Now,
		createDuration:  createDur,
		resolveDuration: resolveDur,
	}
}

// Create analyzes, scores, and persists a new pending decision, then fans
// out stakeholder notifications and publishes decision.created.
//
// The analysis artifacts are computed against the most recent resolved
// decisions of the same type and are immutable once stored. Notification
// fan-out runs concurrently but must fully complete; a failed notification
// surfaces as an error even though the decision row is already committed,
// so the caller knows the audit trail is incomplete.
func (s *Service) Create(ctx context.Context, orgID, requesterID uuid.UUID, req model.CreateDecisionRequest) (*model.Decision, error) {
	start := s.now()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("verdict.decision_type", req.Type),
		attribute.String("verdict.priority", req.Priority),
	)

	history, err := s.db.ListHistoricalDecisions(ctx, orgID, req.Type, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("create: load history: %w", err)
	}

	noise := analysis.Analyze(analysis.NoiseInput{
		Context:      req.Context,
		Alternatives: req.Alternatives,
		Criteria:     req.Criteria,
		History:      deref(history),
		Now:          start,
	})
	score := analysis.Score(req.Type, model.Priority(req.Priority), req.Alternatives, req.Criteria)

	rec := score.Recommendation
	d := &model.Decision{
		ID:               uuid.New(),
		OrgID:            orgID,
		RequesterID:      requesterID,
		ProjectID:        req.ProjectID,
		Type:             req.Type,
		Priority:         model.Priority(req.Priority),
		Title:            req.Title,
		Description:      req.Description,
		Context:          emptyIfNil(req.Context),
		Alternatives:     emptyAltsIfNil(req.Alternatives),
		Criteria:         emptyCriteriaIfNil(req.Criteria),
		Status:           model.StatusPending,
		NoiseFactors:     noise.NoiseFactors,
		BiasDetected:     noise.BiasDetected,
		AIRecommendation: &rec,
		AIConfidence:     score.Confidence,
		Deadline:         req.Deadline,
		CreatedAt:        start,
	}

	if err := s.db.CreateDecision(ctx, d); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	if err := s.notifyStakeholders(ctx, d); err != nil {
		return nil, fmt.Errorf("create: %w", err)
	}

	s.publish(ctx, "decision.created", map[string]any{
		"org_id":      d.OrgID,
		"decision_id": d.ID,
		"priority":    d.Priority,
		"requester":   d.RequesterID,
	})

	s.createDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return d, nil
}

// ResolveResult is the outcome of resolving a decision.
type ResolveResult struct {
	Decision    *model.Decision            `json:"decision"`
	Consistency analysis.ConsistencyResult `json:"consistency"`
}

// Resolve moves a pending decision to its terminal state and dispatches the
// downstream side effect.
//
// The state transition is a single conditional update keyed on the pending
// status, so concurrent resolutions of the same decision serialize in the
// database: exactly one caller wins, the rest observe storage.ErrNotFound.
// The consistency check is observational and never blocks resolution; the
// dispatcher runs strictly after the transition commits and its failures
// never surface here.
func (s *Service) Resolve(ctx context.Context, orgID, deciderID, id uuid.UUID, req model.ResolveDecisionRequest) (ResolveResult, error) {
	start := s.now()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("verdict.decision_id", id.String()))

	pending, err := s.db.GetDecision(ctx, orgID, id)
	if err != nil {
		return ResolveResult{}, fmt.Errorf("resolve: %w", err)
	}
	if pending.Status != model.StatusPending {
		// Indistinguishable from a missing decision to the caller.
		return ResolveResult{}, fmt.Errorf("resolve: %w", storage.ErrNotFound)
	}

	consistency := analysis.CheckConsistency(*pending, req.Choice)
	if consistency.Inconsistent {
		s.logger.Warn("resolution diverges from recommendation",
			"org_id", orgID,
			"decision_id", id,
			"choice", req.Choice,
			"recommended", pending.RecommendedChoice(),
		)
		if pending.ProjectID != nil {
			if ref, err := s.db.LatestResolvedByProject(ctx, orgID, *pending.ProjectID); err == nil {
				consistency.ReferenceDecisionID = &ref.ID
			}
		}
	}

	outcome := model.Outcome(req.Outcome)
	status := model.TerminalStatusFor(outcome, s.deriveStatus)

	resolved, err := s.db.ResolveDecisionIfPending(ctx, orgID, id, status, req.Choice, req.Reasoning, deciderID, start)
	if err != nil {
		return ResolveResult{}, fmt.Errorf("resolve: %w", err)
	}

	// Side effects run after the committed transition and are best effort.
	s.dispatcher.Execute(ctx, resolved, outcome)

	s.logger.Info("decision made",
		"decision_id", resolved.ID,
		"type", resolved.Type,
		"choice", req.Choice,
		"status", resolved.Status,
		"decided_by", deciderID,
	)

	s.publish(ctx, "decision.made", map[string]any{
		"org_id":      orgID,
		"decision_id": resolved.ID,
		"choice":      req.Choice,
		"decided_by":  deciderID,
	})

	s.resolveDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return ResolveResult{Decision: resolved, Consistency: consistency}, nil
}

// notifyStakeholders writes a notification for every user holding the
// decision.<type> permission. Fan-out is concurrent with no ordering
// guarantee, but all writes must land before the create call succeeds.
func (s *Service) notifyStakeholders(ctx context.Context, d *model.Decision) error {
	stakeholders, err := s.db.ListStakeholders(ctx, d.OrgID, "decision."+d.Type)
	if err != nil {
		return fmt.Errorf("list stakeholders: %w", err)
	}

	notifType := "info"
	if d.Priority == model.PriorityCritical {
		notifType = "alert"
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, stakeholder := range stakeholders {
		g.Go(func() error {
			return s.db.CreateNotification(gctx, &model.Notification{
				ID:      uuid.New(),
				UserID:  stakeholder.ID,
				Type:    notifType,
				Title:   "Decision Required: " + d.Title,
				Message: d.Description,
				Data: map[string]any{
					"decision_id": d.ID,
				},
				CreatedAt: s.now(),
			})
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("notify stakeholders: %w", err)
	}
	return nil
}

// publish emits a lifecycle event on the decisions channel, non-fatal.
func (s *Service) publish(ctx context.Context, event string, payload map[string]any) {
	payload["event"] = event
	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshal event payload", "event", event, "error", err)
		return
	}
	if err := s.db.Notify(ctx, storage.ChannelDecisions, string(body)); err != nil {
		s.logger.Error("publish event", "event", event, "error", err)
	}
}

func deref(decisions []*model.Decision) []model.Decision {
	out := make([]model.Decision, len(decisions))
	for i, d := range decisions {
		out[i] = *d
	}
	return out
}

func emptyIfNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func emptyAltsIfNil(m map[string]model.AlternativeSpec) map[string]model.AlternativeSpec {
	if m == nil {
		return map[string]model.AlternativeSpec{}
	}
	return m
}

func emptyCriteriaIfNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
