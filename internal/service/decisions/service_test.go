package decisions_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitalworks/verdict/internal/dispatch"
	"github.com/orbitalworks/verdict/internal/metrics"
	"github.com/orbitalworks/verdict/internal/model"
	"github.com/orbitalworks/verdict/internal/service/decisions"
	"github.com/orbitalworks/verdict/internal/storage"
	"github.com/orbitalworks/verdict/internal/telemetry"
	"github.com/orbitalworks/verdict/internal/testutil"
)

var (
	testDB  *storage.DB
	testSvc *decisions.Service
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	tc := testutil.MustStartPostgres()
	logger := testutil.TestLogger()

	var err error
	testDB, err = tc.NewTestDB(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create DB: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}

	dispatcher, err := dispatch.New(testDB, logger, telemetry.Meter("verdict/dispatch"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create dispatcher: %v\n", err)
		tc.Terminate()
		os.Exit(1)
	}
	testSvc = decisions.New(testDB, dispatcher, logger, false)

	code := m.Run()
	testDB.Close(ctx)
	tc.Terminate()
	os.Exit(code)
}

func ptr[T any](v T) *T { return &v }

func TestCreateScoresAndPersistsPending(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.procurement")

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title:       "Select supplier for widget restock",
		Description: "Quarterly restock of widgets",
		Type:        "procurement",
		Priority:    "high",
		Alternatives: map[string]model.AlternativeSpec{
			"approve": {Score: ptr(0.8), Risk: ptr(0.2)},
			"deny":    {Score: ptr(0.3), Risk: ptr(0.1)},
		},
		Criteria: map[string]float64{"cost": 0.6, "speed": 0.4},
	})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, d.Status)
	require.NotNil(t, d.AIRecommendation)
	assert.Equal(t, "approve", d.AIRecommendation.Choice)
	assert.InDelta(t, 0.84, d.AIConfidence, 1e-9)
	assert.Equal(t, []string{"cost", "speed"}, d.AIRecommendation.SupportingCriteria)
	// One alternative short of two is the only structural flag candidate;
	// with two alternatives and no history, no factors fire.
	assert.Empty(t, d.NoiseFactors)
	assert.False(t, d.BiasDetected)

	stored, err := testSvc.Get(ctx, org.id, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, stored.ID)
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestCreateNotifiesStakeholders(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.qa_release")

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title:       "Release lot 42 from quality hold",
		Description: "QA sampling complete",
		Type:        "qa_release",
		Priority:    "critical",
		Alternatives: map[string]model.AlternativeSpec{
			"release": {}, "hold": {},
		},
	})
	require.NoError(t, err)

	notifs, err := testDB.ListNotificationsForUser(ctx, org.stakeholder, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, "alert", notifs[0].Type, "critical priority escalates to alert")
	assert.Equal(t, "Decision Required: "+d.Title, notifs[0].Title)
}

func TestCreateFallbackRecommendationWithoutAlternatives(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.hiring")

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title:       "Backfill platform engineer",
		Description: "Headcount request",
		Type:        "hiring",
		Priority:    "medium",
	})
	require.NoError(t, err)
	require.NotNil(t, d.AIRecommendation)
	assert.Equal(t, "review", d.AIRecommendation.Choice)
	assert.InDelta(t, 0.2, d.AIConfidence, 1e-9)
	assert.Contains(t, d.NoiseFactors, "limited_alternatives")
	assert.True(t, d.BiasDetected)
}

func TestResolveCreatesPurchaseOrder(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.procurement")

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title:       "Approve widget purchase",
		Description: "PO for widgets",
		Type:        "procurement",
		Priority:    "high",
		Context: map[string]any{
			"supplierId": "SUP-77",
			"items": []any{
				map[string]any{"sku": "WIDGET-1", "quantity": float64(10), "unitPrice": float64(3)},
			},
		},
		Alternatives: map[string]model.AlternativeSpec{
			"approve": {Score: ptr(0.8), Risk: ptr(0.2)},
			"deny":    {Score: ptr(0.3), Risk: ptr(0.1)},
		},
	})
	require.NoError(t, err)

	result, err := testSvc.Resolve(ctx, org.id, org.stakeholder, d.ID, model.ResolveDecisionRequest{
		Choice:    "approve",
		Outcome:   "approve",
		Reasoning: "Best composite score and supplier on contract",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, result.Decision.Status)
	assert.False(t, result.Consistency.Inconsistent)

	var poNumber string
	var totalAmount float64
	err = testDB.Pool().QueryRow(ctx,
		`SELECT po_number, total_amount FROM procurements WHERE org_id = $1`, org.id,
	).Scan(&poNumber, &totalAmount)
	require.NoError(t, err)
	assert.Contains(t, poNumber, "DEC-")
	assert.Equal(t, 30.0, totalAmount)
}

func TestResolveFlagsDivergenceFromRecommendation(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.procurement")

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title:       "Supplier selection",
		Description: "Two bids received",
		Type:        "procurement",
		Priority:    "medium",
		Alternatives: map[string]model.AlternativeSpec{
			"approve": {Score: ptr(0.9), Risk: ptr(0.1)},
			"deny":    {Score: ptr(0.2), Risk: ptr(0.1)},
		},
	})
	require.NoError(t, err)

	result, err := testSvc.Resolve(ctx, org.id, org.stakeholder, d.ID, model.ResolveDecisionRequest{
		Choice:    "deny",
		Outcome:   "reject",
		Reasoning: "Budget freeze this quarter",
	})
	require.NoError(t, err)
	assert.True(t, result.Consistency.Inconsistent)
	assert.NotEmpty(t, result.Consistency.Reason)
	// Literal status semantics: terminal state is approved regardless of
	// outcome unless the derive flag is on.
	assert.Equal(t, model.StatusApproved, result.Decision.Status)
}

func TestResolveTwiceReportsNotFound(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.ops")

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "One-shot decision", Description: "d", Type: "ops", Priority: "low",
		Alternatives: map[string]model.AlternativeSpec{"go": {}, "wait": {}},
	})
	require.NoError(t, err)

	_, err = testSvc.Resolve(ctx, org.id, org.stakeholder, d.ID, model.ResolveDecisionRequest{
		Choice: "go", Outcome: "approve", Reasoning: "r",
	})
	require.NoError(t, err)

	_, err = testSvc.Resolve(ctx, org.id, org.stakeholder, d.ID, model.ResolveDecisionRequest{
		Choice: "wait", Outcome: "defer", Reasoning: "r",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestConcurrentResolveHasSingleWinner(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.ops")

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "Contended decision", Description: "d", Type: "ops", Priority: "high",
		Alternatives: map[string]model.AlternativeSpec{"go": {}, "wait": {}},
	})
	require.NoError(t, err)

	choices := []string{"go", "wait"}
	errs := make([]error, len(choices))
	var wg sync.WaitGroup
	for i, choice := range choices {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = testSvc.Resolve(ctx, org.id, org.stakeholder, d.ID, model.ResolveDecisionRequest{
				Choice: choice, Outcome: "approve", Reasoning: "race",
			})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, storage.ErrNotFound), "loser sees not found, got: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one concurrent resolve wins")
}

func TestDetailIncludesSimilarAndPredictions(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.procurement")

	// A resolved sibling of the same type becomes a similar decision.
	sibling, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "Earlier supplier pick", Description: "d", Type: "procurement", Priority: "medium",
		Alternatives: map[string]model.AlternativeSpec{"approve": {}, "deny": {}},
	})
	require.NoError(t, err)
	_, err = testSvc.Resolve(ctx, org.id, org.stakeholder, sibling.ID, model.ResolveDecisionRequest{
		Choice: "approve", Outcome: "approve", Reasoning: "r",
	})
	require.NoError(t, err)

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "Current supplier pick", Description: "d", Type: "procurement", Priority: "critical",
		Alternatives: map[string]model.AlternativeSpec{"approve": {}, "deny": {}},
	})
	require.NoError(t, err)

	detail, err := testSvc.Detail(ctx, org.id, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, detail.Decision.ID)
	require.Len(t, detail.SimilarDecisions, 1)
	assert.Equal(t, sibling.ID, detail.SimilarDecisions[0].ID)
	assert.InDelta(t, 0.85, detail.Predictions.SuccessProbability, 1e-9)
	assert.InDelta(t, 0.92, detail.Predictions.Confidence, 1e-9)
	assert.NotEmpty(t, detail.Analysis.Narrative)
}

func TestListSummaryCountsOverdue(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.ops")

	past := time.Now().Add(-2 * time.Hour)
	_, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "Overdue decision", Description: "d", Type: "ops", Priority: "high",
		Alternatives: map[string]model.AlternativeSpec{"go": {}, "wait": {}},
		Deadline:     &past,
	})
	require.NoError(t, err)
	_, err = testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "On-time decision", Description: "d", Type: "ops", Priority: "low",
		Alternatives: map[string]model.AlternativeSpec{"go": {}, "wait": {}},
	})
	require.NoError(t, err)

	result, err := testSvc.List(ctx, org.id, model.DecisionFilters{})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Summary.Total)
	assert.Equal(t, 2, result.Summary.Pending)
	assert.Equal(t, 1, result.Summary.Overdue)
}

func TestBatchReviewSkipsResolvedAndForeignDecisions(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.ops")
	otherOrg := seedOrg(t, "decision.ops")

	pending, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "Pending", Description: "d", Type: "ops", Priority: "medium",
		Alternatives: map[string]model.AlternativeSpec{"go": {}, "wait": {}},
	})
	require.NoError(t, err)

	resolved, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "Resolved", Description: "d", Type: "ops", Priority: "medium",
		Alternatives: map[string]model.AlternativeSpec{"go": {}, "wait": {}},
	})
	require.NoError(t, err)
	_, err = testSvc.Resolve(ctx, org.id, org.stakeholder, resolved.ID, model.ResolveDecisionRequest{
		Choice: "go", Outcome: "approve", Reasoning: "r",
	})
	require.NoError(t, err)

	foreign, err := testSvc.Create(ctx, otherOrg.id, otherOrg.requester, model.CreateDecisionRequest{
		Title: "Foreign", Description: "d", Type: "ops", Priority: "medium",
		Alternatives: map[string]model.AlternativeSpec{"go": {}, "wait": {}},
	})
	require.NoError(t, err)

	review, err := testSvc.BatchReview(ctx, org.id, []uuid.UUID{pending.ID, resolved.ID, foreign.ID})
	require.NoError(t, err)
	require.Len(t, review.Decisions, 1)
	assert.Equal(t, pending.ID, review.Decisions[0].ID)
	assert.Equal(t, 0, review.Analysis.Hotspots)
}

func TestMetricsWindowAndRates(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.ops")

	d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
		Title: "Metered decision", Description: "d", Type: "ops", Priority: "high",
		Alternatives: map[string]model.AlternativeSpec{
			"go":   {Score: ptr(0.9), Risk: ptr(0.1)},
			"wait": {Score: ptr(0.1), Risk: ptr(0.1)},
		},
	})
	require.NoError(t, err)
	_, err = testSvc.Resolve(ctx, org.id, org.stakeholder, d.ID, model.ResolveDecisionRequest{
		Choice: "go", Outcome: "approve", Reasoning: "r",
	})
	require.NoError(t, err)

	report, err := testSvc.Metrics(ctx, org.id, metrics.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, metrics.PeriodWeek, report.Period)
	assert.Equal(t, 1, report.Summary.TotalDecisions)
	assert.Equal(t, 1, report.Summary.ByStatus["approved"])
	assert.InDelta(t, 100.0, report.Summary.AIAcceptanceRate, 1e-9, "resolved choice matched recommendation")
}

func TestBacklogOrdersByPriorityThenDeadline(t *testing.T) {
	ctx := context.Background()
	org := seedOrg(t, "decision.ops")

	base := time.Now().Add(24 * time.Hour)
	mk := func(title, priority string, deadline *time.Time) uuid.UUID {
		d, err := testSvc.Create(ctx, org.id, org.requester, model.CreateDecisionRequest{
			Title: title, Description: "d", Type: "ops", Priority: priority,
			Alternatives: map[string]model.AlternativeSpec{"go": {}, "wait": {}},
			Deadline:     deadline,
		})
		require.NoError(t, err)
		return d.ID
	}

	d1 := mk("critical later", "critical", ptr(base.Add(2*time.Hour)))
	d2 := mk("high sooner", "high", ptr(base.Add(1*time.Hour)))
	d3 := mk("high later", "high", ptr(base.Add(3*time.Hour)))
	d4 := mk("low no deadline", "low", nil)

	ordered, err := testSvc.Backlog(ctx, org.id, 5)
	require.NoError(t, err)
	require.Len(t, ordered, 4)
	assert.Equal(t, []uuid.UUID{d1, d2, d3, d4}, []uuid.UUID{
		ordered[0].ID, ordered[1].ID, ordered[2].ID, ordered[3].ID,
	})
}
