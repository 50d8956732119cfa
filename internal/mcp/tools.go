package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/orbitalworks/verdict/internal/metrics"
	"github.com/orbitalworks/verdict/internal/model"
)

func (s *Server) registerTools() {
	// verdict_backlog: the prioritized pending queue.
	s.mcpServer.AddTool(
		mcplib.NewTool("verdict_backlog",
			mcplib.WithDescription(`List the pending decision backlog, highest urgency first.

WHEN TO USE: At the start of a triage session, or whenever you need to know
what is waiting on a human or agent decision right now.

Decisions are ordered by priority (critical first) and then by deadline, so
the first entry is always the most urgent open item.

WHAT YOU GET BACK: the pending decisions with their type, priority, deadline,
the engine's recommendation, and whether bias signals were detected at intake.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum number of decisions to return"),
				mcplib.Min(1),
				mcplib.Max(100),
				mcplib.DefaultNumber(25),
			),
		),
		s.handleBacklog,
	)

	// verdict_metrics: windowed decision statistics.
	s.mcpServer.AddTool(
		mcplib.NewTool("verdict_metrics",
			mcplib.WithDescription(`Summarize decision activity over a reporting window.

WHEN TO USE: For status reports or to judge how the decision process is
performing: volume, average time to decision, how often the engine's
recommendation was followed, and how often bias signals fired.

Periods: week, month, quarter. Anything else falls back to month.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("period",
				mcplib.Description("Reporting window: week, month, or quarter"),
			),
		),
		s.handleMetrics,
	)

	// verdict_decision: full analysis view of one decision.
	s.mcpServer.AddTool(
		mcplib.NewTool("verdict_decision",
			mcplib.WithDescription(`Look up one decision with its full analysis.

WHEN TO USE: Before resolving a specific decision, to see the recomputed
variance analysis, the bias signals recorded at intake, similar resolved
decisions of the same type, and the outcome predictions.

EXAMPLE: An operator asks "should I approve PO decision 4f2a...?", call this
with that id and weigh the recommendation and precedents it returns.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("id",
				mcplib.Description("Decision ID (UUID)"),
				mcplib.Required(),
			),
		),
		s.handleDecision,
	)

	// verdict_list: filtered decision listing.
	s.mcpServer.AddTool(
		mcplib.NewTool("verdict_list",
			mcplib.WithDescription(`List decisions with structured filters and summary statistics.

WHEN TO USE: When you need decisions matching exact criteria, for example all
resolved procurement decisions or every critical item still pending.

FILTERS: status (pending, approved, rejected, deferred), type (free-form,
e.g. procurement, qa_release, production), priority (critical, high, medium,
low). All filters are optional and combine with AND.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("status", mcplib.Description("Filter by lifecycle status")),
			mcplib.WithString("type", mcplib.Description("Filter by decision type")),
			mcplib.WithString("priority", mcplib.Description("Filter by priority")),
		),
		s.handleList,
	)
}

// callerOrg resolves the tenant for a tool call. Tool errors are returned in
// the result, not as Go errors, so the client sees them.
func (s *Server) callerOrg(ctx context.Context) (uuid.UUID, *mcplib.CallToolResult) {
	if s.tenant == nil {
		return uuid.Nil, errorResult("no tenant resolver configured")
	}
	orgID, ok := s.tenant(ctx)
	if !ok {
		return uuid.Nil, errorResult("unauthenticated: no organization in request context")
	}
	return orgID, nil
}

func (s *Server) handleBacklog(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	orgID, errRes := s.callerOrg(ctx)
	if errRes != nil {
		return errRes, nil
	}

	limit := request.GetInt("limit", 25)
	backlog, err := s.svc.Backlog(ctx, orgID, limit)
	if err != nil {
		s.logger.Error("mcp: backlog", "error", err, "org_id", orgID)
		return errorResult(fmt.Sprintf("backlog failed: %v", err)), nil
	}

	compacted := make([]map[string]any, len(backlog))
	for i, d := range backlog {
		compacted[i] = compactDecision(d)
	}
	return jsonResult(map[string]any{
		"decisions": compacted,
		"total":     len(compacted),
	})
}

func (s *Server) handleMetrics(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	orgID, errRes := s.callerOrg(ctx)
	if errRes != nil {
		return errRes, nil
	}

	period := metrics.Period(request.GetString("period", string(metrics.PeriodMonth)))
	report, err := s.svc.Metrics(ctx, orgID, period)
	if err != nil {
		s.logger.Error("mcp: metrics", "error", err, "org_id", orgID)
		return errorResult(fmt.Sprintf("metrics failed: %v", err)), nil
	}
	return jsonResult(report)
}

func (s *Server) handleDecision(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	orgID, errRes := s.callerOrg(ctx)
	if errRes != nil {
		return errRes, nil
	}

	id, err := uuid.Parse(request.GetString("id", ""))
	if err != nil {
		return errorResult("id must be a valid UUID"), nil
	}

	detail, err := s.svc.Detail(ctx, orgID, id)
	if err != nil {
		return errorResult(fmt.Sprintf("decision lookup failed: %v", err)), nil
	}

	similar := make([]map[string]any, len(detail.SimilarDecisions))
	for i, d := range detail.SimilarDecisions {
		similar[i] = compactDecision(*d)
	}
	return jsonResult(map[string]any{
		"decision":          compactDecision(*detail.Decision),
		"analysis":          detail.Analysis,
		"similar_decisions": similar,
		"predictions":       detail.Predictions,
	})
}

func (s *Server) handleList(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	orgID, errRes := s.callerOrg(ctx)
	if errRes != nil {
		return errRes, nil
	}

	var filters model.DecisionFilters
	if v := request.GetString("status", ""); v != "" {
		if !model.ValidStatus(v) {
			return errorResult("status must be one of pending, approved, rejected, deferred"), nil
		}
		status := model.Status(v)
		filters.Status = &status
	}
	if v := request.GetString("type", ""); v != "" {
		filters.Type = &v
	}
	if v := request.GetString("priority", ""); v != "" {
		if !model.ValidPriority(v) {
			return errorResult("priority must be one of critical, high, medium, low"), nil
		}
		priority := model.Priority(v)
		filters.Priority = &priority
	}

	result, err := s.svc.List(ctx, orgID, filters)
	if err != nil {
		s.logger.Error("mcp: list", "error", err, "org_id", orgID)
		return errorResult(fmt.Sprintf("list failed: %v", err)), nil
	}

	compacted := make([]map[string]any, len(result.Decisions))
	for i, d := range result.Decisions {
		compacted[i] = compactDecision(*d)
	}
	return jsonResult(map[string]any{
		"decisions": compacted,
		"summary":   result.Summary,
	})
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
