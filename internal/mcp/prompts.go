package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// triage-backlog guides an agent through working the pending queue.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("triage-backlog",
			mcplib.WithPromptDescription("Work through the pending decision backlog in urgency order"),
		),
		s.handleTriageBacklogPrompt,
	)

	// resolve-decision guides an agent through evaluating one decision.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("resolve-decision",
			mcplib.WithPromptDescription("Evaluate a single pending decision before resolving it"),
			mcplib.WithArgument("decision_id",
				mcplib.ArgumentDescription("The ID of the pending decision to evaluate"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleResolveDecisionPrompt,
	)
}

func (s *Server) handleTriageBacklogPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "Triage the pending decision backlog",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `Work through the pending decision backlog:

1. Call verdict_backlog to get the queue, highest urgency first.
2. For each critical or overdue decision, call verdict_decision to see the
   analysis, bias signals, and similar resolved decisions.
3. Summarize for the operator: what is waiting, what is overdue, which
   decisions carry bias signals, and what the engine recommends for each.

Do not resolve anything yourself; resolution goes through the HTTP API with
an accountable decider.`,
				},
			},
		},
	}, nil
}

func (s *Server) handleResolveDecisionPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	decisionID := request.Params.Arguments["decision_id"]
	if decisionID == "" {
		return nil, fmt.Errorf("decision_id argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: fmt.Sprintf("Evaluate decision %s before resolving it", decisionID),
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Evaluate decision %s before it is resolved:

1. Call verdict_decision with id=%q for the full analysis view.
2. Compare the engine's recommended choice against the similar resolved
   decisions it returns. Note any divergence.
3. If bias signals are present, say which ones and whether they should
   change the call.
4. Recommend a choice and an outcome (approve, reject, defer, start, hold,
   or complete) with one paragraph of reasoning the decider can reuse.`,
						decisionID, decisionID),
				},
			},
		},
	}, nil
}
