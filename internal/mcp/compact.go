package mcp

import (
	"github.com/orbitalworks/verdict/internal/model"
)

const maxCompactReasoning = 200

// compactDecision returns a minimal representation of a decision for MCP
// responses. Drops the raw context, alternatives, and criteria blobs that
// agents don't act on; keeps identity, lifecycle, and the analysis signals.
func compactDecision(d model.Decision) map[string]any {
	m := map[string]any{
		"id":            d.ID,
		"type":          d.Type,
		"priority":      d.Priority,
		"title":         d.Title,
		"status":        d.Status,
		"bias_detected": d.BiasDetected,
		"ai_confidence": d.AIConfidence,
		"created_at":    d.CreatedAt,
	}
	if d.AIRecommendation != nil {
		m["recommended_choice"] = d.AIRecommendation.Choice
	}
	if len(d.NoiseFactors) > 0 {
		m["noise_factors"] = d.NoiseFactors
	}
	if d.Deadline != nil {
		m["deadline"] = d.Deadline
	}
	if d.Choice != nil {
		m["choice"] = *d.Choice
	}
	if d.Reasoning != nil && *d.Reasoning != "" {
		m["reasoning"] = truncate(*d.Reasoning, maxCompactReasoning)
	}
	if d.DecidedAt != nil {
		m["decided_at"] = d.DecidedAt
	}
	return m
}

// truncate shortens s to at most n runes, appending an ellipsis when cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
