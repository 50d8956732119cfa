package analysis

import (
	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/model"
)

// ConsistencyResult reports whether a human resolution diverges from the
// stored recommendation. It is observational only and never blocks a
// resolution; ReferenceDecisionID is a best-effort pointer to a related
// decision for operator review, filled in by the caller.
type ConsistencyResult struct {
	Inconsistent        bool       `json:"inconsistent"`
	Reason              string     `json:"reason,omitempty"`
	ReferenceDecisionID *uuid.UUID `json:"reference_decision_id,omitempty"`
}

// ReasonDivergedFromRecommendation is the reason recorded on divergence.
const ReasonDivergedFromRecommendation = "Choice deviates from AI recommendation"

// CheckConsistency compares a submitted choice against the decision's stored
// recommendation. Inconsistent iff both the recommended choice and the
// submitted choice are non-empty and differ.
func CheckConsistency(d model.Decision, choice string) ConsistencyResult {
	recommended := d.RecommendedChoice()
	if choice == "" || recommended == "" || choice == recommended {
		return ConsistencyResult{}
	}
	return ConsistencyResult{
		Inconsistent: true,
		Reason:       ReasonDivergedFromRecommendation,
	}
}
