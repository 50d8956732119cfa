// Package model defines the domain types shared across storage, services,
// and transport layers.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a decision. A decision starts pending
// and transitions exactly once to a terminal state; it is never deleted.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusDeferred Status = "deferred"
)

// Terminal reports whether the status is a terminal (resolved) state.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusDeferred
}

// ValidStatus reports whether s is a known decision status.
func ValidStatus(s string) bool {
	switch Status(s) {
	case StatusPending, StatusApproved, StatusRejected, StatusDeferred:
		return true
	}
	return false
}

// Priority orders decisions for operator triage.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p string) bool {
	switch Priority(p) {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns the triage sort rank for the priority. Lower sorts first;
// unrecognized values sort after all known levels.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Outcome is the resolver's enumerated intent for a decision. It drives
// downstream side effects directly instead of inferring intent from the
// free-text choice label, which stays reserved for labeling and reasoning.
type Outcome string

const (
	OutcomeApprove  Outcome = "approve"
	OutcomeReject   Outcome = "reject"
	OutcomeDefer    Outcome = "defer"
	OutcomeStart    Outcome = "start"
	OutcomeHold     Outcome = "hold"
	OutcomeComplete Outcome = "complete"
)

// ValidOutcome reports whether o is a known resolution outcome.
func ValidOutcome(o string) bool {
	switch Outcome(o) {
	case OutcomeApprove, OutcomeReject, OutcomeDefer, OutcomeStart, OutcomeHold, OutcomeComplete:
		return true
	}
	return false
}

// TerminalStatusFor maps a resolution outcome to the stored terminal
// status. When derive is false every resolution lands on approved, which
// mirrors the historical behavior this engine replaced; the derived mapping
// sits behind a configuration flag until product confirms the intent.
func TerminalStatusFor(o Outcome, derive bool) Status {
	if !derive {
		return StatusApproved
	}
	switch o {
	case OutcomeReject:
		return StatusRejected
	case OutcomeDefer, OutcomeHold:
		return StatusDeferred
	default:
		return StatusApproved
	}
}

// AlternativeSpec describes one candidate alternative supplied with a
// decision request. Score and risk default to 0.5 when omitted.
type AlternativeSpec struct {
	Score *float64 `json:"score,omitempty"`
	Risk  *float64 `json:"risk,omitempty"`
}

// Recommendation is the engine's own scored suggestion, persisted at
// creation time and never altered afterwards.
type Recommendation struct {
	Choice             string   `json:"choice"`
	Rationale          string   `json:"rationale"`
	SupportingCriteria []string `json:"supporting_criteria"`
}

// Decision is the aggregate root of the workflow engine: the audited unit
// of work moving from pending to a terminal resolution state.
//
// The analysis artifacts (NoiseFactors, BiasDetected, AIRecommendation,
// AIConfidence) are computed once at creation and are immutable. The
// resolution fields (Choice, Reasoning, DecidedBy, DecidedAt) are unset
// while pending and set together, exactly once, at resolution.
type Decision struct {
	ID          uuid.UUID  `json:"id"`
	OrgID       uuid.UUID  `json:"org_id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	ProjectID   *uuid.UUID `json:"project_id,omitempty"`

	Type     string   `json:"type"`
	Priority Priority `json:"priority"`

	Title        string                     `json:"title"`
	Description  string                     `json:"description"`
	Context      map[string]any             `json:"context"`
	Alternatives map[string]AlternativeSpec `json:"alternatives"`
	Criteria     map[string]float64         `json:"criteria"`

	Status Status `json:"status"`

	NoiseFactors     []string        `json:"noise_factors"`
	BiasDetected     bool            `json:"bias_detected"`
	AIRecommendation *Recommendation `json:"ai_recommendation,omitempty"`
	AIConfidence     float64         `json:"ai_confidence"`

	Choice    *string    `json:"choice,omitempty"`
	Reasoning *string    `json:"reasoning,omitempty"`
	DecidedBy *uuid.UUID `json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`

	Deadline  *time.Time `json:"deadline,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Resolved reports whether the decision has reached a terminal state.
func (d Decision) Resolved() bool {
	return d.Status.Terminal()
}

// RecommendedChoice returns the AI recommendation's choice, or "" when no
// recommendation was recorded.
func (d Decision) RecommendedChoice() string {
	if d.AIRecommendation == nil {
		return ""
	}
	return d.AIRecommendation.Choice
}

// DecisionFilters narrows decision list queries. Nil fields are ignored.
// All queries are additionally scoped by org.
type DecisionFilters struct {
	Status       *Status
	Type         *string
	Priority     *Priority
	ProjectID    *uuid.UUID
	CreatedAfter *time.Time
}
