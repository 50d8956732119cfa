package model

import (
	"time"

	"github.com/google/uuid"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// FieldViolation names one invalid field in a request.
type FieldViolation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Field length limits for caller-supplied decision text. They keep
// Postgres TEXT columns and notification payloads bounded.
const (
	MaxTitleLen       = 500
	MaxDescriptionLen = 32 * 1024
	MaxTypeLen        = 200
	MaxReasoningLen   = 64 * 1024
)

// CreateDecisionRequest is the request body for POST /v1/decisions.
// RequesterID and OrgID come from the auth claims, never from the body.
type CreateDecisionRequest struct {
	Title        string                     `json:"title"`
	Description  string                     `json:"description"`
	Type         string                     `json:"type"`
	Priority     string                     `json:"priority"`
	Context      map[string]any             `json:"context"`
	Alternatives map[string]AlternativeSpec `json:"alternatives"`
	Criteria     map[string]float64         `json:"criteria"`
	ProjectID    *uuid.UUID                 `json:"project_id,omitempty"`
	Deadline     *time.Time                 `json:"deadline,omitempty"`
}

// Validate returns the field violations of a create request, or nil.
func (r CreateDecisionRequest) Validate() []FieldViolation {
	var v []FieldViolation
	if r.Title == "" {
		v = append(v, FieldViolation{Field: "title", Message: "title is required"})
	} else if len(r.Title) > MaxTitleLen {
		v = append(v, FieldViolation{Field: "title", Message: "title exceeds maximum length"})
	}
	if r.Description == "" {
		v = append(v, FieldViolation{Field: "description", Message: "description is required"})
	} else if len(r.Description) > MaxDescriptionLen {
		v = append(v, FieldViolation{Field: "description", Message: "description exceeds maximum length"})
	}
	if r.Type == "" {
		v = append(v, FieldViolation{Field: "type", Message: "type is required"})
	} else if len(r.Type) > MaxTypeLen {
		v = append(v, FieldViolation{Field: "type", Message: "type exceeds maximum length"})
	}
	if !ValidPriority(r.Priority) {
		v = append(v, FieldViolation{Field: "priority", Message: "priority must be one of critical, high, medium, low"})
	}
	for label, alt := range r.Alternatives {
		if alt.Score != nil && (*alt.Score < 0 || *alt.Score > 1) {
			v = append(v, FieldViolation{Field: "alternatives." + label + ".score", Message: "score must be in [0, 1]"})
		}
		if alt.Risk != nil && (*alt.Risk < 0 || *alt.Risk > 1) {
			v = append(v, FieldViolation{Field: "alternatives." + label + ".risk", Message: "risk must be in [0, 1]"})
		}
	}
	return v
}

// ResolveDecisionRequest is the request body for POST /v1/decisions/{id}/decide.
// Choice is the alternative label being selected; Outcome is the enumerated
// intent that drives side effects and (optionally) the terminal status.
type ResolveDecisionRequest struct {
	Choice    string `json:"choice"`
	Outcome   string `json:"outcome"`
	Reasoning string `json:"reasoning"`
}

// Validate returns the field violations of a resolve request, or nil.
func (r ResolveDecisionRequest) Validate() []FieldViolation {
	var v []FieldViolation
	if r.Choice == "" {
		v = append(v, FieldViolation{Field: "choice", Message: "choice is required"})
	}
	if !ValidOutcome(r.Outcome) {
		v = append(v, FieldViolation{Field: "outcome", Message: "outcome must be one of approve, reject, defer, start, hold, complete"})
	}
	if r.Reasoning == "" {
		v = append(v, FieldViolation{Field: "reasoning", Message: "reasoning is required"})
	} else if len(r.Reasoning) > MaxReasoningLen {
		v = append(v, FieldViolation{Field: "reasoning", Message: "reasoning exceeds maximum length"})
	}
	return v
}

// BatchReviewRequest is the request body for POST /v1/decisions/batch-review.
type BatchReviewRequest struct {
	DecisionIDs []uuid.UUID `json:"decision_ids"`
}

// AuthTokenRequest is the request body for POST /auth/token. The endpoint
// is a development convenience; production deployments validate tokens from
// an external identity provider signed with the same key pair.
type AuthTokenRequest struct {
	UserID uuid.UUID `json:"user_id"`
	OrgID  uuid.UUID `json:"org_id"`
}

// AuthTokenResponse is the response for POST /auth/token.
type AuthTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Postgres string `json:"postgres"`
	Uptime   int64  `json:"uptime_seconds"`
}
