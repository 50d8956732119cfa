package server

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/metrics"
	"github.com/orbitalworks/verdict/internal/model"
	"github.com/orbitalworks/verdict/internal/storage"
)

// maxBatchReviewIDs caps the number of decisions one batch-review request
// may name.
const maxBatchReviewIDs = 100

// HandleCreateDecision handles POST /v1/decisions.
func (h *Handlers) HandleCreateDecision(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req model.CreateDecisionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if violations := req.Validate(); violations != nil {
		writeErrorDetails(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "validation failed", violations)
		return
	}

	decision, err := h.decisionSvc.Create(r.Context(), claims.OrgID, claims.UserID, req)
	if err != nil {
		h.writeInternalError(w, r, "failed to create decision", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, decision)
}

// HandleListDecisions handles GET /v1/decisions.
// Filters: status, type, priority, project_id, created_after (RFC3339).
func (h *Handlers) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var filters model.DecisionFilters
	if v := r.URL.Query().Get("status"); v != "" {
		if !model.ValidStatus(v) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid status filter")
			return
		}
		status := model.Status(v)
		filters.Status = &status
	}
	if v := r.URL.Query().Get("type"); v != "" {
		filters.Type = &v
	}
	if v := r.URL.Query().Get("priority"); v != "" {
		if !model.ValidPriority(v) {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid priority filter")
			return
		}
		priority := model.Priority(v)
		filters.Priority = &priority
	}
	if v := r.URL.Query().Get("project_id"); v != "" {
		projectID, err := uuid.Parse(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid project_id filter")
			return
		}
		filters.ProjectID = &projectID
	}
	createdAfter, err := queryTime(r, "created_after")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid created_after: expected RFC3339")
		return
	}
	filters.CreatedAfter = createdAfter

	result, err := h.decisionSvc.List(r.Context(), claims.OrgID, filters)
	if err != nil {
		h.writeInternalError(w, r, "failed to list decisions", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// HandleGetDecision handles GET /v1/decisions/{id}.
func (h *Handlers) HandleGetDecision(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	id, ok := pathDecisionID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid decision id")
		return
	}

	decision, err := h.decisionSvc.Get(r.Context(), claims.OrgID, id)
	if err != nil {
		h.respondDecisionError(w, r, err, "failed to get decision")
		return
	}

	writeJSON(w, r, http.StatusOK, decision)
}

// HandleResolveDecision handles POST /v1/decisions/{id}/decide.
func (h *Handlers) HandleResolveDecision(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	id, ok := pathDecisionID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid decision id")
		return
	}

	var req model.ResolveDecisionRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if violations := req.Validate(); violations != nil {
		writeErrorDetails(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "validation failed", violations)
		return
	}

	result, err := h.decisionSvc.Resolve(r.Context(), claims.OrgID, claims.UserID, id, req)
	if err != nil {
		h.respondDecisionError(w, r, err, "failed to resolve decision")
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// HandleDecisionAnalysis handles GET /v1/decisions/{id}/analysis.
func (h *Handlers) HandleDecisionAnalysis(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	id, ok := pathDecisionID(r)
	if !ok {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid decision id")
		return
	}

	detail, err := h.decisionSvc.Detail(r.Context(), claims.OrgID, id)
	if err != nil {
		h.respondDecisionError(w, r, err, "failed to analyze decision")
		return
	}

	writeJSON(w, r, http.StatusOK, detail)
}

// HandleBatchReview handles POST /v1/decisions/batch-review.
func (h *Handlers) HandleBatchReview(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req model.BatchReviewRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if len(req.DecisionIDs) == 0 {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "decision_ids is required")
		return
	}
	if len(req.DecisionIDs) > maxBatchReviewIDs {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "too many decision_ids")
		return
	}

	result, err := h.decisionSvc.BatchReview(r.Context(), claims.OrgID, req.DecisionIDs)
	if err != nil {
		h.writeInternalError(w, r, "failed to batch review decisions", err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// HandleDecisionMetrics handles GET /v1/decisions/metrics?period=week|month|quarter.
func (h *Handlers) HandleDecisionMetrics(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	period := r.URL.Query().Get("period")
	if period == "" {
		period = string(metrics.PeriodMonth)
	}

	report, err := h.decisionSvc.Metrics(r.Context(), claims.OrgID, metrics.Period(period))
	if err != nil {
		h.writeInternalError(w, r, "failed to compute metrics", err)
		return
	}

	writeJSON(w, r, http.StatusOK, report)
}

// HandleBacklog handles GET /v1/decisions/backlog.
func (h *Handlers) HandleBacklog(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	limit := queryLimit(r, h.backlogLimit)
	backlog, err := h.decisionSvc.Backlog(r.Context(), claims.OrgID, limit)
	if err != nil {
		h.writeInternalError(w, r, "failed to load backlog", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"decisions": backlog,
		"total":     len(backlog),
		"limit":     limit,
	})
}

// respondDecisionError maps service errors on single-decision operations.
// Missing, foreign, and already-resolved decisions all surface as 404 so the
// response never leaks whether a decision exists in another organization.
func (h *Handlers) respondDecisionError(w http.ResponseWriter, r *http.Request, err error, message string) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound, "decision not found")
		return
	}
	h.writeInternalError(w, r, message, err)
}
