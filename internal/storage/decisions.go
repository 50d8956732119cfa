package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orbitalworks/verdict/internal/model"
)

const decisionColumns = `id, org_id, requester_id, project_id, type, priority, title, description,
	context, alternatives, criteria, status, noise_factors, bias_detected,
	ai_recommendation, ai_confidence, choice, reasoning, decided_by, decided_at,
	deadline, created_at`

// CreateDecision inserts a decision row. The caller is expected to have run
// noise analysis and scoring first so the AI fields are populated.
func (db *DB) CreateDecision(ctx context.Context, d *model.Decision) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO decisions (
			id, org_id, requester_id, project_id, type, priority, title, description,
			context, alternatives, criteria, status, noise_factors, bias_detected,
			ai_recommendation, ai_confidence, deadline, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, d.ID, d.OrgID, d.RequesterID, d.ProjectID, d.Type, d.Priority, d.Title, d.Description,
		d.Context, d.Alternatives, d.Criteria, d.Status, d.NoiseFactors, d.BiasDetected,
		d.AIRecommendation, d.AIConfidence, d.Deadline, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: create decision: %w", err)
	}
	return nil
}

// GetDecision fetches a single decision scoped to an organization.
func (db *DB) GetDecision(ctx context.Context, orgID, id uuid.UUID) (*model.Decision, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+decisionColumns+` FROM decisions WHERE org_id = $1 AND id = $2`,
		orgID, id)
	d, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get decision: %w", err)
	}
	return d, nil
}

// buildDecisionWhereClause assembles the WHERE clause for decision listing.
// The org filter always comes first; optional filters follow in a fixed
// order so placeholder numbering is stable. startArgIdx is the placeholder
// number to use for org_id.
func buildDecisionWhereClause(orgID uuid.UUID, f model.DecisionFilters, startArgIdx int) (string, []any) {
	clauses := []string{fmt.Sprintf("org_id = $%d", startArgIdx)}
	args := []any{orgID}
	idx := startArgIdx + 1

	if f.Status != nil {
		clauses = append(clauses, fmt.Sprintf("status = $%d", idx))
		args = append(args, *f.Status)
		idx++
	}
	if f.Type != nil {
		clauses = append(clauses, fmt.Sprintf("type = $%d", idx))
		args = append(args, *f.Type)
		idx++
	}
	if f.Priority != nil {
		clauses = append(clauses, fmt.Sprintf("priority = $%d", idx))
		args = append(args, *f.Priority)
		idx++
	}
	if f.ProjectID != nil {
		clauses = append(clauses, fmt.Sprintf("project_id = $%d", idx))
		args = append(args, *f.ProjectID)
		idx++
	}
	if f.CreatedAfter != nil {
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", idx))
		args = append(args, *f.CreatedAfter)
		idx++
	}

	return strings.Join(clauses, " AND "), args
}

// ListDecisions returns decisions matching the filters, newest first.
func (db *DB) ListDecisions(ctx context.Context, orgID uuid.UUID, filters model.DecisionFilters, limit int) ([]*model.Decision, error) {
	where, args := buildDecisionWhereClause(orgID, filters, 1)
	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE ` + where + ` ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// ListPendingDecisions returns all pending decisions for an organization,
// newest first. Used by the backlog endpoint.
func (db *DB) ListPendingDecisions(ctx context.Context, orgID uuid.UUID) ([]*model.Decision, error) {
	status := model.StatusPending
	return db.ListDecisions(ctx, orgID, model.DecisionFilters{Status: &status}, 0)
}

// ListHistoricalDecisions returns recently resolved decisions of the given
// type, newest decision first. These feed the noise analyzer's variance and
// recency checks.
func (db *DB) ListHistoricalDecisions(ctx context.Context, orgID uuid.UUID, decisionType string, limit int) ([]*model.Decision, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE org_id = $1 AND type = $2 AND status <> 'pending'
		ORDER BY decided_at DESC NULLS LAST
		LIMIT $3
	`, orgID, decisionType, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list historical decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// ListSimilarDecisions returns resolved decisions of the same type,
// excluding the given decision. Used by the analysis detail endpoint.
func (db *DB) ListSimilarDecisions(ctx context.Context, orgID uuid.UUID, decisionType string, excludeID uuid.UUID, limit int) ([]*model.Decision, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE org_id = $1 AND type = $2 AND id <> $3 AND status <> 'pending'
		ORDER BY decided_at DESC NULLS LAST
		LIMIT $4
	`, orgID, decisionType, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("storage: list similar decisions: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// GetDecisionsByIDs fetches decisions by ID within an organization. When
// pendingOnly is set, resolved decisions are filtered out.
func (db *DB) GetDecisionsByIDs(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID, pendingOnly bool) ([]*model.Decision, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + decisionColumns + ` FROM decisions WHERE org_id = $1 AND id = ANY($2)`
	if pendingOnly {
		query += ` AND status = 'pending'`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.pool.Query(ctx, query, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("storage: get decisions by ids: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// LatestResolvedByProject returns the most recently resolved decision in a
// project, or ErrNotFound. The resolver uses it as the reference when a
// choice diverges from the AI recommendation.
func (db *DB) LatestResolvedByProject(ctx context.Context, orgID, projectID uuid.UUID) (*model.Decision, error) {
	row := db.pool.QueryRow(ctx, `
		SELECT `+decisionColumns+`
		FROM decisions
		WHERE org_id = $1 AND project_id = $2 AND status <> 'pending'
		ORDER BY decided_at DESC NULLS LAST
		LIMIT 1
	`, orgID, projectID)
	d, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: latest resolved by project: %w", err)
	}
	return d, nil
}

// ResolveDecisionIfPending moves a pending decision to a terminal state in a
// single conditional update. It returns ErrNotFound when the decision does
// not exist, belongs to another organization, or has already been resolved,
// which makes concurrent resolution attempts race-safe: exactly one wins.
func (db *DB) ResolveDecisionIfPending(ctx context.Context, orgID, id uuid.UUID, status model.Status, choice, reasoning string, decidedBy uuid.UUID, decidedAt time.Time) (*model.Decision, error) {
	row := db.pool.QueryRow(ctx, `
		UPDATE decisions
		SET status = $3, choice = $4, reasoning = $5, decided_by = $6, decided_at = $7
		WHERE org_id = $1 AND id = $2 AND status = 'pending'
		RETURNING `+decisionColumns+`
	`, orgID, id, status, choice, reasoning, decidedBy, decidedAt)
	d, err := scanDecision(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: resolve decision: %w", err)
	}
	return d, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecision(row rowScanner) (*model.Decision, error) {
	var d model.Decision
	err := row.Scan(
		&d.ID, &d.OrgID, &d.RequesterID, &d.ProjectID, &d.Type, &d.Priority, &d.Title, &d.Description,
		&d.Context, &d.Alternatives, &d.Criteria, &d.Status, &d.NoiseFactors, &d.BiasDetected,
		&d.AIRecommendation, &d.AIConfidence, &d.Choice, &d.Reasoning, &d.DecidedBy, &d.DecidedAt,
		&d.Deadline, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDecisions(rows pgx.Rows) ([]*model.Decision, error) {
	var decisions []*model.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate decisions: %w", err)
	}
	return decisions, nil
}
