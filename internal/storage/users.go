package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/model"
)

// ListStakeholders returns users in the organization holding the given
// permission string (e.g. "decision.procurement").
func (db *DB) ListStakeholders(ctx context.Context, orgID uuid.UUID, permission string) ([]*model.User, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, org_id, name, email, permissions, created_at
		FROM users
		WHERE org_id = $1 AND $2 = ANY(permissions)
	`, orgID, permission)
	if err != nil {
		return nil, fmt.Errorf("storage: list stakeholders: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.OrgID, &u.Name, &u.Email, &u.Permissions, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate users: %w", err)
	}
	return users, nil
}

// GetUser fetches a user scoped to an organization.
func (db *DB) GetUser(ctx context.Context, orgID, userID uuid.UUID) (*model.User, error) {
	var u model.User
	err := db.pool.QueryRow(ctx, `
		SELECT id, org_id, name, email, permissions, created_at
		FROM users
		WHERE org_id = $1 AND id = $2
	`, orgID, userID).Scan(&u.ID, &u.OrgID, &u.Name, &u.Email, &u.Permissions, &u.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get user: %w", err)
	}
	return &u, nil
}

// CreateUser inserts a user. Used by seeding and tests.
func (db *DB) CreateUser(ctx context.Context, u *model.User) error {
	permissions := u.Permissions
	if permissions == nil {
		permissions = []string{}
	}
	_, err := db.pool.Exec(ctx, `
		INSERT INTO users (id, org_id, name, email, permissions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.OrgID, u.Name, u.Email, permissions, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: create user: %w", err)
	}
	return nil
}
