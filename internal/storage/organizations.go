package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/model"
)

// CreateOrganization inserts a tenant. Used by seeding and tests.
func (db *DB) CreateOrganization(ctx context.Context, org *model.Organization) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO organizations (id, name, slug, created_at)
		VALUES ($1, $2, $3, $4)
	`, org.ID, org.Name, org.Slug, org.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: create organization: %w", err)
	}
	return nil
}

// GetOrganization fetches a tenant by ID.
func (db *DB) GetOrganization(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	err := db.pool.QueryRow(ctx, `
		SELECT id, name, slug, created_at FROM organizations WHERE id = $1
	`, id).Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get organization: %w", err)
	}
	return &org, nil
}
