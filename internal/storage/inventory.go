package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/orbitalworks/verdict/internal/model"
)

// SetInventoryQAStatus flips the quality-hold status of an inventory item.
// Returns ErrNotFound when the item does not exist in the organization.
func (db *DB) SetInventoryQAStatus(ctx context.Context, orgID, itemID uuid.UUID, status model.QAStatus) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE inventory_items
		SET qa_status = $3, updated_at = now()
		WHERE org_id = $1 AND id = $2
	`, orgID, itemID, status)
	if err != nil {
		return fmt.Errorf("storage: set inventory qa status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateInventoryItem inserts an inventory item. Used by seeding and tests.
func (db *DB) CreateInventoryItem(ctx context.Context, item *model.InventoryItem) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO inventory_items (id, org_id, sku, qa_status, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.OrgID, item.SKU, item.QAStatus, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("storage: create inventory item: %w", err)
	}
	return nil
}

// GetInventoryItem fetches a single inventory item scoped to an organization.
func (db *DB) GetInventoryItem(ctx context.Context, orgID, itemID uuid.UUID) (*model.InventoryItem, error) {
	var item model.InventoryItem
	err := db.pool.QueryRow(ctx, `
		SELECT id, org_id, sku, qa_status, updated_at
		FROM inventory_items
		WHERE org_id = $1 AND id = $2
	`, orgID, itemID).Scan(&item.ID, &item.OrgID, &item.SKU, &item.QAStatus, &item.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get inventory item: %w", err)
	}
	return &item, nil
}
