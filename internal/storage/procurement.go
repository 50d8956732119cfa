package storage

import (
	"context"
	"fmt"

	"github.com/orbitalworks/verdict/internal/model"
)

// CreateProcurement inserts a purchase order generated from an approved
// procurement decision.
func (db *DB) CreateProcurement(ctx context.Context, p *model.Procurement) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO procurements (
			id, org_id, po_number, supplier_id, status, order_date, expected_date,
			items, total_amount, currency, terms, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, p.ID, p.OrgID, p.PONumber, p.SupplierID, p.Status, p.OrderDate, p.ExpectedDate,
		p.Items, p.TotalAmount, p.Currency, p.Terms, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: create procurement: %w", err)
	}
	return nil
}
