package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/orbitalworks/verdict/internal/model"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// CreateProductionOrder inserts a production order scheduled from an
// approved production decision.
func (db *DB) CreateProductionOrder(ctx context.Context, o *model.ProductionOrder) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO production_orders (
			id, org_id, order_number, product_sku, quantity, status,
			start_date, end_date, line_id, bom, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, o.ID, o.OrgID, o.OrderNumber, o.ProductSKU, o.Quantity, o.Status,
		o.StartDate, o.EndDate, o.LineID, o.BOM, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("storage: create production order: %w", err)
	}
	return nil
}

// UpdateProductionOrderStatus changes the status of an existing production
// order, stamping an end date when one is supplied. Returns ErrNotFound
// when no such order exists in the organization.
func (db *DB) UpdateProductionOrderStatus(ctx context.Context, orgID, orderID uuid.UUID, status model.ProductionStatus, endDate *time.Time) error {
	tag, err := db.pool.Exec(ctx, `
		UPDATE production_orders
		SET status = $3, end_date = COALESCE($4, end_date)
		WHERE org_id = $1 AND id = $2
	`, orgID, orderID, status, endDate)
	if err != nil {
		return fmt.Errorf("storage: update production order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResolveProductionLine finds the line to schedule on. Lookup order: by ID
// when lineRef parses as a UUID, then by exact name, then the
// alphabetically first line in the organization as a fallback.
func (db *DB) ResolveProductionLine(ctx context.Context, orgID uuid.UUID, lineRef string) (*model.ProductionLine, error) {
	if lineID, err := uuid.Parse(lineRef); err == nil {
		line, err := db.productionLineBy(ctx, `org_id = $1 AND id = $2`, orgID, lineID)
		if err == nil {
			return line, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	if lineRef != "" {
		line, err := db.productionLineBy(ctx, `org_id = $1 AND name = $2`, orgID, lineRef)
		if err == nil {
			return line, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}

	row := db.pool.QueryRow(ctx, `
		SELECT id, org_id, name FROM production_lines
		WHERE org_id = $1
		ORDER BY name ASC
		LIMIT 1
	`, orgID)
	var line model.ProductionLine
	if err := row.Scan(&line.ID, &line.OrgID, &line.Name); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: resolve production line: %w", err)
	}
	return &line, nil
}

func (db *DB) productionLineBy(ctx context.Context, where string, args ...any) (*model.ProductionLine, error) {
	row := db.pool.QueryRow(ctx, `SELECT id, org_id, name FROM production_lines WHERE `+where, args...)
	var line model.ProductionLine
	if err := row.Scan(&line.ID, &line.OrgID, &line.Name); err != nil {
		if isNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get production line: %w", err)
	}
	return &line, nil
}

// CreateProductionLine inserts a production line. Used by seeding and tests.
func (db *DB) CreateProductionLine(ctx context.Context, line *model.ProductionLine) error {
	_, err := db.pool.Exec(ctx, `
		INSERT INTO production_lines (id, org_id, name) VALUES ($1, $2, $3)
	`, line.ID, line.OrgID, line.Name)
	if err != nil {
		return fmt.Errorf("storage: create production line: %w", err)
	}
	return nil
}
