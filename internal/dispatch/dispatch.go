// Package dispatch executes type-specific downstream side effects after a
// decision has been resolved and committed.
//
// Side effects are best effort: failures are logged and counted, never
// propagated, and never roll back the resolved decision. Dispatch keys off
// the resolver's enumerated outcome rather than sniffing the free-text
// choice label.
package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/orbitalworks/verdict/internal/model"
	"github.com/orbitalworks/verdict/internal/storage"
)

const (
	retryAttempts = 3
	retryBase     = 50 * time.Millisecond
)

// Backend is the narrow persistence surface the dispatcher writes through.
// *storage.DB satisfies it.
type Backend interface {
	CreateProcurement(ctx context.Context, p *model.Procurement) error
	SetInventoryQAStatus(ctx context.Context, orgID, itemID uuid.UUID, status model.QAStatus) error
	UpdateProductionOrderStatus(ctx context.Context, orgID, orderID uuid.UUID, status model.ProductionStatus, endDate *time.Time) error
	CreateProductionOrder(ctx context.Context, o *model.ProductionOrder) error
	ResolveProductionLine(ctx context.Context, orgID uuid.UUID, lineRef string) (*model.ProductionLine, error)
}

// Dispatcher applies downstream actions for resolved decisions.
type Dispatcher struct {
	backend  Backend
	logger   *slog.Logger
	now      func() time.Time
	failures metric.Int64Counter
}

// New creates a Dispatcher. The meter registers a failure counter so
// skipped or failed side effects are visible without scraping logs.
func New(backend Backend, logger *slog.Logger, meter metric.Meter) (*Dispatcher, error) {
	failures, err := meter.Int64Counter("verdict.dispatch.failures",
		metric.WithDescription("Count of decision side effects that failed"))
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		backend:  backend,
		logger:   logger,
		now:      time.Now,
		failures: failures,
	}, nil
}

// Execute runs the side effect for a resolved decision. Unknown decision
// types are a no-op. Errors are logged with the decision id and counted;
// the caller's resolution is already committed and stands regardless.
func (dp *Dispatcher) Execute(ctx context.Context, d *model.Decision, outcome model.Outcome) {
	var err error
	switch d.Type {
	case "procurement":
		err = dp.executeProcurement(ctx, d, outcome)
	case "qa_release":
		err = dp.executeQARelease(ctx, d, outcome)
	case "production":
		err = dp.executeProduction(ctx, d, outcome)
	default:
		return
	}
	if err != nil {
		dp.logger.Error("decision side effect failed",
			"decision_id", d.ID, "type", d.Type, "error", err)
		dp.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("decision.type", d.Type)))
	}
}

// executeProcurement creates a purchase order when the decision was
// approved. A missing supplier or empty item list skips creation with a
// warning; that is remediation territory, not a failure.
func (dp *Dispatcher) executeProcurement(ctx context.Context, d *model.Decision, outcome model.Outcome) error {
	if outcome != model.OutcomeApprove {
		return nil
	}

	supplierID := ctxString(d.Context, "supplierId")
	if supplierID == "" {
		if supplier, ok := d.Context["supplier"].(map[string]any); ok {
			supplierID = ctxString(supplier, "id")
		}
	}
	if supplierID == "" {
		dp.logger.Warn("skipping purchase order, missing supplierId", "decision_id", d.ID)
		return nil
	}

	rawItems := d.Context["items"]
	if rawItems == nil {
		rawItems = d.Context["lineItems"]
	}
	items := parseItems(rawItems)
	if len(items) == 0 {
		dp.logger.Warn("skipping purchase order, no valid items", "decision_id", d.ID)
		return nil
	}

	now := dp.now()

	poNumber := ctxString(d.Context, "poNumber")
	if poNumber == "" {
		poNumber = generatePONumber(d.ID, now)
	}

	expectedDate := now.Add(7 * 24 * time.Hour)
	if t := ctxTime(d.Context, "expectedDate"); t != nil {
		expectedDate = *t
	}

	totalAmount, ok := ctxFloat(d.Context, "totalAmount")
	if !ok {
		for _, item := range items {
			if item.UnitPrice != nil {
				totalAmount += item.Quantity * *item.UnitPrice
			}
		}
	}

	status := ctxString(d.Context, "status")
	if status == "" {
		status = "draft"
	}
	currency := ctxString(d.Context, "currency")
	if currency == "" {
		currency = "USD"
	}

	po := &model.Procurement{
		ID:           uuid.New(),
		OrgID:        d.OrgID,
		PONumber:     poNumber,
		SupplierID:   supplierID,
		Status:       status,
		OrderDate:    now,
		ExpectedDate: expectedDate,
		Items:        items,
		TotalAmount:  totalAmount,
		Currency:     currency,
		CreatedAt:    now,
	}
	if terms := ctxString(d.Context, "terms"); terms != "" {
		po.Terms = &terms
	}

	err := storage.WithRetry(ctx, retryAttempts, retryBase, func() error {
		return dp.backend.CreateProcurement(ctx, po)
	})
	if err != nil {
		return err
	}

	dp.logger.Info("created purchase order from decision",
		"decision_id", d.ID, "po_number", po.PONumber)
	return nil
}

// executeQARelease flips the quality hold on the referenced inventory item.
// No inventory reference means no-op.
func (dp *Dispatcher) executeQARelease(ctx context.Context, d *model.Decision, outcome model.Outcome) error {
	ref := ctxString(d.Context, "inventoryId")
	if ref == "" {
		return nil
	}
	itemID, err := uuid.Parse(ref)
	if err != nil {
		dp.logger.Warn("skipping qa release, invalid inventoryId", "decision_id", d.ID, "inventory_id", ref)
		return nil
	}

	status := model.QAStatusRejected
	if outcome == model.OutcomeApprove {
		status = model.QAStatusApproved
	}

	err = storage.WithRetry(ctx, retryAttempts, retryBase, func() error {
		return dp.backend.SetInventoryQAStatus(ctx, d.OrgID, itemID, status)
	})
	if err != nil {
		return err
	}

	dp.logger.Info("updated inventory qa status from decision",
		"decision_id", d.ID, "inventory_id", itemID, "qa_status", status)
	return nil
}

// executeProduction updates the referenced production order, or schedules a
// new one when the decision context does not name an existing order.
func (dp *Dispatcher) executeProduction(ctx context.Context, d *model.Decision, outcome model.Outcome) error {
	status := productionStatusFor(outcome)
	now := dp.now()

	if ref := ctxString(d.Context, "productionId"); ref != "" {
		orderID, err := uuid.Parse(ref)
		if err != nil {
			dp.logger.Warn("skipping production update, invalid productionId", "decision_id", d.ID, "production_id", ref)
			return nil
		}
		var endDate *time.Time
		if status == model.ProductionCompleted {
			endDate = &now
		}
		err = storage.WithRetry(ctx, retryAttempts, retryBase, func() error {
			return dp.backend.UpdateProductionOrderStatus(ctx, d.OrgID, orderID, status, endDate)
		})
		if err != nil {
			return err
		}
		dp.logger.Info("updated production order from decision",
			"decision_id", d.ID, "production_id", orderID, "status", status)
		return nil
	}

	lineRef := ctxString(d.Context, "lineId", "lineName")
	line, err := dp.backend.ResolveProductionLine(ctx, d.OrgID, lineRef)
	if err != nil {
		dp.logger.Warn("unable to resolve production line", "decision_id", d.ID, "error", err)
		return nil
	}

	orderNumber := ctxString(d.Context, "orderNumber")
	if orderNumber == "" {
		orderNumber = generateProductionOrderNumber(d.ID, now)
	}
	productSKU := ctxString(d.Context, "productSku")
	if productSKU == "" {
		productSKU = "UNKNOWN"
	}
	quantity, _ := ctxFloat(d.Context, "quantity", "plannedQuantity")

	startDate := now
	if t := ctxTime(d.Context, "startDate"); t != nil {
		startDate = *t
	}

	order := &model.ProductionOrder{
		ID:          uuid.New(),
		OrgID:       d.OrgID,
		OrderNumber: orderNumber,
		ProductSKU:  productSKU,
		Quantity:    quantity,
		Status:      status,
		StartDate:   startDate,
		EndDate:     ctxTime(d.Context, "endDate"),
		LineID:      line.ID,
		CreatedAt:   now,
	}
	if bom, ok := d.Context["bom"].(map[string]any); ok {
		order.BOM = bom
	}

	err = storage.WithRetry(ctx, retryAttempts, retryBase, func() error {
		return dp.backend.CreateProductionOrder(ctx, order)
	})
	if err != nil {
		return err
	}

	dp.logger.Info("created production order from decision",
		"decision_id", d.ID, "order_number", order.OrderNumber, "line_id", line.ID, "status", status)
	return nil
}

// productionStatusFor maps a resolution outcome onto the production order
// lifecycle.
func productionStatusFor(outcome model.Outcome) model.ProductionStatus {
	switch outcome {
	case model.OutcomeComplete:
		return model.ProductionCompleted
	case model.OutcomeStart, model.OutcomeApprove:
		return model.ProductionInProgress
	case model.OutcomeHold:
		return model.ProductionOnHold
	default:
		return model.ProductionPlanned
	}
}
