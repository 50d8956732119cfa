package model

import (
	"time"

	"github.com/google/uuid"
)

// Procurement is a purchase order created downstream of an approved
// procurement decision.
type Procurement struct {
	ID           uuid.UUID         `json:"id"`
	OrgID        uuid.UUID         `json:"org_id"`
	PONumber     string            `json:"po_number"`
	SupplierID   string            `json:"supplier_id"`
	Status       string            `json:"status"`
	OrderDate    time.Time         `json:"order_date"`
	ExpectedDate time.Time         `json:"expected_date"`
	Items        []ProcurementItem `json:"items"`
	TotalAmount  float64           `json:"total_amount"`
	Currency     string            `json:"currency"`
	Terms        *string           `json:"terms,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// ProcurementItem is a normalized purchase order line item. SKU is required
// and quantity is always positive; UnitPrice is nil when not supplied.
type ProcurementItem struct {
	SKU         string   `json:"sku"`
	Quantity    float64  `json:"quantity"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// QAStatus is the quality-hold state of an inventory item.
type QAStatus string

const (
	QAStatusPending  QAStatus = "pending"
	QAStatusApproved QAStatus = "approved"
	QAStatusRejected QAStatus = "rejected"
)

// InventoryItem is the slice of the inventory record this engine touches:
// the quality-hold status flipped by qa_release decisions.
type InventoryItem struct {
	ID        uuid.UUID `json:"id"`
	OrgID     uuid.UUID `json:"org_id"`
	SKU       string    `json:"sku"`
	QAStatus  QAStatus  `json:"qa_status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductionStatus is the lifecycle state of a production order.
type ProductionStatus string

const (
	ProductionPlanned    ProductionStatus = "planned"
	ProductionInProgress ProductionStatus = "in_progress"
	ProductionOnHold     ProductionStatus = "on_hold"
	ProductionCompleted  ProductionStatus = "completed"
)

// ProductionLine is a physical line that production orders are scheduled on.
type ProductionLine struct {
	ID    uuid.UUID `json:"id"`
	OrgID uuid.UUID `json:"org_id"`
	Name  string    `json:"name"`
}

// ProductionOrder is a scheduled production run created or updated by
// production decisions.
type ProductionOrder struct {
	ID          uuid.UUID        `json:"id"`
	OrgID       uuid.UUID        `json:"org_id"`
	OrderNumber string           `json:"order_number"`
	ProductSKU  string           `json:"product_sku"`
	Quantity    float64          `json:"quantity"`
	Status      ProductionStatus `json:"status"`
	StartDate   time.Time        `json:"start_date"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	LineID      uuid.UUID        `json:"line_id"`
	BOM         map[string]any   `json:"bom,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Notification is a stored stakeholder notification. Delivery beyond the
// sink table is out of scope here.
type Notification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// User is a requester or stakeholder identity. Permissions are flat
// strings; stakeholders for a decision type hold "decision.<type>".
type User struct {
	ID          uuid.UUID `json:"id"`
	OrgID       uuid.UUID `json:"org_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Organization is a tenant. Every read and write in the engine is scoped
// to exactly one organization.
type Organization struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}
