package repository

import (
	"time"

	"github.com/materix-ai/be-mm-materials/internal/authz"
)

// ── Transfer ─────────────────────────────────────────────────────────────────

// Transfer states. Dispatch moves CREATED or SEPARATED to IN_TRANSIT;
// receipt moves IN_TRANSIT to RECEIVED, or to DIVERGENCE when any item
// quantity differs from what was sent.
const (
	TransferStatusCreated    = "CREATED"
	TransferStatusSeparated  = "SEPARATED"
	TransferStatusInTransit  = "IN_TRANSIT"
	TransferStatusReceived   = "RECEIVED"
	TransferStatusDivergence = "DIVERGENCE"
	TransferStatusDone       = "DONE"
	TransferStatusCanceled   = "CANCELED"
)

// Transfer is a stock movement between two warehouses, possibly across
// units.
type Transfer struct {
	ID                string
	TenantID          string
	OriginUnitID      string
	OriginWarehouseID string
	DestUnitID        string
	DestWarehouseID   string
	Status            string
	DivergenceReason  *string
	DispatchedBy      *string
	DispatchedAt      *time.Time
	ReceivedBy        *string
	ReceivedAt        *time.Time
	Notes             *string
	CreatedBy         *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Items             []*TransferItem
}

// TransferItem is one line of a transfer.
type TransferItem struct {
	ID          string
	TransferID  string
	LineNumber  int
	MaterialID  string
	Description string
	QtySent     float64
	QtyReceived *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AuthScope derives the authorization boundary of a transfer: tenant only.
// Origin and destination may belong to different units, so no single
// unit/warehouse subtree correctly bounds a transfer; finer control (who
// may dispatch from a given origin) lives in the permission set, not the
// scope.
func (t *Transfer) AuthScope() authz.Scope {
	return authz.Normalize(authz.Scope{TenantID: t.TenantID})
}

// ── Requisition ──────────────────────────────────────────────────────────────

// Requisition states: two-level approval.
const (
	RequisitionStatusPendingL1 = "PENDING_L1"
	RequisitionStatusPendingL2 = "PENDING_L2"
	RequisitionStatusApproved  = "APPROVED"
	RequisitionStatusRejected  = "REJECTED"
)

// Requisition is a material request raised by a unit against a warehouse.
// WorkID is the legacy unit column still present in older rows.
type Requisition struct {
	ID           string
	TenantID     string
	UnitID       string
	WorkID       string
	SectorID     *string
	WarehouseID  string
	Status       string
	RequestedBy  *string
	ApprovedL1By *string
	ApprovedL1At *time.Time
	ApprovedL2By *string
	ApprovedL2At *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthScope derives the authorization boundary of a requisition, which
// includes its target warehouse.
func (rm *Requisition) AuthScope() authz.Scope {
	return authz.Normalize(authz.Scope{
		TenantID:    rm.TenantID,
		UnitID:      rm.UnitID,
		WorkID:      rm.WorkID,
		WarehouseID: rm.WarehouseID,
	})
}

// ── Purchase order ───────────────────────────────────────────────────────────

const (
	PurchaseOrderStatusPending  = "PENDING"
	PurchaseOrderStatusApproved = "APPROVED"
	PurchaseOrderStatusRejected = "REJECTED"
)

// PurchaseOrder is a unit-level procurement document.
type PurchaseOrder struct {
	ID         string
	TenantID   string
	UnitID     string
	WorkID     string
	SupplierID string
	Status     string
	TotalCents int64
	ApprovedBy *string
	ApprovedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AuthScope derives the authorization boundary of a purchase order. No
// warehouse dimension: a purchase order is a unit-level concern.
func (po *PurchaseOrder) AuthScope() authz.Scope {
	return authz.Normalize(authz.Scope{
		TenantID: po.TenantID,
		UnitID:   po.UnitID,
		WorkID:   po.WorkID,
	})
}

// ── Audit ────────────────────────────────────────────────────────────────────

// TransferAuditEntry is one immutable record in the transfer audit log.
type TransferAuditEntry struct {
	ID           string
	TransferID   string
	TenantID     string
	Action       string // separated | dispatched | received | divergence_reported | canceled
	PerformedBy  string
	PerformedAt  time.Time
	StatusBefore *string
	StatusAfter  *string
	Metadata     map[string]interface{}
}
