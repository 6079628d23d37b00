package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/materix-ai/be-mm-materials/internal/database"
	"github.com/materix-ai/be-mm-materials/internal/errors"
)

// PurchaseOrderRepository handles purchase order data operations.
type PurchaseOrderRepository struct {
	db *database.DB
}

// NewPurchaseOrderRepository creates a new purchase order repository.
func NewPurchaseOrderRepository(db *database.DB) *PurchaseOrderRepository {
	return &PurchaseOrderRepository{db: db}
}

// GetByID retrieves a purchase order.
func (r *PurchaseOrderRepository) GetByID(ctx context.Context, id, tenantID string) (*PurchaseOrder, error) {
	po := &PurchaseOrder{}

	query := `
		SELECT id, tenant_id,
		       COALESCE(unit_id, ''), COALESCE(work_id, ''),
		       supplier_id, status, total_cents,
		       approved_by, approved_at, created_at, updated_at
		FROM purchase_orders
		WHERE id = $1 AND tenant_id = $2
	`

	err := r.db.QueryRow(ctx, query, id, tenantID).Scan(
		&po.ID,
		&po.TenantID,
		&po.UnitID,
		&po.WorkID,
		&po.SupplierID,
		&po.Status,
		&po.TotalCents,
		&po.ApprovedBy,
		&po.ApprovedAt,
		&po.CreatedAt,
		&po.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("purchase_order", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get purchase order")
	}

	return po, nil
}

// Approve records approval, qualified on the current status.
func (r *PurchaseOrderRepository) Approve(ctx context.Context, id, tenantID, approvedBy string) error {
	query := `
		UPDATE purchase_orders
		SET status = 'APPROVED'::purchase_order_status,
		    approved_by = $3,
		    approved_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = 'PENDING'::purchase_order_status
	`

	tag, err := r.db.Exec(ctx, query, id, tenantID, approvedBy)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to approve purchase order")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeConflict, "purchase order is not pending approval")
	}
	return nil
}
