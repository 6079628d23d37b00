package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/materix-ai/be-mm-materials/internal/database"
	"github.com/materix-ai/be-mm-materials/internal/errors"
)

// RequisitionRepository handles requisition data operations.
type RequisitionRepository struct {
	db *database.DB
}

// NewRequisitionRepository creates a new requisition repository.
func NewRequisitionRepository(db *database.DB) *RequisitionRepository {
	return &RequisitionRepository{db: db}
}

// GetByID retrieves a requisition.
func (r *RequisitionRepository) GetByID(ctx context.Context, id, tenantID string) (*Requisition, error) {
	rm := &Requisition{}

	query := `
		SELECT id, tenant_id,
		       COALESCE(unit_id, ''), COALESCE(work_id, ''),
		       sector_id, warehouse_id, status,
		       requested_by, approved_l1_by, approved_l1_at,
		       approved_l2_by, approved_l2_at,
		       created_at, updated_at
		FROM requisitions
		WHERE id = $1 AND tenant_id = $2
	`

	err := r.db.QueryRow(ctx, query, id, tenantID).Scan(
		&rm.ID,
		&rm.TenantID,
		&rm.UnitID,
		&rm.WorkID,
		&rm.SectorID,
		&rm.WarehouseID,
		&rm.Status,
		&rm.RequestedBy,
		&rm.ApprovedL1By,
		&rm.ApprovedL1At,
		&rm.ApprovedL2By,
		&rm.ApprovedL2At,
		&rm.CreatedAt,
		&rm.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("requisition", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get requisition")
	}

	return rm, nil
}

// ApproveL1 records first-level approval, qualified on the current status.
func (r *RequisitionRepository) ApproveL1(ctx context.Context, id, tenantID, approvedBy string) error {
	query := `
		UPDATE requisitions
		SET status = 'PENDING_L2'::requisition_status,
		    approved_l1_by = $3,
		    approved_l1_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = 'PENDING_L1'::requisition_status
	`

	tag, err := r.db.Exec(ctx, query, id, tenantID, approvedBy)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to approve requisition")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeConflict, "requisition is not pending first-level approval")
	}
	return nil
}

// ApproveL2 records final approval, qualified on the current status.
func (r *RequisitionRepository) ApproveL2(ctx context.Context, id, tenantID, approvedBy string) error {
	query := `
		UPDATE requisitions
		SET status = 'APPROVED'::requisition_status,
		    approved_l2_by = $3,
		    approved_l2_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = 'PENDING_L2'::requisition_status
	`

	tag, err := r.db.Exec(ctx, query, id, tenantID, approvedBy)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to approve requisition")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeConflict, "requisition is not pending final approval")
	}
	return nil
}
