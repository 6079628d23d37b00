package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/materix-ai/be-mm-materials/internal/database"
	"github.com/materix-ai/be-mm-materials/internal/errors"
)

// TransferRepository handles transfer data operations.
type TransferRepository struct {
	db *database.DB
}

// NewTransferRepository creates a new transfer repository.
func NewTransferRepository(db *database.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a transfer and its items in one transaction.
func (r *TransferRepository) Create(ctx context.Context, t *Transfer) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO transfers (tenant_id, origin_unit_id, origin_warehouse_id,
			                       dest_unit_id, dest_warehouse_id, status, notes, created_by)
			VALUES ($1, $2, $3, $4, $5, $6::transfer_status, $7, $8)
			RETURNING id, created_at, updated_at
		`

		err := tx.QueryRow(ctx, query,
			t.TenantID,
			t.OriginUnitID,
			t.OriginWarehouseID,
			t.DestUnitID,
			t.DestWarehouseID,
			t.Status,
			t.Notes,
			t.CreatedBy,
		).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create transfer")
		}

		itemQuery := `
			INSERT INTO transfer_items (transfer_id, line_number, material_id, description, qty_sent)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, created_at, updated_at
		`

		for _, item := range t.Items {
			err := tx.QueryRow(ctx, itemQuery,
				t.ID,
				item.LineNumber,
				item.MaterialID,
				item.Description,
				item.QtySent,
			).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create transfer item")
			}
			item.TransferID = t.ID
		}

		return nil
	})
}

// GetByID retrieves a transfer with its items.
func (r *TransferRepository) GetByID(ctx context.Context, id, tenantID string) (*Transfer, error) {
	t := &Transfer{}

	query := `
		SELECT id, tenant_id, origin_unit_id, origin_warehouse_id,
		       dest_unit_id, dest_warehouse_id, status, divergence_reason,
		       dispatched_by, dispatched_at, received_by, received_at,
		       notes, created_by, created_at, updated_at
		FROM transfers
		WHERE id = $1 AND tenant_id = $2
	`

	err := r.db.QueryRow(ctx, query, id, tenantID).Scan(
		&t.ID,
		&t.TenantID,
		&t.OriginUnitID,
		&t.OriginWarehouseID,
		&t.DestUnitID,
		&t.DestWarehouseID,
		&t.Status,
		&t.DivergenceReason,
		&t.DispatchedBy,
		&t.DispatchedAt,
		&t.ReceivedBy,
		&t.ReceivedAt,
		&t.Notes,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("transfer", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get transfer")
	}

	items, err := r.GetItems(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	t.Items = items

	return t, nil
}

// GetItems retrieves all items for a transfer ordered by line number.
func (r *TransferRepository) GetItems(ctx context.Context, transferID string) ([]*TransferItem, error) {
	query := `
		SELECT id, transfer_id, line_number, material_id, description,
		       qty_sent, qty_received, created_at, updated_at
		FROM transfer_items
		WHERE transfer_id = $1
		ORDER BY line_number
	`

	rows, err := r.db.Query(ctx, query, transferID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get transfer items")
	}
	defer rows.Close()

	items := make([]*TransferItem, 0)
	for rows.Next() {
		item := &TransferItem{}
		err := rows.Scan(
			&item.ID,
			&item.TransferID,
			&item.LineNumber,
			&item.MaterialID,
			&item.Description,
			&item.QtySent,
			&item.QtyReceived,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan transfer item")
		}
		items = append(items, item)
	}

	return items, nil
}

// List retrieves transfers for a tenant with optional status filter.
func (r *TransferRepository) List(ctx context.Context, tenantID string, status *string, limit, offset int) ([]*Transfer, int64, error) {
	query := `
		SELECT id, tenant_id, origin_unit_id, origin_warehouse_id,
		       dest_unit_id, dest_warehouse_id, status, divergence_reason,
		       dispatched_by, dispatched_at, received_by, received_at,
		       notes, created_by, created_at, updated_at
		FROM transfers
		WHERE tenant_id = $1
	`
	countQuery := `SELECT COUNT(*) FROM transfers WHERE tenant_id = $1`

	args := []interface{}{tenantID}
	if status != nil {
		query += " AND status = $2::transfer_status"
		countQuery += " AND status = $2::transfer_status"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to count transfers")
	}

	if status != nil {
		query += " LIMIT $3 OFFSET $4"
	} else {
		query += " LIMIT $2 OFFSET $3"
	}
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to list transfers")
	}
	defer rows.Close()

	transfers := make([]*Transfer, 0)
	for rows.Next() {
		t := &Transfer{}
		err := rows.Scan(
			&t.ID,
			&t.TenantID,
			&t.OriginUnitID,
			&t.OriginWarehouseID,
			&t.DestUnitID,
			&t.DestWarehouseID,
			&t.Status,
			&t.DivergenceReason,
			&t.DispatchedBy,
			&t.DispatchedAt,
			&t.ReceivedBy,
			&t.ReceivedAt,
			&t.Notes,
			&t.CreatedBy,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, 0, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan transfer")
		}
		transfers = append(transfers, t)
	}

	return transfers, total, nil
}

// UpdateStatus moves a transfer from one status to another. The UPDATE is
// qualified on the source status so a concurrent transition loses cleanly
// and surfaces as a conflict.
func (r *TransferRepository) UpdateStatus(ctx context.Context, id, tenantID, fromStatus, toStatus string) error {
	query := `
		UPDATE transfers
		SET status = $4::transfer_status,
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = $3::transfer_status
	`

	tag, err := r.db.Exec(ctx, query, id, tenantID, fromStatus, toStatus)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to update transfer status")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeConflict, "transfer is no longer in status "+fromStatus)
	}
	return nil
}

// MarkDispatched stamps dispatch metadata and moves the transfer to
// IN_TRANSIT, qualified on the current status.
func (r *TransferRepository) MarkDispatched(ctx context.Context, id, tenantID, fromStatus, dispatchedBy string) error {
	query := `
		UPDATE transfers
		SET status = 'IN_TRANSIT'::transfer_status,
		    dispatched_by = $4,
		    dispatched_at = NOW(),
		    updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND status = $3::transfer_status
	`

	tag, err := r.db.Exec(ctx, query, id, tenantID, fromStatus, dispatchedBy)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to dispatch transfer")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeConflict, "transfer is no longer in status "+fromStatus)
	}
	return nil
}

// RecordReceipt writes the received quantity of every item and moves the
// transfer to its final receipt status, all in one transaction.
func (r *TransferRepository) RecordReceipt(ctx context.Context, t *Transfer, received map[string]float64, finalStatus string, divergenceReason *string, receivedBy string) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		itemQuery := `
			UPDATE transfer_items
			SET qty_received = $3,
			    updated_at = NOW()
			WHERE id = $1 AND transfer_id = $2
		`
		for _, item := range t.Items {
			qty := received[item.ID]
			tag, err := tx.Exec(ctx, itemQuery, item.ID, t.ID, qty)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to record item receipt")
			}
			if tag.RowsAffected() == 0 {
				return errors.NotFound("transfer_item", item.ID)
			}
		}

		query := `
			UPDATE transfers
			SET status = $3::transfer_status,
			    divergence_reason = $4,
			    received_by = $5,
			    received_at = NOW(),
			    updated_at = NOW()
			WHERE id = $1 AND tenant_id = $2 AND status = 'IN_TRANSIT'::transfer_status
		`
		tag, err := tx.Exec(ctx, query, t.ID, t.TenantID, finalStatus, divergenceReason, receivedBy)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to record transfer receipt")
		}
		if tag.RowsAffected() == 0 {
			return errors.New(errors.ErrCodeConflict, "transfer is no longer in transit")
		}

		return nil
	})
}