package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/materix-ai/be-mm-materials/internal/database"
	"github.com/materix-ai/be-mm-materials/internal/errors"
)

// AuditRepository appends and reads immutable transfer audit log entries.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry. The table has a delete-prevention trigger
// so this is the only mutation operation exposed.
func (r *AuditRepository) Append(ctx context.Context, entry *TransferAuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to marshal audit metadata")
		}
	}

	query := `
		INSERT INTO transfer_audit_log
		    (transfer_id, tenant_id, action, performed_by,
		     status_before, status_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, performed_at
	`

	return r.db.QueryRow(ctx, query,
		entry.TransferID,
		entry.TenantID,
		entry.Action,
		entry.PerformedBy,
		entry.StatusBefore,
		entry.StatusAfter,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)
}

// GetByTransferID returns the audit trail for a transfer ordered oldest-first.
func (r *AuditRepository) GetByTransferID(ctx context.Context, transferID, tenantID string) ([]*TransferAuditEntry, error) {
	query := `
		SELECT id, transfer_id, tenant_id, action, performed_by, performed_at,
		       status_before, status_after, metadata
		FROM transfer_audit_log
		WHERE transfer_id = $1 AND tenant_id = $2
		ORDER BY performed_at ASC
	`

	rows, err := r.db.Query(ctx, query, transferID, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get audit log")
	}
	defer rows.Close()

	return scanAuditRows(rows)
}

func scanAuditRows(rows pgx.Rows) ([]*TransferAuditEntry, error) {
	var entries []*TransferAuditEntry
	for rows.Next() {
		entry := &TransferAuditEntry{}
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.TransferID,
			&entry.TenantID,
			&entry.Action,
			&entry.PerformedBy,
			&entry.PerformedAt,
			&entry.StatusBefore,
			&entry.StatusAfter,
			&metadataJSON,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan audit entry")
		}

		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal audit metadata")
			}
		}

		entries = append(entries, entry)
	}
	return entries, nil
}
