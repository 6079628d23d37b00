package repository

import (
	"context"
	"encoding/json"

	"github.com/materix-ai/be-mm-materials/internal/authz"
	"github.com/materix-ai/be-mm-materials/internal/database"
	"github.com/materix-ai/be-mm-materials/internal/errors"
)

// AssignmentRepository loads a user's role assignments. Rows pass through
// authz.Normalize on the way out so the legacy work_id column can never
// skew scope matching downstream.
type AssignmentRepository struct {
	db *database.DB
}

// NewAssignmentRepository creates a new assignment repository.
func NewAssignmentRepository(db *database.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

// GetForUser returns all role assignments a user holds within a tenant.
func (r *AssignmentRepository) GetForUser(ctx context.Context, tenantID, userID string) ([]authz.RoleAssignment, error) {
	query := `
		SELECT role, tenant_id,
		       COALESCE(unit_id, ''), COALESCE(work_id, ''),
		       COALESCE(sector_id, ''), COALESCE(warehouse_id, ''),
		       custom_permissions
		FROM role_assignments
		WHERE tenant_id = $1 AND user_id = $2
	`

	rows, err := r.db.Query(ctx, query, tenantID, userID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to load role assignments")
	}
	defer rows.Close()

	assignments := make([]authz.RoleAssignment, 0)
	for rows.Next() {
		var (
			role        string
			scope       authz.Scope
			permsJSON   []byte
			customPerms []authz.Permission
		)

		err := rows.Scan(
			&role,
			&scope.TenantID,
			&scope.UnitID,
			&scope.WorkID,
			&scope.SectorID,
			&scope.WarehouseID,
			&permsJSON,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan role assignment")
		}

		if permsJSON != nil {
			if err := json.Unmarshal(permsJSON, &customPerms); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to unmarshal custom permissions")
			}
		}

		assignments = append(assignments, authz.RoleAssignment{
			Role:              authz.Role(role),
			Scope:             authz.Normalize(scope),
			CustomPermissions: customPerms,
		})
	}

	return assignments, nil
}
