package authz

import (
	"github.com/materix-ai/be-mm-materials/internal/errors"
)

// Scope is an addressable position in the organizational hierarchy:
// tenant → unit → sector/warehouse. An empty field means "not set".
//
// WorkID is the legacy alias of UnitID: the domain started with a
// construction-site vocabulary ("work") and grew into a generic "unit"
// vocabulary. Older data and code paths still read and write WorkID, so
// Normalize keeps the two in sync before any comparison happens.
//
// Scopes are value objects: created per authorization check, never mutated
// after construction. More specific fields (sector, warehouse) are assumed
// to belong under the unit they were derived from; the type does not
// enforce that referentially — callers derive scopes from real entities
// instead of constructing ad hoc ones.
type Scope struct {
	TenantID    string `json:"tenant_id"`
	UnitID      string `json:"unit_id,omitempty"`
	WorkID      string `json:"work_id,omitempty"`
	SectorID    string `json:"sector_id,omitempty"`
	WarehouseID string `json:"warehouse_id,omitempty"`
}

// Normalize returns an alias-consistent copy of s: whichever of UnitID and
// WorkID is set wins (UnitID first) and is written to both fields. Pure and
// total; it does not validate TenantID. Idempotent.
func Normalize(s Scope) Scope {
	unit := s.UnitID
	if unit == "" {
		unit = s.WorkID
	}
	return Scope{
		TenantID:    s.TenantID,
		UnitID:      unit,
		WorkID:      unit,
		SectorID:    s.SectorID,
		WarehouseID: s.WarehouseID,
	}
}

// UnitOf returns the effective unit of a scope, tolerating nil.
func UnitOf(s *Scope) string {
	if s == nil {
		return ""
	}
	if s.UnitID != "" {
		return s.UnitID
	}
	return s.WorkID
}

// Require is the mandatory gate before any permission decision: it rejects
// a nil or tenant-less scope with an INVALID_SCOPE error and returns the
// normalized scope otherwise. No permission check may run against an
// unnormalized or tenant-less scope.
func Require(s *Scope) (Scope, error) {
	if s == nil {
		return Scope{}, errors.InvalidScope("authorization scope is missing")
	}
	if s.TenantID == "" {
		return Scope{}, errors.InvalidScope("authorization scope has no tenant")
	}
	return Normalize(*s), nil
}
