package authz

// fieldMatch implements the containment rule for one scope field: an unset
// assignment field is a wildcard, a set field requires exact equality.
// Fields are compared independently; the resolver never infers hierarchy
// between them (a sector never implies a unit).
func fieldMatch(assigned, target string) bool {
	return assigned == "" || assigned == target
}

// scopeContains reports whether an assignment scope covers the target.
// Tenant must match exactly; unit, warehouse and sector each follow the
// wildcard rule. Assignment scopes are normalized before comparison so a
// legacy WorkID-only grant matches on unit.
func scopeContains(assignment, target Scope) bool {
	a := Normalize(assignment)
	if a.TenantID != target.TenantID {
		return false
	}
	if !fieldMatch(a.UnitID, target.UnitID) {
		return false
	}
	if !fieldMatch(a.WarehouseID, target.WarehouseID) {
		return false
	}
	if !fieldMatch(a.SectorID, target.SectorID) {
		return false
	}
	return true
}

// grants reports whether the assignment's effective permission set (role
// base set plus custom permissions) contains perm.
func grants(a RoleAssignment, perm Permission) bool {
	for _, p := range PermissionsForRole(a.Role) {
		if p == perm {
			return true
		}
	}
	for _, p := range a.CustomPermissions {
		if p == perm {
			return true
		}
	}
	return false
}

// Can decides whether any of the user's role assignments authorizes perm
// against the target scope.
//
// A nil target is never authorized. A target without a tenant is a caller
// bug and returns an INVALID_SCOPE error; the resolver never silently
// allows in that case. Otherwise the decision is a pure O(n) walk over the
// assignments: the first assignment whose scope contains the target and
// whose permission set includes perm wins.
func Can(perm Permission, target *Scope, assignments []RoleAssignment) (bool, error) {
	if target == nil {
		return false, nil
	}

	effective, err := Require(target)
	if err != nil {
		return false, err
	}

	for _, a := range assignments {
		if !scopeContains(a.Scope, effective) {
			continue
		}
		if grants(a, perm) {
			return true, nil
		}
	}
	return false, nil
}
