package authz

// Permission is an atomic capability token gating one action. Permissions
// carry no hierarchy among themselves: holding TRANSFER_DISPATCH does not
// imply TRANSFER_RECEIVE.
type Permission string

const (
	PermRequisitionApproveL1 Permission = "RM_APPROVE_L1"
	PermRequisitionApproveL2 Permission = "RM_APPROVE_L2"
	PermPurchaseOrderApprove Permission = "PO_APPROVE"

	PermTransferSeparate         Permission = "TRANSFER_SEPARATE"
	PermTransferDispatch         Permission = "TRANSFER_DISPATCH"
	PermTransferReceive          Permission = "TRANSFER_RECEIVE"
	PermTransferReportDivergence Permission = "TRANSFER_REPORT_DIVERGENCE"
	PermTransferCancel           Permission = "TRANSFER_CANCEL"

	PermStockAdjust Permission = "STOCK_ADJUST"
)

// Role is a named permission bundle. The set of roles is closed; every role
// must have an entry in rolePermissions.
type Role string

const (
	RoleOwner             Role = "OWNER"
	RoleUnitManager       Role = "UNIT_MANAGER"
	RoleWarehouseOperator Role = "WAREHOUSE_OPERATOR"
	RoleBuyer             Role = "BUYER"
	RoleViewer            Role = "VIEWER"
)

var rolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermRequisitionApproveL1,
		PermRequisitionApproveL2,
		PermPurchaseOrderApprove,
		PermTransferSeparate,
		PermTransferDispatch,
		PermTransferReceive,
		PermTransferReportDivergence,
		PermTransferCancel,
		PermStockAdjust,
	},
	RoleUnitManager: {
		PermRequisitionApproveL1,
		PermRequisitionApproveL2,
		PermTransferDispatch,
		PermTransferReceive,
		PermTransferReportDivergence,
		PermTransferCancel,
	},
	RoleWarehouseOperator: {
		PermTransferSeparate,
		PermTransferDispatch,
		PermTransferReceive,
		PermStockAdjust,
	},
	RoleBuyer: {
		PermPurchaseOrderApprove,
	},
	RoleViewer: {},
}

// AllRoles returns every declared role. Kept in sync with rolePermissions
// by test.
func AllRoles() []Role {
	return []Role{RoleOwner, RoleUnitManager, RoleWarehouseOperator, RoleBuyer, RoleViewer}
}

// PermissionsForRole returns the base permission set of a role. Unknown
// roles grant nothing.
func PermissionsForRole(r Role) []Permission {
	return rolePermissions[r]
}

// RoleAssignment grants a role's permissions to a user, restricted to the
// subtree rooted at Scope, optionally extended by CustomPermissions.
type RoleAssignment struct {
	Role              Role
	Scope             Scope
	CustomPermissions []Permission
}
