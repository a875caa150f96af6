package auth

import coreuser "github.com/frahmantamala/leave-management/internal/core/user"

// Operation names an action guarded by role.
type Operation string

const (
	OpApplyLeave        Operation = "apply_leave"
	OpListOwnLeaves     Operation = "list_own_leaves"
	OpCancelLeave       Operation = "cancel_leave"
	OpListAllLeaves     Operation = "list_all_leaves"
	OpUpdateLeaveStatus Operation = "update_leave_status"
)

// rolePolicy is the complete role to operation table. Roles do not inherit
// from each other: an admin cannot apply for leave through the employee routes.
var rolePolicy = map[coreuser.Role]map[Operation]struct{}{
	coreuser.RoleEmployee: {
		OpApplyLeave:    {},
		OpListOwnLeaves: {},
		OpCancelLeave:   {},
	},
	coreuser.RoleAdmin: {
		OpListAllLeaves:     {},
		OpUpdateLeaveStatus: {},
	},
}

// Can reports whether role may perform op.
func Can(role coreuser.Role, op Operation) bool {
	ops, ok := rolePolicy[role]
	if !ok {
		return false
	}
	_, allowed := ops[op]
	return allowed
}
