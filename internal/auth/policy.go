package auth

import (
	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/model"
)

// Operation names a role-gated action.
type Operation string

const (
	OpChoreCreate        Operation = "chore.create"
	OpChoreEdit          Operation = "chore.edit"
	OpChoreDelete        Operation = "chore.delete"
	OpChoreSubmit        Operation = "chore.submit"
	OpChoreApprove       Operation = "chore.approve"
	OpChoreReject        Operation = "chore.reject"
	OpChoreSweep         Operation = "chore.sweep"
	OpTemplateManage     Operation = "template.manage"
	OpLedgerAdjust       Operation = "ledger.adjust"
	OpLedgerReconcile    Operation = "ledger.reconcile"
	OpSettingsUpdate     Operation = "settings.update"
	OpWishlistManageAny  Operation = "wishlist.manage_any"
	OpWishlistFulfillAny Operation = "wishlist.fulfill_any"
)

var (
	parents  = roles(model.RoleMom, model.RoleDad)
	adults   = roles(model.RoleMom, model.RoleDad, model.RoleAdult)
	everyone = roles(model.RoleMom, model.RoleDad, model.RoleAdult, model.RoleTeen, model.RoleChild)
)

var policy = map[Operation]map[model.Role]bool{
	OpChoreCreate:        everyone,
	OpChoreEdit:          adults,
	OpChoreDelete:        parents,
	OpChoreSubmit:        everyone,
	OpChoreApprove:       parents,
	OpChoreReject:        parents,
	OpChoreSweep:         parents,
	OpTemplateManage:     adults,
	OpLedgerAdjust:       parents,
	OpLedgerReconcile:    parents,
	OpSettingsUpdate:     parents,
	OpWishlistManageAny:  parents,
	OpWishlistFulfillAny: parents,
}

// PINOperations are the operations a parent with a PIN must confirm.
var PINOperations = map[Operation]bool{
	OpChoreApprove:       true,
	OpChoreReject:        true,
	OpLedgerAdjust:       true,
	OpSettingsUpdate:     true,
	OpWishlistFulfillAny: true,
}

func roles(rs ...model.Role) map[model.Role]bool {
	m := make(map[model.Role]bool, len(rs))
	for _, r := range rs {
		m[r] = true
	}
	return m
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func Allowed(role model.Role, op Operation) bool {
	return policy[op][role]
}

// Require returns an Unauthorized error unless role may perform op.
func Require(role model.Role, op Operation) error {
	if !Allowed(role, op) {
		return apperr.New(apperr.KindUnauthorized, "role %s may not perform %s", role, op)
	}
	return nil
}
