package auth

import (
	"errors"
	"testing"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/model"
)

func TestAllowedApprovalGate(t *testing.T) {
	tests := map[model.Role]bool{
		model.RoleMom:   true,
		model.RoleDad:   true,
		model.RoleAdult: false,
		model.RoleTeen:  false,
		model.RoleChild: false,
	}
	for role, want := range tests {
		if got := Allowed(role, OpChoreApprove); got != want {
			t.Errorf("Allowed(%s, approve) = %v, want %v", role, got, want)
		}
	}
}

func TestAllowedEveryoneCreates(t *testing.T) {
	for _, role := range []model.Role{model.RoleMom, model.RoleDad, model.RoleAdult, model.RoleTeen, model.RoleChild} {
		if !Allowed(role, OpChoreCreate) {
			t.Errorf("Allowed(%s, create) = false, want true", role)
		}
	}
}

func TestAllowedTemplates(t *testing.T) {
	if !Allowed(model.RoleAdult, OpTemplateManage) {
		t.Error("adults should manage templates")
	}
	if Allowed(model.RoleTeen, OpTemplateManage) {
		t.Error("teens should not manage templates")
	}
}

func TestAllowedUnknownOperation(t *testing.T) {
	if Allowed(model.RoleMom, Operation("chore.teleport")) {
		t.Error("unknown operations should be denied")
	}
	if Allowed(model.Role("GRANDPA"), OpChoreCreate) {
		t.Error("unknown roles should be denied")
	}
}

func TestRequire(t *testing.T) {
	if err := Require(model.RoleMom, OpSettingsUpdate); err != nil {
		t.Errorf("Require(MOM, settings) = %v, want nil", err)
	}
	err := Require(model.RoleChild, OpSettingsUpdate)
	if !errors.Is(err, apperr.Unauthorized) {
		t.Errorf("Require(CHILD, settings) = %v, want Unauthorized", err)
	}
}
