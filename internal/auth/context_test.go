package auth

import (
	"context"
	"testing"

	"github.com/dukerupert/marinda/internal/model"
)

func TestWithActorAndFromContext(t *testing.T) {
	a := Actor{
		MemberID: 1,
		FamilyID: 2,
		Role:     model.RoleDad,
	}

	ctx := WithActor(context.Background(), a)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected Actor in context")
	}
	if got.MemberID != 1 {
		t.Errorf("MemberID = %d, want 1", got.MemberID)
	}
	if got.FamilyID != 2 {
		t.Errorf("FamilyID = %d, want 2", got.FamilyID)
	}
	if got.Role != model.RoleDad {
		t.Errorf("Role = %q, want %q", got.Role, model.RoleDad)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing Actor")
	}
}

func TestFamilyAndMemberID(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{MemberID: 7, FamilyID: 42})
	if FamilyID(ctx) != 42 {
		t.Errorf("FamilyID = %d, want 42", FamilyID(ctx))
	}
	if MemberID(ctx) != 7 {
		t.Errorf("MemberID = %d, want 7", MemberID(ctx))
	}
	if FamilyID(context.Background()) != 0 || MemberID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestIsParent(t *testing.T) {
	for _, role := range []model.Role{model.RoleMom, model.RoleDad} {
		if !IsParent(WithActor(context.Background(), Actor{Role: role})) {
			t.Errorf("IsParent(%s) = false, want true", role)
		}
	}
	for _, role := range []model.Role{model.RoleAdult, model.RoleTeen, model.RoleChild} {
		if IsParent(WithActor(context.Background(), Actor{Role: role})) {
			t.Errorf("IsParent(%s) = true, want false", role)
		}
	}
	if IsParent(context.Background()) {
		t.Error("expected IsParent = false for missing context")
	}
}
