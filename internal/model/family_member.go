package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleMom   Role = "MOM"
	RoleDad   Role = "DAD"
	RoleAdult Role = "ADULT"
	RoleTeen  Role = "TEEN"
	RoleChild Role = "CHILD"
)

// ParseRole validates s against the known roles.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleMom, RoleDad, RoleAdult, RoleTeen, RoleChild:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsParent reports whether r is MOM or DAD.
func (r Role) IsParent() bool {
	return r == RoleMom || r == RoleDad
}

type Family struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type FamilyMember struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Points    int64     `json:"points"`
	HasPIN    bool      `json:"has_pin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
