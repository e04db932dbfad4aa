package model

import (
	"fmt"
	"time"
)

type ChoreStatus string

const (
	ChoreOpen      ChoreStatus = "OPEN"
	ChoreSubmitted ChoreStatus = "SUBMITTED"
	ChoreApproved  ChoreStatus = "APPROVED"
	ChoreExpired   ChoreStatus = "EXPIRED"
)

// ParseChoreStatus validates s against the known statuses.
func ParseChoreStatus(s string) (ChoreStatus, error) {
	switch st := ChoreStatus(s); st {
	case ChoreOpen, ChoreSubmitted, ChoreApproved, ChoreExpired:
		return st, nil
	}
	return "", fmt.Errorf("unknown chore status %q", s)
}

// Terminal reports whether no further transition is possible.
func (s ChoreStatus) Terminal() bool {
	return s == ChoreApproved || s == ChoreExpired
}

type ProofKind string

const (
	ProofImage ProofKind = "image"
	ProofVideo ProofKind = "video"
)

// Proof references captured media. Type is the MIME type reported by the
// capturing client.
type Proof struct {
	URI  string    `json:"uri"`
	Kind ProofKind `json:"kind"`
	Type string    `json:"type"`
}

type Chore struct {
	ID                int64       `json:"id"`
	FamilyID          int64       `json:"family_id"`
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	Points            int64       `json:"points"`
	Status            ChoreStatus `json:"status"`
	AssignedToIDs     []int64     `json:"assigned_to_ids"`
	DoneByIDs         []int64     `json:"done_by_ids"`
	Proofs            []Proof     `json:"proofs"`
	ExpiresAt         *time.Time  `json:"expires_at"`
	ApprovedByID      *int64      `json:"approved_by_id"`
	Notes             string      `json:"notes"`
	CreatedByMemberID *int64      `json:"created_by_member_id"`
	TemplateID        *int64      `json:"template_id"`
	Version           int64       `json:"version"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	SubmittedAt       *time.Time  `json:"submitted_at"`
	ApprovedAt        *time.Time  `json:"approved_at"`
	ExpiredAt         *time.Time  `json:"expired_at"`
}

// Overdue reports whether an OPEN chore's deadline has passed at now.
func (c Chore) Overdue(now time.Time) bool {
	return c.Status == ChoreOpen && c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

type ChoreTemplate struct {
	ID            int64     `json:"id"`
	FamilyID      int64     `json:"family_id"`
	Title         string    `json:"title"`
	DefaultPoints int64     `json:"default_points"`
	IsArchived    bool      `json:"is_archived"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ChoreFilter narrows chore listings. Zero values mean no constraint.
type ChoreFilter struct {
	Status       ChoreStatus
	AssignedTo   int64
	DoneBy       int64
	CreatedBy    int64
	UpdatedSince *time.Time
	Limit        int
}

// ExpiredCount is the number of chores that expired within one bucket.
type ExpiredCount struct {
	Bucket string `json:"bucket"`
	Count  int    `json:"count"`
}
