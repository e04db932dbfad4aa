package model

import "time"

type LedgerKind string

const (
	LedgerChoreApproval       LedgerKind = "chore_approval"
	LedgerWishlistFulfillment LedgerKind = "wishlist_fulfillment"
	LedgerManualAdjust        LedgerKind = "manual_adjust"
)

// LedgerEntry is one immutable signed change to a member's balance.
type LedgerEntry struct {
	ID                 string     `json:"id"`
	FamilyID           int64      `json:"family_id"`
	MemberID           int64      `json:"member_id"`
	Delta              int64      `json:"delta"`
	Reason             string     `json:"reason"`
	Kind               LedgerKind `json:"kind"`
	ApprovedByMemberID *int64     `json:"approved_by_member_id"`
	CreatedAt          time.Time  `json:"created_at"`
}

// BalanceDrift is a member whose cached points disagree with the ledger sum.
type BalanceDrift struct {
	MemberID  int64 `json:"member_id"`
	Cached    int64 `json:"cached"`
	LedgerSum int64 `json:"ledger_sum"`
}
