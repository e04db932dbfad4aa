package model

import "time"

// Notification types sent over Web Push.
const (
	NotifTypeChoreSubmitted    = "chore_submitted"
	NotifTypeChoreApproved     = "chore_approved"
	NotifTypeChoreRejected     = "chore_rejected"
	NotifTypeWishlistFulfilled = "wishlist_fulfilled"
)

type PushSubscription struct {
	ID        int64     `json:"id"`
	FamilyID  int64     `json:"family_id"`
	MemberID  int64     `json:"member_id"`
	Endpoint  string    `json:"endpoint"`
	P256dhKey string    `json:"p256dh_key"`
	AuthKey   string    `json:"auth_key"`
	UserAgent string    `json:"user_agent"`
	CreatedAt time.Time `json:"created_at"`
}
