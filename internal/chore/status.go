package chore

import (
	"time"

	"github.com/dukerupert/marinda/internal/model"
)

// EffectiveStatus is the status callers see at now: an OPEN chore whose
// deadline has passed reads as EXPIRED before any sweep persists it.
func EffectiveStatus(c model.Chore, now time.Time) model.ChoreStatus {
	if c.Overdue(now) {
		return model.ChoreExpired
	}
	return c.Status
}

// surface rewrites c.Status to its effective value.
func surface(c *model.Chore, now time.Time) {
	c.Status = EffectiveStatus(*c, now)
}
