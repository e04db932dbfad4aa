package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/store"
)

// PINHeader carries a parent's PIN on sensitive requests.
const PINHeader = "X-Member-PIN"

// RequirePIN makes a parent who has set a PIN confirm it before the wrapped
// handler runs. Members without a PIN, and non-parents, pass through; the
// engines still enforce roles. Failed and successful checks both count
// against attempts per window, keyed by member.
func RequirePIN(members *store.FamilyMemberStore, limiter *RateLimiter, attempts int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := auth.FromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, apperr.KindUnauthorized, "not signed in")
				return
			}
			if !actor.Role.IsParent() {
				next.ServeHTTP(w, r)
				return
			}
			hash, err := members.GetPINHash(r.Context(), actor.MemberID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, apperr.KindInternal, "internal error")
				return
			}
			if hash == "" {
				next.ServeHTTP(w, r)
				return
			}

			pin := r.Header.Get(PINHeader)
			if pin == "" {
				writeError(w, http.StatusForbidden, apperr.KindUnauthorized, "PIN required")
				return
			}
			if !limiter.Allow(fmt.Sprintf("pin:%d", actor.MemberID), attempts, window) {
				writeError(w, http.StatusTooManyRequests, apperr.KindRateLimited, "too many PIN attempts")
				return
			}
			valid, err := members.VerifyPIN(r.Context(), actor.MemberID, pin)
			if err != nil {
				writeError(w, http.StatusInternalServerError, apperr.KindInternal, "internal error")
				return
			}
			if !valid {
				writeError(w, http.StatusForbidden, apperr.KindUnauthorized, "incorrect PIN")
				return
			}

			actor.PINVerified = true
			next.ServeHTTP(w, r.WithContext(auth.WithActor(r.Context(), actor)))
		})
	}
}
