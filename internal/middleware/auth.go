package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dukerupert/marinda/internal/apperr"
	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/store"
)

// RequireMember validates the bearer token and loads the member's current
// role into the request's Actor. WebSocket clients, which cannot set
// headers, may pass the token as the access_token query parameter.
func RequireMember(tokens *auth.TokenService, members *store.FamilyMemberStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, apperr.KindUnauthorized, "missing bearer token")
				return
			}
			claims, err := tokens.Parse(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, apperr.KindUnauthorized, "invalid token")
				return
			}

			member, err := members.GetInFamily(r.Context(), claims.FamilyID, claims.MemberID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, apperr.KindInternal, "internal error")
				return
			}
			if member == nil {
				writeError(w, http.StatusUnauthorized, apperr.KindUnauthorized, "member no longer exists")
				return
			}

			ctx := auth.WithActor(r.Context(), auth.Actor{
				MemberID: member.ID,
				FamilyID: member.FamilyID,
				Role:     member.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("access_token")
}

func writeError(w http.ResponseWriter, status int, kind apperr.Kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg, "kind": string(kind)})
}
