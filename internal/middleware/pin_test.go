package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/marinda/internal/auth"
	"github.com/dukerupert/marinda/internal/model"
)

func pinRequest(a auth.Actor, pin string) *http.Request {
	req := httptest.NewRequest("POST", "/api/chores/1/approve", nil)
	if pin != "" {
		req.Header.Set(PINHeader, pin)
	}
	return req.WithContext(auth.WithActor(req.Context(), a))
}

func TestRequirePIN(t *testing.T) {
	fx := setupAuth(t)
	if err := fx.members.SetPIN(context.Background(), fx.f.Mom, "4321"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	mom := auth.Actor{MemberID: fx.f.Mom, FamilyID: fx.f.ID, Role: model.RoleMom}
	dad := auth.Actor{MemberID: fx.f.Dad, FamilyID: fx.f.ID, Role: model.RoleDad}
	kid := auth.Actor{MemberID: fx.f.Child, FamilyID: fx.f.ID, Role: model.RoleChild}

	var verified bool
	handler := RequirePIN(fx.members, NewRateLimiter(), 5, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, _ := auth.FromContext(r.Context())
		verified = a.PINVerified
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name         string
		req          *http.Request
		wantStatus   int
		wantVerified bool
	}{
		{"parent without pin header", pinRequest(mom, ""), http.StatusForbidden, false},
		{"parent wrong pin", pinRequest(mom, "0000"), http.StatusForbidden, false},
		{"parent right pin", pinRequest(mom, "4321"), http.StatusOK, true},
		{"parent with no pin set", pinRequest(dad, ""), http.StatusOK, false},
		{"child", pinRequest(kid, ""), http.StatusOK, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verified = false
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if verified != tt.wantVerified {
				t.Errorf("PINVerified = %v, want %v", verified, tt.wantVerified)
			}
		})
	}
}

func TestRequirePINLimitsAttempts(t *testing.T) {
	fx := setupAuth(t)
	if err := fx.members.SetPIN(context.Background(), fx.f.Dad, "2468"); err != nil {
		t.Fatalf("set pin: %v", err)
	}
	dad := auth.Actor{MemberID: fx.f.Dad, FamilyID: fx.f.ID, Role: model.RoleDad}
	handler := RequirePIN(fx.members, NewRateLimiter(), 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, pinRequest(dad, "1111"))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("attempt %d: status = %d, want %d", i+1, rec.Code, http.StatusForbidden)
		}
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, pinRequest(dad, "2468"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("after limit: status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if kind := decodeKind(t, rec); kind != "RateLimited" {
		t.Errorf("after limit: kind = %q, want RateLimited", kind)
	}
}

func TestRequirePINWithoutActor(t *testing.T) {
	fx := setupAuth(t)
	handler := RequirePIN(fx.members, NewRateLimiter(), 5, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
