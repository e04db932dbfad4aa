package apperr

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindStaleState, "chore %d changed", 4)
	if !errors.Is(err, StaleState) {
		t.Error("expected errors.Is to match StaleState")
	}
	if errors.Is(err, InvalidTransition) {
		t.Error("StaleState should not match InvalidTransition")
	}

	wrapped := fmt.Errorf("approve: %w", err)
	if !errors.Is(wrapped, StaleState) {
		t.Error("expected match through fmt.Errorf wrapping")
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(New(KindNotFound, "chore not found")); got != KindNotFound {
		t.Errorf("KindOf = %q, want %q", got, KindNotFound)
	}
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Errorf("KindOf(plain) = %q, want %q", got, KindInternal)
	}
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(sql.ErrNoRows, KindNotFound, "member not found")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Error("expected cause to be reachable")
	}
	if !errors.Is(err, NotFound) {
		t.Error("expected NotFound kind")
	}
	if Wrap(nil, KindNotFound, "x") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestMessageHidesInternalDetail(t *testing.T) {
	if got := Message(errors.New("sqlite: disk I/O error")); got != "internal error" {
		t.Errorf("Message = %q, want %q", got, "internal error")
	}
	if got := Message(New(KindInvalidInput, "title is required")); got != "title is required" {
		t.Errorf("Message = %q", got)
	}
	if got := Message(StaleState); got != "StaleState" {
		t.Errorf("Message(sentinel) = %q, want StaleState", got)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[Kind]int{
		KindInvalidInput:         http.StatusBadRequest,
		KindMissingProof:         http.StatusBadRequest,
		KindInvalidRate:          http.StatusBadRequest,
		KindUnauthorized:         http.StatusForbidden,
		KindOverSelfFulfillLimit: http.StatusForbidden,
		KindNotFound:             http.StatusNotFound,
		KindInvalidTransition:    http.StatusConflict,
		KindStaleState:           http.StatusConflict,
		KindAlreadyFulfilled:     http.StatusConflict,
		KindExpired:              http.StatusGone,
		KindRateLimited:          http.StatusTooManyRequests,
		KindConsistency:          http.StatusInternalServerError,
		KindInternal:             http.StatusInternalServerError,
	}
	for kind, want := range tests {
		if got := HTTPStatus(kind); got != want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", kind, got, want)
		}
	}
}
