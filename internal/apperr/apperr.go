// Package apperr defines the typed error kinds returned by the chore, ledger
// and wishlist engines.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers that need to recover locally.
type Kind string

const (
	KindInternal             Kind = "Internal"
	KindInvalidInput         Kind = "InvalidInput"
	KindMissingProof         Kind = "MissingProof"
	KindUnauthorized         Kind = "Unauthorized"
	KindInvalidTransition    Kind = "InvalidTransition"
	KindStaleState           Kind = "StaleState"
	KindAlreadyFulfilled     Kind = "AlreadyFulfilled"
	KindOverSelfFulfillLimit Kind = "OverSelfFulfillLimit"
	KindInvalidRate          Kind = "InvalidRate"
	KindNotFound             Kind = "NotFound"
	KindExpired              Kind = "Expired"
	KindRateLimited          Kind = "RateLimited"
	// KindConsistency marks a cached balance that disagrees with the ledger.
	// It is never user-recoverable.
	KindConsistency Kind = "Consistency"
)

// Error is a kinded error with an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.StaleState)
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons.
var (
	InvalidInput         = &Error{Kind: KindInvalidInput}
	MissingProof         = &Error{Kind: KindMissingProof}
	Unauthorized         = &Error{Kind: KindUnauthorized}
	InvalidTransition    = &Error{Kind: KindInvalidTransition}
	StaleState           = &Error{Kind: KindStaleState}
	AlreadyFulfilled     = &Error{Kind: KindAlreadyFulfilled}
	OverSelfFulfillLimit = &Error{Kind: KindOverSelfFulfillLimit}
	InvalidRate          = &Error{Kind: KindInvalidRate}
	NotFound             = &Error{Kind: KindNotFound}
	Expired              = &Error{Kind: KindExpired}
	RateLimited          = &Error{Kind: KindRateLimited}
	Consistency          = &Error{Kind: KindConsistency}
)

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to cause. A nil cause yields nil.
func Wrap(cause error, kind Kind, message string) error {
	if cause == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the user-facing message of err. Errors without a kind are
// reported as a generic internal error so driver details do not leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Message != "" {
			return e.Message
		}
		return string(e.Kind)
	}
	return "internal error"
}

// HTTPStatus maps a kind to the status code the API responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindMissingProof, KindInvalidRate:
		return http.StatusBadRequest
	case KindUnauthorized, KindOverSelfFulfillLimit:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition, KindStaleState, KindAlreadyFulfilled:
		return http.StatusConflict
	case KindExpired:
		return http.StatusGone
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
