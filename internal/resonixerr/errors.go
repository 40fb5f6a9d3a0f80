// Package resonixerr defines the typed error kinds the player runtime and
// its collaborators surface. Each kind wraps an optional cause and is
// classifiable with errors.As/errors.Is.
package resonixerr

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kind identifies one of the error categories surfaced by the core.
type Kind string

const (
	KindBadInput             Kind = "bad_input"
	KindBlocked              Kind = "blocked"
	KindExists               Kind = "exists"
	KindNotFound             Kind = "not_found"
	KindResolverDisabled     Kind = "resolver_disabled"
	KindResolverTimeout      Kind = "resolver_timeout"
	KindResolverUnavailable  Kind = "resolver_unavailable"
	KindDecoderSpawnFailed   Kind = "decoder_spawn_failed"
	KindDecoderEarlyExit     Kind = "decoder_early_exit"
	KindDecoderStalled       Kind = "decoder_stalled"
	KindPauseTimeout         Kind = "pause_timeout"
	KindSubscriberReplaced   Kind = "subscriber_replaced"
	KindInternalError        Kind = "internal_error"
)

// Error is the concrete error type carrying a Kind, an operation label and
// an optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind.
func New(kind Kind, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the Kind carried by err, if any, and whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err carries the given kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsTimeout reports whether err is a ResolverTimeout/PauseTimeout Error, a
// context.DeadlineExceeded, or any error exposing Timeout() bool == true.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, KindResolverTimeout) || Is(err, KindPauseTimeout) {
		return true
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return stderrors.As(err, &te) && te.Timeout()
}
