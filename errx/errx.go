// Package errx defines the error taxonomy shared by the engine and its
// callers. Every error carries a Kind so transports can map failures to a
// response class without string matching.
package errx

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindUnknown is the zero value and never set explicitly.
	KindUnknown Kind = iota
	// KindValidation marks a field value rejected by its validator.
	KindValidation
	// KindAmbiguous marks an extraction whose confidence fell below the
	// configured threshold.
	KindAmbiguous
	// KindMalformedDefinition marks an agent definition that failed schema
	// validation at load or registration time.
	KindMalformedDefinition
	// KindBackend marks a model or store call that failed or timed out; the
	// turn may be resent.
	KindBackend
	// KindInvariant marks a state invariant violation. Not retryable.
	KindInvariant
	// KindNotFound marks a missing session, checkpoint or agent.
	KindNotFound
	// KindCompleted marks a message sent to an already completed session.
	KindCompleted
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAmbiguous:
		return "ambiguous"
	case KindMalformedDefinition:
		return "malformed_definition"
	case KindBackend:
		return "backend"
	case KindInvariant:
		return "invariant"
	case KindNotFound:
		return "not_found"
	case KindCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Error wraps a cause with a Kind and a message safe to show to callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match on Kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf reports the Kind of err, or KindUnknown when err was not produced
// by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Retryable reports whether the caller may resend the same turn after err.
// Only backend failures leave the session state untouched and safe to retry.
func Retryable(err error) bool {
	return KindOf(err) == KindBackend
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
