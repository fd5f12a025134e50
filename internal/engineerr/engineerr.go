// Package engineerr defines the error taxonomy used across the engine.
package engineerr

import (
	"errors"
	"fmt"
)

// Kind classifies an engine error for dispatch-time frame selection.
type Kind int

const (
	// Validation covers malformed or out-of-range input from a client.
	Validation Kind = iota
	// NotFound covers references to rooms, items, NPCs, or paths that don't exist.
	NotFound
	// DomainRule covers a well-formed request rejected by a game rule
	// (insufficient items, cooldown still active, wrong room kind, ...).
	DomainRule
	// Concurrency covers a lost race (harvest claimed by another player,
	// stale path-execution token).
	Concurrency
	// Infra covers repository/transport failures not caused by the caller.
	Infra
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case NotFound:
		return "not_found"
	case DomainRule:
		return "domain_rule"
	case Concurrency:
		return "concurrency"
	case Infra:
		return "infra"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by engine handlers. TemplateKey
// names the message template (internal/templates) used to render it to the
// client; Args supplies the substitution values.
type Error struct {
	Kind        Kind
	TemplateKey string
	Args        map[string]any
	Message     string
	cause       error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.TemplateKey
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error with a literal user-facing message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf builds an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Template builds an Error that renders via the named message template.
func Template(kind Kind, key string, args map[string]any) *Error {
	return &Error{Kind: kind, TemplateKey: key, Args: args}
}

// Wrap attaches an infra-kind error to an underlying cause, matching the
// teacher's fmt.Errorf("...: %w", err) propagation style.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Infra, Message: message, cause: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
