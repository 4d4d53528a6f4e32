// Package errors defines the failure taxonomy of the chat orchestration core.
//
// Every failure surfaced to a caller carries a Kind so transports can decide
// between "retry later" (timeouts) and "fix your configuration" (bad key,
// missing provider) without string matching.
package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnknownTemplateKey         Kind = "unknown_template_key"
	KindEmbeddingDimensionMismatch Kind = "embedding_dimension_mismatch"
	KindProviderTimeout            Kind = "provider_timeout"
	KindProviderAuth               Kind = "provider_auth_error"
	KindProviderProtocol           Kind = "provider_protocol_error"
	KindNoActiveProvider           Kind = "no_active_provider"
	KindEmbeddingUnsupported       Kind = "embedding_unsupported"
	KindCancelled                  Kind = "cancelled"
)

// Error is the structured failure returned by the orchestration core.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err.Error())
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the Kind carried by err, or "" when err has none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the failure is transient. Only provider timeouts
// qualify; everything else needs operator or caller intervention.
func Retryable(err error) bool {
	return KindOf(err) == KindProviderTimeout
}

var (
	// ErrNotFound is the generic sentinel repos return for missing rows.
	ErrNotFound = errors.New("not found")
)
