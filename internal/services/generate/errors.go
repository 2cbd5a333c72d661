package generate

import (
	"errors"
	"fmt"
)

// ErrNotConfigured indicates the upstream API key is missing. Unlike transient
// upstream failures this is an operator error and is surfaced to callers.
var ErrNotConfigured = errors.New("upstream API key is not configured")

// ErrEmptyCompletion indicates the upstream answered successfully but without
// any usable content.
var ErrEmptyCompletion = errors.New("upstream returned no content")

// ErrorKind classifies a failed upstream attempt.
type ErrorKind int

const (
	// KindNetwork covers connection, DNS, and timeout failures. Only these
	// are eligible for a wait-and-retry.
	KindNetwork ErrorKind = iota
	// KindStatus covers non-2xx upstream responses and in-band API errors.
	KindStatus
	// KindParse covers content that is neither valid JSON nor regex-extractable.
	KindParse
)

// AttemptError is a failed upstream attempt tagged with its failure class at
// the point it occurred, so retry eligibility is a structural check rather
// than message sniffing.
type AttemptError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *AttemptError) Error() string {
	switch e.Kind {
	case KindNetwork:
		return fmt.Sprintf("network error: %v", e.Err)
	case KindStatus:
		return fmt.Sprintf("upstream status error: %v", e.Err)
	default:
		return fmt.Sprintf("parse error: %v", e.Err)
	}
}

func (e *AttemptError) Unwrap() error { return e.Err }

// Retryable reports whether the attempt failed at the network level.
func (e *AttemptError) Retryable() bool { return e.Kind == KindNetwork }
