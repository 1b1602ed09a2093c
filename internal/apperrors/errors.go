// Package apperrors defines the error taxonomy shared by the approval
// service, the policy engine and the router.
package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = errors.New("not found")

// ValidationError reports bad input to the approval service. It is never
// retried and maps to a 4xx response at the HTTP surface.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidation creates a ValidationError for the given field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConflictError reports a state-machine violation, e.g. approving an
// approval that is no longer pending. Surfaced to the caller, not retried.
type ConflictError struct {
	ID      string
	Current string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("approval %s is in status %q, operation not allowed", e.ID, e.Current)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// PolicyBlockedError reports that the compliance gate rejected a dispatch.
// Terminal; a human must re-approve after the policy state changes.
type PolicyBlockedError struct {
	Code   string
	Reason string
}

func (e *PolicyBlockedError) Error() string {
	return fmt.Sprintf("policy blocked (%s): %s", e.Code, e.Reason)
}

// ChannelErrorKind separates retryable from terminal adapter failures.
type ChannelErrorKind string

const (
	// ChannelErrorTransient covers network errors, timeouts and
	// provider-busy responses. Retried up to the configured bound.
	ChannelErrorTransient ChannelErrorKind = "transient"
	// ChannelErrorPermanent covers invalid recipients and provider
	// content rejections. Never retried.
	ChannelErrorPermanent ChannelErrorKind = "permanent"
)

// ChannelError is an adapter-reported send failure.
type ChannelError struct {
	Kind ChannelErrorKind
	Err  error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("channel error (%s): %v", e.Kind, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}

// NewTransient wraps err as a retryable channel error.
func NewTransient(err error) error {
	return &ChannelError{Kind: ChannelErrorTransient, Err: err}
}

// NewPermanent wraps err as a terminal channel error.
func NewPermanent(err error) error {
	return &ChannelError{Kind: ChannelErrorPermanent, Err: err}
}

// IsPermanent reports whether err is a permanent channel error. Anything
// that is not explicitly permanent is treated as transient by the router,
// so an unclassified infrastructure failure gets a retry instead of
// discarding an approved message.
func IsPermanent(err error) bool {
	var ce *ChannelError
	if errors.As(err, &ce) {
		return ce.Kind == ChannelErrorPermanent
	}
	return false
}
