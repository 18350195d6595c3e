// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies failures so transports can map them without string matching.
type Kind string

const (
	KindUnknown                Kind = "unknown"
	KindInvalidSignature       Kind = "invalid_signature"
	KindMalformedPayload       Kind = "malformed_payload"
	KindMissingFields          Kind = "missing_fields"
	KindMissingPrimaryEmail    Kind = "missing_primary_email"
	KindPersistence            Kind = "persistence_error"
	KindGenerationFailed       Kind = "generation_failed"
	KindDeliveryFailed         Kind = "delivery_failed"
	KindCheckoutCreationFailed Kind = "checkout_creation_failed"
	KindPortalCreationFailed   Kind = "portal_creation_failed"
	KindIllegalTransition      Kind = "illegal_transition"
	KindNotFound               Kind = "not_found"
	KindForbidden              Kind = "forbidden"
)

// Error is a classified failure of one operation.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E builds a classified error.
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in the chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	var notFound *ErrProfileNotFound
	if errors.As(err, &notFound) {
		return KindNotFound
	}
	var msgNotFound *ErrMessageNotFound
	if errors.As(err, &msgNotFound) {
		return KindNotFound
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code user-facing handlers answer with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidSignature, KindMalformedPayload, KindMissingFields, KindMissingPrimaryEmail:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	case KindIllegalTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// ErrProfileNotFound is returned when no profile matches a lookup key.
type ErrProfileNotFound struct {
	Key string
}

func (e *ErrProfileNotFound) Error() string {
	return fmt.Sprintf("profile %s not found", e.Key)
}

// Helper constructor
func NewProfileNotFound(key string) error {
	return &ErrProfileNotFound{Key: key}
}

// ErrMessageNotFound is returned when no demo message has the given id.
type ErrMessageNotFound struct {
	ID string
}

func (e *ErrMessageNotFound) Error() string {
	return fmt.Sprintf("demo message %s not found", e.ID)
}

func NewMessageNotFound(id string) error {
	return &ErrMessageNotFound{ID: id}
}
