package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidCart is the kind of input errors raised by cart validation.
	ErrInvalidCart = errors.New("invalid cart")
	// ErrInvalidOrder is the kind of input errors raised by direct order placement.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrInvalidArgument is the kind of input errors for missing identifiers
	// or unusable administrative arguments.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound is returned when the addressed order does not exist.
	ErrNotFound = errors.New("order not found")
)

// InputError describes a client input problem detected before any external
// call. Kind is one of ErrInvalidCart, ErrInvalidOrder or ErrInvalidArgument.
type InputError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", e.Kind, e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return e.Kind }

// GatewayError wraps a transport failure or a rejection by the payment
// authority.
type GatewayError struct {
	Op string
	// StatusCode is the authority response status, zero when no response
	// was received.
	StatusCode int
	Timeout    bool
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("gateway %s: timeout: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("gateway %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// PersistenceError wraps a store failure that is not ErrNotFound.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// NotificationError records a failed notification. It is attached to results
// as a warning and never fails the operation that produced it.
type NotificationError struct {
	OrderID string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify order %s: %v", e.OrderID, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
