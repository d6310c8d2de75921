package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a persisted order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAuthorized, StatusCaptured, StatusFailed:
		return true
	default:
		return false
	}
}

// Customer holds contact and fulfillment details of the buyer.
type Customer struct {
	Email       string `json:"email" validate:"required"`
	Name        string `json:"name" validate:"required"`
	City        string `json:"city" validate:"required"`
	District    string `json:"district" validate:"required"`
	PhoneNumber string `json:"phoneNumber" validate:"required"`
}

// Order is the durable record of a purchase.
type Order struct {
	ID       string
	Customer Customer
	Items    []Item
	Total    decimal.Decimal
	// PaymentMethod is free-form, e.g. "paypal" or "cash_on_delivery".
	PaymentMethod string
	Status        Status
	// ExternalAuthorizationID links the order to a payment authority
	// authorization. Empty when none exists.
	ExternalAuthorizationID string
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// Repository defines persistence operations for orders.
//
// Implementations return ErrNotFound when the addressed record is absent.
type Repository interface {
	// Create persists o and returns the identifier assigned by the store.
	Create(ctx context.Context, o *Order) (string, error)
	Get(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
}
