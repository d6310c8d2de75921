// Package handler implements the order HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/order-capture/internal/domain/order"
)

// Orders is the subset of *order.Coordinator used by the handlers.
type Orders interface {
	Authorize(ctx context.Context, cart *order.Cart) (*order.AuthorizationResult, error)
	Capture(ctx context.Context, externalID string) (*order.CaptureResult, error)
	Place(ctx context.Context, d *order.Draft) (*order.PlaceOrderResult, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	List(ctx context.Context) ([]order.Order, error)
	UpdateStatus(ctx context.Context, id string, status order.Status) error
	Delete(ctx context.Context, id string) error
}

var _ Orders = (*order.Coordinator)(nil)

// Handler serves the gateway and direct order routes.
type Handler struct {
	orders Orders
}

// New returns a Handler backed by orders.
func New(orders Orders) *Handler {
	return &Handler{orders: orders}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/orders", h.CreateAuthorization)
		r.Post("/orders/{orderID}/capture", h.CaptureAuthorization)

		r.Route("/direct-orders", func(r chi.Router) {
			r.Post("/", h.PlaceOrder)
			r.Get("/", h.ListOrders)
			r.Get("/{id}", h.GetOrder)
			r.Put("/{id}", h.UpdateOrderStatus)
			r.Delete("/{id}", h.DeleteOrder)
		})
	})
}

// Health is implemented by *health.Health.
type Health interface {
	LiveEndpoint(w http.ResponseWriter, r *http.Request)
	ReadyEndpoint(w http.ResponseWriter, r *http.Request)
}

// NewRouter returns a router with the API and probe routes.
func NewRouter(h *Handler, probes Health) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/livez", probes.LiveEndpoint)
	r.Get("/readyz", probes.ReadyEndpoint)
	h.Register(r)
	return r
}
