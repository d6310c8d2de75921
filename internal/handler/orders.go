package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/order-capture/pkg/httpmiddleware"
)

// CreateAuthorization handles POST /api/orders. The payment authority
// response is relayed with its own status code.
func (h *Handler) CreateAuthorization(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	cart, ok, err := decodeCartRequest(data)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	if !ok {
		httpmiddleware.WriteError(w, http.StatusBadRequest, "cart is required", "request body has no cart")
		return
	}

	res, err := h.orders.Authorize(r.Context(), cart)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeRaw(w, res.StatusCode, res.Payload)
}

// CaptureAuthorization handles POST /api/orders/{orderID}/capture.
func (h *Handler) CaptureAuthorization(w http.ResponseWriter, r *http.Request) {
	res, err := h.orders.Capture(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeRaw(w, res.StatusCode, res.Payload)
}
