package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
)

// PlaceOrder handles POST /api/direct-orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	draft, err := decodeDraft(data)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	res, err := h.orders.Place(r.Context(), draft)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("message")
	e.Str("Order placed")
	e.FieldStart("orderId")
	e.Str(res.OrderID)
	if res.NotificationErr != nil {
		e.FieldStart("notificationError")
		e.Str(res.NotificationErr.Error())
	}
	e.ObjEnd()
	writeJSON(w, http.StatusCreated, &e)
}

// ListOrders handles GET /api/direct-orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeOrderError(w, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("data")
	e.ArrStart()
	for i := range orders {
		orders[i].Encode(&e)
	}
	e.ArrEnd()
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// GetOrder handles GET /api/direct-orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeOrderError(w, err)
		return
	}

	var e jx.Encoder
	o.Encode(&e)
	writeJSON(w, http.StatusOK, &e)
}

// UpdateOrderStatus handles PUT /api/direct-orders/{id}.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	status, err := decodeStatusUpdate(data)
	if err != nil {
		writeBadRequest(w, err)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), status); err != nil {
		writeOrderError(w, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("updatedStatus")
	e.Str(string(status))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}

// DeleteOrder handles DELETE /api/direct-orders/{id}.
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeOrderError(w, err)
		return
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("deletedOrderId")
	e.Str(id)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, &e)
}
