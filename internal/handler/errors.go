package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/xenking/order-capture/internal/domain/order"
	"github.com/xenking/order-capture/pkg/httpmiddleware"
)

// writeOrderError maps coordinator errors onto the {"error","details"}
// envelope.
//
// Cart validation failures are reported as 500 on the authorization route,
// matching the behavior existing clients depend on.
func writeOrderError(w http.ResponseWriter, err error) {
	var (
		inErr *order.InputError
		gwErr *order.GatewayError
		dbErr *order.PersistenceError
	)
	switch {
	case errors.Is(err, order.ErrInvalidCart):
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "invalid cart", err.Error())
	case errors.Is(err, order.ErrInvalidOrder):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "incomplete order", err.Error())
	case errors.As(err, &inErr):
		httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid argument", err.Error())
	case errors.Is(err, order.ErrNotFound):
		httpmiddleware.WriteError(w, http.StatusNotFound, "order not found", err.Error())
	case errors.As(err, &gwErr) && gwErr.Timeout:
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "payment authority timeout", err.Error())
	case errors.As(err, &gwErr):
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "payment authority request failed", err.Error())
	case errors.As(err, &dbErr):
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "order store failure", err.Error())
	default:
		httpmiddleware.WriteError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func writeBadRequest(w http.ResponseWriter, err error) {
	httpmiddleware.WriteError(w, http.StatusBadRequest, "invalid request body", err.Error())
}
