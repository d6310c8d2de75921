package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/order-capture/internal/domain/order"
)

const maxBodySize = 1 << 20

var errEmptyBody = errors.New("empty body")

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) == 0 {
		return nil, errEmptyBody
	}
	return data, nil
}

// decodeCartRequest reads {"cart": {"total": n, "items": [...]}}. The second
// return value is false when the cart key is absent or null.
func decodeCartRequest(data []byte) (*order.Cart, bool, error) {
	var (
		cart    *order.Cart
		present bool
	)
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "cart" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		present = true
		cart = &order.Cart{}
		return decodeCart(d, cart)
	})
	if err != nil {
		return nil, false, err
	}
	return cart, present, nil
}

func decodeCart(d *jx.Decoder, c *order.Cart) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "total":
			if d.Next() == jx.Null {
				return d.Null()
			}
			c.Total, err = order.DecodeDecimal(d)
		case "items":
			c.Items, err = order.DecodeItems(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// decodeDraft reads a direct placement request. Null values leave the field
// unset so validation reports it as missing.
func decodeDraft(data []byte) (*order.Draft, error) {
	dr := &order.Draft{}
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "user":
			dr.Customer = &order.Customer{}
			err = decodeCustomer(d, dr.Customer)
		case "cartItems":
			dr.Items, err = order.DecodeItems(d)
		case "totalAmount":
			dr.Total, err = order.DecodeDecimal(d)
		case "paymentMethod":
			dr.PaymentMethod, err = d.Str()
		case "order_status", "orderStatus":
			var s string
			s, err = d.Str()
			dr.Status = order.Status(s)
		case "externalAuthorizationId":
			dr.ExternalAuthorizationID, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dr, nil
}

func decodeCustomer(d *jx.Decoder, c *order.Customer) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		if d.Next() == jx.Null {
			return d.Null()
		}
		var err error
		switch key {
		case "email":
			c.Email, err = d.Str()
		case "name":
			c.Name, err = d.Str()
		case "city":
			c.City, err = d.Str()
		case "district":
			c.District, err = d.Str()
		case "phoneNumber":
			c.PhoneNumber, err = d.Str()
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// decodeStatusUpdate reads {"orderStatus": "..."}. A missing or null value
// yields an empty status.
func decodeStatusUpdate(data []byte) (order.Status, error) {
	var status order.Status
	err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		if key != "orderStatus" && key != "order_status" {
			return d.Skip()
		}
		if d.Next() == jx.Null {
			return d.Null()
		}
		s, err := d.Str()
		status = order.Status(s)
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
	return status, err
}

func writeJSON(w http.ResponseWriter, code int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}

// writeRaw relays a payment authority response unchanged.
func writeRaw(w http.ResponseWriter, code int, payload []byte) {
	if code == 0 {
		code = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(payload)
}
