package order

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes the item as a JSON object.
func (i Item) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("productName")
	e.Str(i.ProductName)
	e.FieldStart("quantity")
	e.Int(i.Quantity)
	e.FieldStart("price")
	EncodeDecimal(e, i.Price)
	e.ObjEnd()
}

// Decode reads the item from a JSON object. Unknown fields are skipped.
func (i *Item) Decode(d *jx.Decoder) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productName", "name":
			i.ProductName, err = d.Str()
		case "quantity":
			i.Quantity, err = d.Int()
		case "price":
			i.Price, err = DecodeDecimal(d)
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "field %q", key)
		}
		return nil
	})
}

// Encode writes the order as a JSON object. Timestamps are RFC 3339 in UTC
// and a missing external authorization id is null.
func (o *Order) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(o.ID)
	e.FieldStart("email")
	e.Str(o.Customer.Email)
	e.FieldStart("username")
	e.Str(o.Customer.Name)
	e.FieldStart("city")
	e.Str(o.Customer.City)
	e.FieldStart("district")
	e.Str(o.Customer.District)
	e.FieldStart("phoneNumber")
	e.Str(o.Customer.PhoneNumber)
	e.FieldStart("paymentMethod")
	e.Str(o.PaymentMethod)
	e.FieldStart("totalAmount")
	EncodeDecimal(e, o.Total)
	e.FieldStart("order_status")
	e.Str(string(o.Status))
	e.FieldStart("cartItems")
	EncodeItems(e, o.Items)
	e.FieldStart("externalAuthorizationId")
	if o.ExternalAuthorizationID == "" {
		e.Null()
	} else {
		e.Str(o.ExternalAuthorizationID)
	}
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	e.FieldStart("updatedAt")
	e.Str(o.UpdatedAt.UTC().Format(time.RFC3339))
	e.ObjEnd()
}

// EncodeItems writes items as a JSON array.
func EncodeItems(e *jx.Encoder, items []Item) {
	e.ArrStart()
	for _, it := range items {
		it.Encode(e)
	}
	e.ArrEnd()
}

// DecodeItems reads a JSON array of items. A JSON null yields nil.
func DecodeItems(d *jx.Decoder) ([]Item, error) {
	if d.Next() == jx.Null {
		return nil, d.Null()
	}
	items := make([]Item, 0, 4)
	if err := d.Arr(func(d *jx.Decoder) error {
		var it Item
		if err := it.Decode(d); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, err
	}
	return items, nil
}

// EncodeDecimal writes v as a bare JSON number.
func EncodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

// DecodeDecimal reads a decimal from a JSON number or numeric string.
func DecodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(string(n))
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s, expected number", tt)
	}
}
