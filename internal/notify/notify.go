// Package notify implements order.Notifier transports.
package notify

import (
	"context"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/order-capture/internal/domain/order"
)

// ContentType of encoded summaries.
const ContentType = "application/json"

// Encode renders the summary as the JSON message body shared by the
// broker transports.
func Encode(s order.Summary) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(s.OrderID)
	e.FieldStart("recipients")
	e.ArrStart()
	for _, r := range s.Recipients {
		e.Str(r)
	}
	e.ArrEnd()
	e.FieldStart("subject")
	e.Str(s.Subject)
	e.FieldStart("body")
	e.Str(s.Body)
	e.ObjEnd()
	return e.Bytes()
}

var _ order.Notifier = Log{}

// Log writes summaries to the request logger. It never fails.
type Log struct{}

// Notify implements order.Notifier.
func (Log) Notify(ctx context.Context, s order.Summary) error {
	zctx.From(ctx).Info("Order summary",
		zap.String("order_id", s.OrderID),
		zap.Strings("recipients", s.Recipients),
		zap.String("subject", s.Subject),
		zap.String("body", s.Body),
	)
	return nil
}
