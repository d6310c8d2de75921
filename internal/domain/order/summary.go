package order

import (
	"context"
	"fmt"
	"strings"
)

// Summary is a human-readable order digest sent to the customer and,
// optionally, to an operator.
type Summary struct {
	OrderID    string
	Recipients []string
	Subject    string
	Body       string
}

// Notifier dispatches order summaries. Delivery is best-effort.
type Notifier interface {
	Notify(ctx context.Context, s Summary) error
}

// NewSummary renders the summary of a persisted order. The operator address
// is added to recipients when non-empty.
func NewSummary(o *Order, operator string) Summary {
	var b strings.Builder
	fmt.Fprintf(&b, "Order %s\n", o.ID)
	fmt.Fprintf(&b, "Customer: %s <%s>\n", o.Customer.Name, o.Customer.Email)
	fmt.Fprintf(&b, "Phone: %s\n", o.Customer.PhoneNumber)
	fmt.Fprintf(&b, "Address: %s, %s\n", o.Customer.District, o.Customer.City)
	fmt.Fprintf(&b, "Payment method: %s\n", o.PaymentMethod)
	fmt.Fprintf(&b, "Status: %s\n", o.Status)
	b.WriteString("Items:\n")
	for _, it := range o.Items {
		fmt.Fprintf(&b, "  - %s x%d @ %s\n", it.ProductName, it.Quantity, it.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "Total: %s\n", o.Total.StringFixed(2))

	recipients := []string{o.Customer.Email}
	if operator != "" && !strings.EqualFold(operator, o.Customer.Email) {
		recipients = append(recipients, operator)
	}

	return Summary{
		OrderID:    o.ID,
		Recipients: recipients,
		Subject:    fmt.Sprintf("Order %s received", o.ID),
		Body:       b.String(),
	}
}
