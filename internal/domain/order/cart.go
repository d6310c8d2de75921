package order

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Item is a single cart line. Items are immutable once submitted.
type Item struct {
	ProductName string          `json:"productName" validate:"required"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	Price       decimal.Decimal `json:"price" validate:"nonnegative,money"`
}

// Cart is the unpersisted set of items a customer intends to purchase.
//
// Total is declared by the caller and is not recomputed from item prices.
type Cart struct {
	Items []Item          `json:"items" validate:"required,min=1,dive"`
	Total decimal.Decimal `json:"total" validate:"positive,money"`
}

// Draft is the input of a direct (store-first) order placement.
type Draft struct {
	Customer      *Customer       `json:"user" validate:"required"`
	Items         []Item          `json:"cartItems" validate:"required"`
	Total         decimal.Decimal `json:"totalAmount" validate:"positive"`
	PaymentMethod string          `json:"paymentMethod" validate:"required"`
	// Status overrides the initial status. Empty means StatusPending.
	Status                  Status `json:"order_status" validate:"omitempty,order_status"`
	ExternalAuthorizationID string `json:"externalAuthorizationId"`
}

// Money amounts are stored as NUMERIC(12, 2).
const moneyScale = 2

var maxAmount = decimal.New(1, 12-moneyScale)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Decimals reach the validation funcs in their exact string form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})
	for tag, fn := range map[string]func(d decimal.Decimal) bool{
		"positive":    decimal.Decimal.IsPositive,
		"nonnegative": func(d decimal.Decimal) bool { return !d.IsNegative() },
		"money": func(d decimal.Decimal) bool {
			return d.Equal(d.Truncate(moneyScale)) && d.Abs().LessThan(maxAmount)
		},
	} {
		if err := v.RegisterValidation(tag, decimalRule(fn)); err != nil {
			panic(err)
		}
	}

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	}); err != nil {
		panic(err)
	}

	return v
}

func decimalRule(fn func(d decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && fn(d)
	}
}

// ValidateCart checks cart shape and totals. It has no side effects and
// returns an *InputError of kind ErrInvalidCart on failure.
func ValidateCart(cart *Cart) error {
	if cart == nil {
		return &InputError{Kind: ErrInvalidCart, Field: "cart", Reason: "is required"}
	}
	return validateStruct(ErrInvalidCart, cart)
}

// validateDraft checks presence of the direct placement fields, then runs
// the cart rules over the draft items and total.
func validateDraft(d *Draft) error {
	if d == nil {
		return &InputError{Kind: ErrInvalidOrder, Reason: "order is required"}
	}
	if err := validateStruct(ErrInvalidOrder, d); err != nil {
		return err
	}

	var inErr *InputError
	if err := ValidateCart(&Cart{Items: d.Items, Total: d.Total}); errors.As(err, &inErr) {
		return &InputError{
			Kind:   ErrInvalidOrder,
			Field:  draftField(inErr.Field),
			Reason: inErr.Reason,
		}
	}
	return nil
}

// draftField maps a cart field path onto the draft field names.
func draftField(f string) string {
	switch {
	case strings.HasPrefix(f, "items"):
		return "cartItems" + strings.TrimPrefix(f, "items")
	case f == "total":
		return "totalAmount"
	default:
		return f
	}
}

func validateStruct(kind error, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &InputError{Kind: kind, Reason: err.Error()}
	}

	fe := fieldErrs[0]
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	return &InputError{Kind: kind, Field: field, Reason: reason(fe)}
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must not be empty"
		}
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must not be less than " + fe.Param()
	case "positive":
		return "must be greater than 0"
	case "nonnegative":
		return "must not be negative"
	case "money":
		return fmt.Sprintf("must have at most %d decimal places and be less than %s", moneyScale, maxAmount)
	case "order_status":
		return fmt.Sprintf("has unknown value %q", fe.Value())
	default:
		return "failed " + fe.Tag() + " check"
	}
}
