// Package paypal implements order.Gateway over the PayPal Orders v2 API.
package paypal

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/xenking/order-capture/internal/domain/order"
)

const (
	SandboxURL = "https://api-m.sandbox.paypal.com"
	LiveURL    = "https://api-m.paypal.com"

	maxBodySize = 1 << 20
)

// BaseURL returns the API root for the named environment.
func BaseURL(env string) (string, error) {
	switch env {
	case "sandbox", "":
		return SandboxURL, nil
	case "live":
		return LiveURL, nil
	default:
		return "", errors.Errorf("unknown paypal environment %q", env)
	}
}

// Config holds the client settings.
type Config struct {
	ClientID     string
	ClientSecret string
	// BaseURL is the API root, e.g. SandboxURL.
	BaseURL string
	// Currency is the ISO 4217 code sent with every amount.
	Currency string
	// Transport is the base round tripper for both token and API calls.
	// Defaults to http.DefaultTransport.
	Transport http.RoundTripper
	// TokenTimeout bounds access token requests. Defaults to 5s.
	TokenTimeout time.Duration
}

var _ order.Gateway = (*Client)(nil)

// Client is a PayPal Orders v2 client. Access tokens are obtained with the
// client credentials grant and cached until expiry.
type Client struct {
	http     *http.Client
	baseURL  string
	currency string
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("paypal client credentials are required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("invalid paypal base URL %q", cfg.BaseURL)
	}
	if cfg.Currency == "" {
		cfg.Currency = "USD"
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.TokenTimeout <= 0 {
		cfg.TokenTimeout = 5 * time.Second
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenClient := &http.Client{Transport: cfg.Transport, Timeout: cfg.TokenTimeout}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, tokenClient)

	return &Client{
		http:     cc.Client(tokenCtx),
		baseURL:  baseURL,
		currency: cfg.Currency,
	}, nil
}

// CreateAuthorization creates a CAPTURE intent order for the cart.
func (c *Client) CreateAuthorization(ctx context.Context, cart order.Cart) (*order.AuthorizationResult, error) {
	const op = "create authorization"

	body := c.encodeOrder(cart)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, &order.GatewayError{Op: op, Err: err}
	}
	req.Header.Set("PayPal-Request-Id", uuid.NewString())

	id, payload, status, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	return &order.AuthorizationResult{ExternalID: id, Payload: payload, StatusCode: status}, nil
}

// CaptureAuthorization captures the payment of an approved order.
func (c *Client) CaptureAuthorization(ctx context.Context, externalID string) (*order.CaptureResult, error) {
	const op = "capture authorization"

	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, &order.InputError{Kind: order.ErrInvalidArgument, Field: "orderID", Reason: "is required"}
	}

	u := c.baseURL + "/v2/checkout/orders/" + url.PathEscape(externalID) + "/capture"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, http.NoBody)
	if err != nil {
		return nil, &order.GatewayError{Op: op, Err: err}
	}

	id, payload, status, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	if id == "" {
		id = externalID
	}
	return &order.CaptureResult{ExternalID: id, Payload: payload, StatusCode: status}, nil
}

func (c *Client) do(req *http.Request, op string) (id string, payload []byte, status int, _ error) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		gwErr := &order.GatewayError{Op: op, Err: err}
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) && rErr.Response != nil {
			gwErr.StatusCode = rErr.Response.StatusCode
		}
		return "", nil, 0, gwErr
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return "", nil, 0, &order.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "read body")}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", nil, 0, &order.GatewayError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Err:        errors.New(errorMessage(payload, resp.Status)),
		}
	}

	id, err = orderID(payload)
	if err != nil {
		return "", nil, 0, &order.GatewayError{Op: op, StatusCode: resp.StatusCode, Err: errors.Wrap(err, "decode response")}
	}
	return id, payload, resp.StatusCode, nil
}

// encodeOrder renders the Orders v2 create request.
func (c *Client) encodeOrder(cart order.Cart) []byte {
	total := cart.Total.StringFixed(2)

	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("intent")
	e.Str("CAPTURE")
	e.FieldStart("purchase_units")
	e.ArrStart()
	e.ObjStart()

	e.FieldStart("amount")
	e.ObjStart()
	e.FieldStart("currency_code")
	e.Str(c.currency)
	e.FieldStart("value")
	e.Str(total)
	e.FieldStart("breakdown")
	e.ObjStart()
	e.FieldStart("item_total")
	c.encodeMoney(e, total)
	e.ObjEnd()
	e.ObjEnd()

	e.FieldStart("items")
	e.ArrStart()
	for _, it := range cart.Items {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(it.ProductName)
		e.FieldStart("quantity")
		e.Str(strconv.Itoa(it.Quantity))
		e.FieldStart("unit_amount")
		c.encodeMoney(e, it.Price.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()

	e.ObjEnd()
	e.ArrEnd()
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

func (c *Client) encodeMoney(e *jx.Encoder, value string) {
	e.ObjStart()
	e.FieldStart("currency_code")
	e.Str(c.currency)
	e.FieldStart("value")
	e.Str(value)
	e.ObjEnd()
}

// orderID extracts the top-level "id" of an Orders v2 response.
func orderID(payload []byte) (string, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return "", nil
	}
	var id string
	if err := jx.DecodeBytes(payload).ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "id" {
			return d.Skip()
		}
		v, err := d.Str()
		id = v
		return err
	}); err != nil {
		return "", err
	}
	return id, nil
}

// errorMessage summarizes an authority error body, falling back to the
// HTTP status text.
func errorMessage(payload []byte, status string) string {
	var name, message, desc string
	_ = jx.DecodeBytes(payload).ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "name":
			v, err := d.Str()
			name = v
			return err
		case "message":
			v, err := d.Str()
			message = v
			return err
		case "error_description":
			v, err := d.Str()
			desc = v
			return err
		default:
			return d.Skip()
		}
	})
	switch {
	case name != "" && message != "":
		return name + ": " + message
	case message != "":
		return message
	case desc != "":
		return desc
	default:
		return status
	}
}
