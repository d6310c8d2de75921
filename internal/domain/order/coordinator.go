package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
)

// Flow selects the order placement variant.
type Flow uint8

const (
	// FlowGateway opens a payment authorization and creates no local record.
	FlowGateway Flow = iota + 1
	// FlowDirect persists the order first and then notifies.
	FlowDirect
)

func (f Flow) String() string {
	switch f {
	case FlowGateway:
		return "gateway"
	case FlowDirect:
		return "direct"
	default:
		return fmt.Sprintf("flow(%d)", uint8(f))
	}
}

// PlaceOrderRequest is the input of PlaceOrder. Cart is read for
// FlowGateway, Draft for FlowDirect.
type PlaceOrderRequest struct {
	Flow  Flow
	Cart  *Cart
	Draft *Draft
}

// PlaceOrderResult is the normalized outcome of PlaceOrder.
type PlaceOrderResult struct {
	Flow Flow

	// Authorization is set for FlowGateway.
	Authorization *AuthorizationResult

	// OrderID and Status are set for FlowDirect once the order is persisted.
	OrderID string
	Status  Status
	// NotificationErr is set when the order was persisted but its summary
	// could not be delivered.
	NotificationErr *NotificationError
}

// Config tunes the Coordinator.
type Config struct {
	GatewayTimeout time.Duration
	StoreTimeout   time.Duration
	NotifyTimeout  time.Duration
	// Operator receives a copy of every order summary when set.
	Operator string

	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

func (c *Config) setDefaults() {
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = 5 * time.Second
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 5 * time.Second
	}
	if c.NotifyTimeout <= 0 {
		c.NotifyTimeout = 3 * time.Second
	}
	if c.MeterProvider == nil {
		c.MeterProvider = metricnoop.NewMeterProvider()
	}
	if c.TracerProvider == nil {
		c.TracerProvider = tracenoop.NewTracerProvider()
	}
}

type coordinatorMetrics struct {
	placed          metric.Int64Counter
	captures        metric.Int64Counter
	notifications   metric.Int64Counter
	gatewayDuration metric.Float64Histogram
}

// Coordinator sequences validation, the payment authority, the store and
// notifications, and owns the order status state machine.
//
// It holds no cross-request state: concurrent updates of the same order are
// last-write-wins at the store.
type Coordinator struct {
	gateway  Gateway
	orders   Repository
	notifier Notifier
	cfg      Config

	tracer  trace.Tracer
	metrics coordinatorMetrics
}

// NewCoordinator creates a Coordinator over the given collaborators.
func NewCoordinator(gateway Gateway, orders Repository, notifier Notifier, cfg Config) (*Coordinator, error) {
	cfg.setDefaults()

	meter := cfg.MeterProvider.Meter("orders")
	var (
		m   coordinatorMetrics
		err error
	)
	if m.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Order placements by flow and result"),
	); err != nil {
		return nil, errors.Wrap(err, "placed counter")
	}
	if m.captures, err = meter.Int64Counter("orders.captures",
		metric.WithDescription("Capture requests by result"),
	); err != nil {
		return nil, errors.Wrap(err, "captures counter")
	}
	if m.notifications, err = meter.Int64Counter("orders.notifications",
		metric.WithDescription("Order summary notifications by result"),
	); err != nil {
		return nil, errors.Wrap(err, "notifications counter")
	}
	if m.gatewayDuration, err = meter.Float64Histogram("orders.gateway.duration",
		metric.WithDescription("Payment authority call duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "gateway duration histogram")
	}

	return &Coordinator{
		gateway:  gateway,
		orders:   orders,
		notifier: notifier,
		cfg:      cfg,
		tracer:   cfg.TracerProvider.Tracer("orders"),
		metrics:  m,
	}, nil
}

// PlaceOrder runs one of the placement flows.
func (c *Coordinator) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := c.tracer.Start(ctx, "PlaceOrder",
		trace.WithAttributes(attribute.Stringer("order.flow", req.Flow)),
	)
	defer func() { endSpan(span, rerr) }()

	var (
		res *PlaceOrderResult
		err error
	)
	switch req.Flow {
	case FlowGateway:
		res, err = c.placeGateway(ctx, req.Cart)
	case FlowDirect:
		res, err = c.placeDirect(ctx, req.Draft)
	default:
		err = &InputError{Kind: ErrInvalidArgument, Field: "flow", Reason: fmt.Sprintf("has unknown value %s", req.Flow)}
	}

	c.metrics.placed.Add(ctx, 1, metric.WithAttributes(
		attribute.Stringer("flow", req.Flow),
		attribute.String("result", resultOf(err)),
	))
	return res, err
}

// Authorize validates the cart and opens a payment authorization.
func (c *Coordinator) Authorize(ctx context.Context, cart *Cart) (*AuthorizationResult, error) {
	res, err := c.PlaceOrder(ctx, PlaceOrderRequest{Flow: FlowGateway, Cart: cart})
	if err != nil {
		return nil, err
	}
	return res.Authorization, nil
}

// Place persists a direct order and notifies about it.
func (c *Coordinator) Place(ctx context.Context, d *Draft) (*PlaceOrderResult, error) {
	return c.PlaceOrder(ctx, PlaceOrderRequest{Flow: FlowDirect, Draft: d})
}

func (c *Coordinator) placeGateway(ctx context.Context, cart *Cart) (*PlaceOrderResult, error) {
	lg := zctx.From(ctx).With(zap.Stringer("flow", FlowGateway))

	if err := ValidateCart(cart); err != nil {
		lg.Info("Cart rejected", zap.String("stage", "validating"), zap.Error(err))
		return nil, err
	}

	callCtx, cancel := c.bounded(ctx, c.cfg.GatewayTimeout)
	defer cancel()

	start := time.Now()
	auth, err := c.gateway.CreateAuthorization(callCtx, *cart)
	c.observeGateway(ctx, "create_authorization", start)
	if err != nil {
		err = gatewayErr(callCtx, "create authorization", err)
		lg.Error("Authorization failed", zap.String("stage", "authorizing"), zap.Error(err))
		return nil, err
	}

	lg.Info("Authorization created",
		zap.String("external_id", auth.ExternalID),
		zap.Int("status_code", auth.StatusCode),
	)
	return &PlaceOrderResult{Flow: FlowGateway, Authorization: auth}, nil
}

func (c *Coordinator) placeDirect(ctx context.Context, d *Draft) (*PlaceOrderResult, error) {
	lg := zctx.From(ctx).With(zap.Stringer("flow", FlowDirect))

	if err := validateDraft(d); err != nil {
		lg.Info("Order rejected", zap.String("stage", "validating"), zap.Error(err))
		return nil, err
	}

	status := d.Status
	if status == "" {
		status = StatusPending
	}
	o := &Order{
		Customer:                *d.Customer,
		Items:                   append([]Item(nil), d.Items...),
		Total:                   d.Total,
		PaymentMethod:           d.PaymentMethod,
		Status:                  status,
		ExternalAuthorizationID: d.ExternalAuthorizationID,
	}

	storeCtx, cancel := c.bounded(ctx, c.cfg.StoreTimeout)
	id, err := c.orders.Create(storeCtx, o)
	cancel()
	if err != nil {
		err = &PersistenceError{Op: "create", Err: err}
		lg.Error("Order persistence failed", zap.String("stage", "persisting"), zap.Error(err))
		return nil, err
	}
	o.ID = id
	lg = lg.With(zap.String("order_id", id))
	lg.Info("Order persisted", zap.Stringer("total", o.Total), zap.String("status", string(status)))

	res := &PlaceOrderResult{Flow: FlowDirect, OrderID: id, Status: status}
	if nErr := c.notify(ctx, o); nErr != nil {
		lg.Warn("Order summary not delivered", zap.String("stage", "notifying"), zap.Error(nErr))
		res.NotificationErr = nErr
	}
	return res, nil
}

func (c *Coordinator) notify(ctx context.Context, o *Order) *NotificationError {
	notifyCtx, cancel := c.bounded(ctx, c.cfg.NotifyTimeout)
	defer cancel()

	err := c.notifier.Notify(notifyCtx, NewSummary(o, c.cfg.Operator))

	result := "ok"
	if err != nil {
		result = "failed"
	}
	c.metrics.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))

	if err != nil {
		return &NotificationError{OrderID: o.ID, Err: err}
	}
	return nil
}

// Capture finalizes a previously created authorization. Repeated captures
// are passed through to the payment authority.
func (c *Coordinator) Capture(ctx context.Context, externalID string) (_ *CaptureResult, rerr error) {
	ctx, span := c.tracer.Start(ctx, "Capture")
	defer func() { endSpan(span, rerr) }()

	res, err := c.capture(ctx, externalID)
	c.metrics.captures.Add(ctx, 1, metric.WithAttributes(attribute.String("result", resultOf(err))))
	return res, err
}

func (c *Coordinator) capture(ctx context.Context, externalID string) (*CaptureResult, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, &InputError{Kind: ErrInvalidArgument, Field: "orderID", Reason: "is required"}
	}
	lg := zctx.From(ctx).With(zap.String("external_id", externalID))

	callCtx, cancel := c.bounded(ctx, c.cfg.GatewayTimeout)
	defer cancel()

	start := time.Now()
	res, err := c.gateway.CaptureAuthorization(callCtx, externalID)
	c.observeGateway(ctx, "capture_authorization", start)
	if err != nil {
		err = gatewayErr(callCtx, "capture authorization", err)
		lg.Error("Capture failed", zap.Error(err))
		return nil, err
	}

	lg.Info("Authorization captured", zap.Int("status_code", res.StatusCode))
	return res, nil
}

// Get returns a persisted order.
func (c *Coordinator) Get(ctx context.Context, id string) (*Order, error) {
	if err := requireID(id); err != nil {
		return nil, err
	}

	storeCtx, cancel := c.bounded(ctx, c.cfg.StoreTimeout)
	defer cancel()

	o, err := c.orders.Get(storeCtx, id)
	if err != nil {
		return nil, storeErr("get", err)
	}
	return o, nil
}

// List returns all persisted orders.
func (c *Coordinator) List(ctx context.Context) ([]Order, error) {
	storeCtx, cancel := c.bounded(ctx, c.cfg.StoreTimeout)
	defer cancel()

	orders, err := c.orders.List(storeCtx)
	if err != nil {
		return nil, storeErr("list", err)
	}
	return orders, nil
}

// UpdateStatus overwrites the order status. Any known status may replace any
// other; transitions are not checked for direction.
func (c *Coordinator) UpdateStatus(ctx context.Context, id string, status Status) error {
	if err := requireID(id); err != nil {
		return err
	}
	if status == "" {
		return &InputError{Kind: ErrInvalidArgument, Field: "orderStatus", Reason: "is required"}
	}
	if !status.Valid() {
		return &InputError{Kind: ErrInvalidArgument, Field: "orderStatus", Reason: fmt.Sprintf("has unknown value %q", status)}
	}

	storeCtx, cancel := c.bounded(ctx, c.cfg.StoreTimeout)
	defer cancel()

	if err := c.orders.UpdateStatus(storeCtx, id, status); err != nil {
		return storeErr("update status", err)
	}
	zctx.From(ctx).Info("Order status updated",
		zap.String("order_id", id),
		zap.String("status", string(status)),
	)
	return nil
}

// Delete removes a persisted order.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := requireID(id); err != nil {
		return err
	}

	storeCtx, cancel := c.bounded(ctx, c.cfg.StoreTimeout)
	defer cancel()

	if err := c.orders.Delete(storeCtx, id); err != nil {
		return storeErr("delete", err)
	}
	zctx.From(ctx).Info("Order deleted", zap.String("order_id", id))
	return nil
}

// bounded derives a context for an external call. Caller cancellation does
// not abort the call; only the timeout does.
func (c *Coordinator) bounded(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), d)
}

func (c *Coordinator) observeGateway(ctx context.Context, op string, start time.Time) {
	c.metrics.gatewayDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("op", op)),
	)
}

func requireID(id string) error {
	if strings.TrimSpace(id) == "" {
		return &InputError{Kind: ErrInvalidArgument, Field: "id", Reason: "is required"}
	}
	return nil
}

func gatewayErr(callCtx context.Context, op string, err error) error {
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		gwErr = &GatewayError{Op: op, Err: err}
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		gwErr.Timeout = true
	}
	return gwErr
}

func storeErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func resultOf(err error) string {
	var (
		inErr *InputError
		gwErr *GatewayError
		dbErr *PersistenceError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &inErr):
		return "invalid"
	case errors.As(err, &gwErr):
		return "gateway_error"
	case errors.As(err, &dbErr):
		return "persistence_error"
	default:
		return "error"
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
