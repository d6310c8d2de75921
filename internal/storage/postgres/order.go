package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xenking/order-capture/internal/domain/order"
)

// DBPool is the subset of *pgxpool.Pool used by the repository.
type DBPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const orderColumns = `id, email, username, city, district, phone_number,
	payment_method, total_amount, order_status, cart_items,
	COALESCE(external_authorization_id, ''), created_at, updated_at`

const (
	createOrderSQL = `INSERT INTO orders (id, email, username, city, district, phone_number,
	payment_method, total_amount, order_status, cart_items, external_authorization_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))`

	getOrderSQL     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listOrdersSQL   = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC, id`
	scanOrdersSQL   = `SELECT ` + orderColumns + ` FROM orders
	WHERE $1::text = '' OR order_status = $1 ORDER BY created_at, id`
	updateStatusSQL = `UPDATE orders SET order_status = $2, updated_at = now() WHERE id = $1`
	deleteOrderSQL  = `DELETE FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool DBPool
	// newID is replaced in tests.
	newID func() string
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool DBPool) *OrderRepository {
	return &OrderRepository{pool: pool, newID: uuid.NewString}
}

// Create persists a new order under a fresh UUID. The items are serialized
// to JSON for the JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (string, error) {
	var e jx.Encoder
	order.EncodeItems(&e, o.Items)

	status := o.Status
	if status == "" {
		status = order.StatusPending
	}

	id := r.newID()
	if _, err := r.pool.Exec(ctx, createOrderSQL,
		id,
		o.Customer.Email,
		o.Customer.Name,
		o.Customer.City,
		o.Customer.District,
		o.Customer.PhoneNumber,
		o.PaymentMethod,
		o.Total,
		string(status),
		e.Bytes(),
		o.ExternalAuthorizationID,
	); err != nil {
		return "", errors.Wrap(err, "insert order")
	}
	return id, nil
}

// Get returns the order with the given id.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, getOrderSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(order.ErrNotFound, "get %q", id)
		}
		return nil, errors.Wrapf(err, "get %q", id)
	}
	return o, nil
}

// List returns all orders, newest first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL)
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	orders := make([]order.Order, 0, 16)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate orders")
	}
	return orders, nil
}

// Each calls fn for every order with the given status, oldest first, without
// buffering the result set. An empty status matches all orders. Iteration
// stops at the first error returned by fn.
func (r *OrderRepository) Each(ctx context.Context, status order.Status, fn func(*order.Order) error) error {
	rows, err := r.pool.Query(ctx, scanOrdersSQL, string(status))
	if err != nil {
		return errors.Wrap(err, "query orders")
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return errors.Wrap(err, "scan order")
		}
		if err := fn(o); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "iterate orders")
	}
	return nil
}

// UpdateStatus overwrites the order status unconditionally.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateStatusSQL, id, string(status))
	if err != nil {
		return errors.Wrapf(err, "update %q", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrNotFound, "update %q", id)
	}
	return nil
}

// Delete removes the order with the given id.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return errors.Wrapf(err, "delete %q", id)
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(order.ErrNotFound, "delete %q", id)
	}
	return nil
}

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
		items  []byte
	)
	if err := row.Scan(
		&o.ID,
		&o.Customer.Email,
		&o.Customer.Name,
		&o.Customer.City,
		&o.Customer.District,
		&o.Customer.PhoneNumber,
		&o.PaymentMethod,
		&o.Total,
		&status,
		&items,
		&o.ExternalAuthorizationID,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	o.Status = order.Status(status)

	decoded, err := order.DecodeItems(jx.DecodeBytes(items))
	if err != nil {
		return nil, errors.Wrapf(err, "decode items of %q", o.ID)
	}
	o.Items = decoded
	return &o, nil
}
