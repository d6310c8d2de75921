//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/order-capture/internal/domain/order"
)

func startPostgres(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_PASSWORD": "orders", "POSTGRES_USER": "orders", "POSTGRES_DB": "orders"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		terminateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		assert.NoError(t, container.Terminate(terminateCtx))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://orders:orders@%s:%s/orders?sslmode=disable", host, port.Port())
}

func TestOrderRepository_Postgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := startPostgres(ctx, t)
	lg := zaptest.NewLogger(t)

	require.NoError(t, RunMigrations(dsn, lg))
	// Re-running is a no-op.
	require.NoError(t, RunMigrations(dsn, lg))

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewOrderRepository(pool)

	o := testOrder()
	id, err := repo.Create(ctx, o)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)
	assert.True(t, decimal.RequireFromString("13.00").Equal(got.Total))
	assert.Equal(t, o.Items[0].ProductName, got.Items[0].ProductName)
	assert.True(t, o.Items[0].Price.Equal(got.Items[0].Price))
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, repo.UpdateStatus(ctx, id, order.StatusCaptured))
	require.NoError(t, repo.UpdateStatus(ctx, id, order.StatusPending))
	got, err = repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, got.Status)

	orders, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	require.NoError(t, repo.Delete(ctx, id))
	_, err = repo.Get(ctx, id)
	require.ErrorIs(t, err, order.ErrNotFound)
	require.ErrorIs(t, repo.UpdateStatus(ctx, id, order.StatusFailed), order.ErrNotFound)
}
