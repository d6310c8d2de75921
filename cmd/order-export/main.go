// Command order-export writes persisted orders to a gzip-compressed
// newline-delimited JSON file.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/order-capture/internal/domain/order"
	"github.com/xenking/order-capture/internal/storage/postgres"
)

func main() {
	var (
		databaseURL string
		out         string
		status      string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&out, "out", "orders.ndjson.gz", "output file")
	flag.StringVar(&status, "status", "", "export only orders with this status")
	flag.Parse()

	lg, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		lg.Fatal("Database URL is required: set --database-url or DATABASE_URL")
	}
	if s := order.Status(status); s != "" && !s.Valid() {
		lg.Fatal("Unknown status", zap.String("status", status))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, lg, databaseURL, out, order.Status(status)); err != nil {
		lg.Error("Order export failed", zap.Error(err))
		cancel()
		_ = lg.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, lg *zap.Logger, databaseURL, out string, status order.Status) error {
	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	f, err := os.Create(out)
	if err != nil {
		return errors.Wrapf(err, "create %s", out)
	}

	n, err := export(ctx, lg, postgres.NewOrderRepository(pool), f, status)
	if closeErr := f.Close(); closeErr != nil && err == nil {
		err = errors.Wrapf(closeErr, "close %s", out)
	}
	if err != nil {
		_ = os.Remove(out)
		return err
	}

	lg.Info("Orders exported", zap.Int("count", n), zap.String("file", out))
	return nil
}
