package main

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/order-capture/internal/domain/order"
)

const (
	bufferedOrders = 256
	progressEvery  = 10_000
)

// source streams stored orders. Implemented by *postgres.OrderRepository.
type source interface {
	Each(ctx context.Context, status order.Status, fn func(*order.Order) error) error
}

// export streams orders from src into w as gzip NDJSON and returns the
// number of records written. The reader and the writer run concurrently.
func export(ctx context.Context, lg *zap.Logger, src source, w io.Writer, status order.Status) (int, error) {
	orders := make(chan *order.Order, bufferedOrders)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(orders)
		return src.Each(ctx, status, func(o *order.Order) error {
			select {
			case orders <- o:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	})

	var written int
	g.Go(func() error {
		gz := pgzip.NewWriter(w)
		var e jx.Encoder
		for o := range orders {
			e.Reset()
			o.Encode(&e)
			if _, err := gz.Write(append(e.Bytes(), '\n')); err != nil {
				_ = gz.Close()
				return errors.Wrap(err, "write record")
			}
			if written++; written%progressEvery == 0 {
				lg.Info("Export progress", zap.Int("written", written))
			}
		}
		if err := gz.Close(); err != nil {
			return errors.Wrap(err, "flush gzip")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return written, err
	}
	return written, nil
}
