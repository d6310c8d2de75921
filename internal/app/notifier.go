package app

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xenking/order-capture/internal/domain/order"
	"github.com/xenking/order-capture/internal/notify"
	"github.com/xenking/order-capture/pkg/health"
)

// newNotifier builds the configured transport and registers its readiness
// check. The returned close function releases transport resources.
func newNotifier(ctx context.Context, lg *zap.Logger, cfg NotifyConfig, probes *health.Health) (order.Notifier, func(), error) {
	switch cfg.Transport {
	case TransportAMQP:
		conn, err := amqp.DialConfig(cfg.AMQPURL, amqp.Config{
			Dial: amqp.DefaultDial(10 * time.Second),
		})
		if err != nil {
			return nil, nil, errors.Wrap(err, "dial amqp")
		}
		n, err := notify.DialAMQP(conn, cfg.Exchange, cfg.RoutingKey)
		if err != nil {
			_ = conn.Close()
			return nil, nil, errors.Wrap(err, "open amqp notifier")
		}
		probes.AddReadinessCheck("amqp", time.Second, health.ConnectionCheck(conn))
		lg.Info("Notifications via AMQP",
			zap.String("exchange", cfg.Exchange),
			zap.String("routing_key", cfg.RoutingKey),
		)
		return n, func() {
			if err := n.Close(); err != nil {
				lg.Warn("Close amqp channel", zap.Error(err))
			}
			if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
				lg.Warn("Close amqp connection", zap.Error(err))
			}
		}, nil

	case TransportSQS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, errors.Wrap(err, "load aws config")
		}
		lg.Info("Notifications via SQS", zap.String("queue_url", cfg.SQSQueueURL))
		return notify.NewSQS(sqs.NewFromConfig(awsCfg), cfg.SQSQueueURL), func() {}, nil

	default:
		lg.Info("Notifications via log")
		return notify.Log{}, func() {}, nil
	}
}
