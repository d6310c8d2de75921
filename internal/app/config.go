package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/order-capture/internal/paypal"
)

// Notification transports.
const (
	TransportLog  = "log"
	TransportAMQP = "amqp"
	TransportSQS  = "sqs"
)

// Config holds the complete application configuration, loadable from
// environment variables (ORDERS_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string        `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string        `usage:"PostgreSQL connection URL (ORDERS_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	StoreTimeout time.Duration `default:"5s" usage:"Timeout of a single order store call" flag:"store-timeout"`
	Payment      PaymentConfig
	Notify       NotifyConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// PaymentConfig configures the PayPal client.
type PaymentConfig struct {
	ClientID     string        `usage:"PayPal client ID (or PAYPAL_CLIENT_ID)" flag:"paypal-client-id"`
	ClientSecret string        `usage:"PayPal client secret (or PAYPAL_CLIENT_SECRET)" flag:"paypal-client-secret"`
	Environment  string        `default:"sandbox" usage:"PayPal environment: sandbox or live" flag:"paypal-env"`
	BaseURL      string        `usage:"Override of the PayPal API root" flag:"paypal-base-url"`
	Currency     string        `default:"USD" usage:"ISO 4217 currency of order amounts"`
	Timeout      time.Duration `default:"5s" usage:"Timeout of a single payment authority call" flag:"paypal-timeout"`
}

// NotifyConfig selects and configures the order summary transport.
type NotifyConfig struct {
	Transport     string        `default:"log" usage:"Notification transport: log, amqp or sqs" flag:"notify-transport"`
	AMQPURL       string        `usage:"RabbitMQ URL for the amqp transport" flag:"amqp-url"`
	Exchange      string        `default:"notifications" usage:"AMQP exchange"`
	RoutingKey    string        `default:"order.placed" usage:"AMQP routing key"`
	SQSQueueURL   string        `usage:"SQS queue URL for the sqs transport" flag:"sqs-queue-url"`
	OperatorEmail string        `usage:"Address receiving a copy of every order summary" flag:"operator-email"`
	Timeout       time.Duration `default:"3s" usage:"Timeout of a single notification"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files and flags, then applies platform defaults and validates it.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{})
}

func loadConfig(base aconfig.Config) (*Config, error) {
	var cfg Config
	base.EnvPrefix = "ORDERS"
	if base.Files == nil {
		base.Files = []string{"config.yaml", "/etc/orders/config.yaml"}
	}
	base.FileDecoders = map[string]aconfig.FileDecoder{
		".yaml": aconfigyaml.New(),
	}
	if err := aconfig.LoaderFor(&cfg, base).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps conventional unprefixed variables (DATABASE_URL,
// PORT, PAYPAL_CLIENT_ID, PAYPAL_CLIENT_SECRET) onto the configuration.
func (c *Config) applyPlatformDefaults() {
	fallback := func(dst *string, env string) {
		if *dst != "" {
			return
		}
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}
	fallback(&c.DatabaseURL, "DATABASE_URL")
	fallback(&c.Payment.ClientID, "PAYPAL_CLIENT_ID")
	fallback(&c.Payment.ClientSecret, "PAYPAL_CLIENT_SECRET")

	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

// minWriteTimeout is the HTTP write deadline when call budgets are small.
const minWriteTimeout = 10 * time.Second

// WriteTimeout is the HTTP write deadline. It covers the slowest request
// path so timed out calls still get their error response: a token fetch
// plus an authority call, or a store call plus a notification.
func (c *Config) WriteTimeout() time.Duration {
	budget := max(2*c.Payment.Timeout, c.StoreTimeout+c.Notify.Timeout)
	return max(minWriteTimeout, budget+5*time.Second)
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set ORDERS_DATABASE_URL or DATABASE_URL")
	}
	if c.Payment.ClientID == "" || c.Payment.ClientSecret == "" {
		return errors.New("payment credentials are required: set PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET")
	}
	u, err := paypal.BaseURL(c.Payment.Environment)
	if err != nil {
		return errors.Wrap(err, "payment environment")
	}
	if c.Payment.BaseURL == "" {
		c.Payment.BaseURL = u
	}

	switch c.Notify.Transport {
	case TransportLog:
	case TransportAMQP:
		if c.Notify.AMQPURL == "" {
			return errors.New("amqp transport requires an AMQP URL")
		}
	case TransportSQS:
		if c.Notify.SQSQueueURL == "" {
			return errors.New("sqs transport requires an SQS queue URL")
		}
	default:
		return errors.Errorf("unknown notification transport %q", c.Notify.Transport)
	}
	return nil
}
