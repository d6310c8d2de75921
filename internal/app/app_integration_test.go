//go:build integration

package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"
)

const (
	createdPayload  = `{"id":"5O190127TN364715T","status":"CREATED"}`
	capturedPayload = `{"id":"5O190127TN364715T","status":"COMPLETED"}`
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

// startAuthority serves the token endpoint and the Orders API paths used by
// the payment client.
func startAuthority(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok","token_type":"Bearer","expires_in":32400}`)
	})
	mux.HandleFunc("POST /v2/checkout/orders", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, createdPayload)
	})
	mux.HandleFunc("POST /v2/checkout/orders/{id}/capture", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, capturedPayload)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func startAPI(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	lg := zaptest.NewLogger(t)
	ctx = zctx.Base(ctx, lg)

	cfg := &Config{
		Addr:         "127.0.0.1:0",
		DatabaseURL:  startPostgres(ctx, t),
		StoreTimeout: 5 * time.Second,
		Payment: PaymentConfig{
			ClientID:     "client",
			ClientSecret: "secret",
			Environment:  "sandbox",
			BaseURL:      startAuthority(t).URL,
			Currency:     "USD",
			Timeout:      5 * time.Second,
		},
		Notify:    NotifyConfig{Transport: TransportLog, Timeout: time.Second},
		RateLimit: RateLimitConfig{Max: 1000, Window: time.Minute},
		CORS:      CORSConfig{Origins: []string{"*"}},
	}
	require.NoError(t, cfg.validate())

	srv, err := newServer(ctx, lg, tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider(), cfg)
	require.NoError(t, err)
	t.Cleanup(srv.close)

	srv.health.Start(ctx, 100*time.Millisecond)
	srv.health.SetReady(true)
	t.Cleanup(srv.health.Stop)

	api := httptest.NewServer(srv.http.Handler)
	t.Cleanup(api.Close)
	return api.URL
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, r)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(data)
}

func field(t *testing.T, body, name string) string {
	t.Helper()
	var v string
	require.NoError(t, jx.DecodeStr(body).Obj(func(d *jx.Decoder, key string) error {
		if key != name {
			return d.Skip()
		}
		var err error
		v, err = d.Str()
		return err
	}))
	return v
}

func TestAPI(t *testing.T) {
	baseURL := startAPI(t)

	t.Run("Probes", func(t *testing.T) {
		require.Eventually(t, func() bool {
			resp, _ := do(t, http.MethodGet, baseURL+"/readyz", "")
			return resp.StatusCode == http.StatusOK
		}, 10*time.Second, 100*time.Millisecond)

		resp, body := do(t, http.MethodGet, baseURL+"/livez", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, body)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("Middleware", func(t *testing.T) {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions, baseURL+"/api/direct-orders", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://example.com")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
		assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))

		req, err = http.NewRequestWithContext(context.Background(), http.MethodGet, baseURL+"/livez", nil)
		require.NoError(t, err)
		req.Header.Set("X-Request-ID", "custom-request-id-12345")

		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, "custom-request-id-12345", resp.Header.Get("X-Request-ID"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
	})

	t.Run("AuthorizeAndCapture", func(t *testing.T) {
		resp, body := do(t, http.MethodPost, baseURL+"/api/orders",
			`{"cart":{"total":6.00,"items":[{"productName":"A","quantity":2,"price":3.00}]}}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		assert.Equal(t, createdPayload, body)

		resp, body = do(t, http.MethodPost, baseURL+"/api/orders/"+field(t, body, "id")+"/capture", "")
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		assert.Equal(t, capturedPayload, body)
	})

	t.Run("InvalidCart", func(t *testing.T) {
		resp, body := do(t, http.MethodPost, baseURL+"/api/orders", `{"cart":{"total":0,"items":[]}}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "invalid cart", field(t, body, "error"))
	})

	t.Run("DirectOrderLifecycle", func(t *testing.T) {
		resp, body := do(t, http.MethodPost, baseURL+"/api/direct-orders", `{
			"user": {"email":"jane@example.com","name":"Jane","city":"Istanbul","district":"Kadikoy","phoneNumber":"+905551112233"},
			"cartItems": [{"productName":"A","quantity":2,"price":3.00}],
			"totalAmount": 6.00,
			"paymentMethod": "cash_on_delivery",
			"externalAuthorizationId": "5O190127TN364715T"
		}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode, body)
		id := field(t, body, "orderId")
		require.NotEmpty(t, id)

		resp, body = do(t, http.MethodGet, baseURL+"/api/direct-orders/"+id, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.Equal(t, "pending", field(t, body, "order_status"))
		assert.Equal(t, "5O190127TN364715T", field(t, body, "externalAuthorizationId"))
		assert.Contains(t, body, `"totalAmount":6`)

		resp, body = do(t, http.MethodPut, baseURL+"/api/direct-orders/"+id, `{"orderStatus":"captured"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.JSONEq(t, `{"updatedStatus":"captured"}`, body)

		resp, body = do(t, http.MethodGet, baseURL+"/api/direct-orders", "")
		require.Equal(t, http.StatusOK, resp.StatusCode, body)
		assert.Contains(t, body, id)

		resp, body = do(t, http.MethodDelete, baseURL+"/api/direct-orders/"+id, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, body)

		resp, _ = do(t, http.MethodGet, baseURL+"/api/direct-orders/"+id, "")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
