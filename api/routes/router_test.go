package routes

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	webhookcontrollers "github.com/synqsell/synqsell-backend/api/controllers/webhooks"
	"github.com/synqsell/synqsell-backend/internal/catalog"
	"github.com/synqsell/synqsell-backend/internal/fulfillmentsync"
	"github.com/synqsell/synqsell-backend/internal/lifecycle"
	shopifywebhook "github.com/synqsell/synqsell-backend/internal/webhooks/shopify"
	"github.com/synqsell/synqsell-backend/pkg/config"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/metrics"
)

const testWebhookSecret = "shpss_router_test"

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubRouting struct {
	calls int
}

func (s *stubRouting) HandleOrderRoutingComplete(context.Context, string, string) (bool, error) {
	s.calls++
	return true, nil
}

type stubFulfillmentSync struct{}

func (stubFulfillmentSync) HandleFulfillmentCreate(context.Context, fulfillmentsync.CreateInput) (bool, error) {
	return true, nil
}

func (stubFulfillmentSync) HandleFulfillmentUpdate(context.Context, fulfillmentsync.UpdateInput) (bool, error) {
	return true, nil
}

type stubLifecycle struct{}

func (stubLifecycle) HandleFulfillmentOrderCancelled(context.Context, string, string) (bool, error) {
	return true, nil
}

func (stubLifecycle) HandleOrderCancelled(context.Context, string, string, []lifecycle.CancelledLine) (bool, error) {
	return true, nil
}

type stubCatalog struct{}

func (stubCatalog) HandleProductUpdate(context.Context, catalog.UpdateInput) (bool, error) {
	return true, nil
}

type memoryIdempotencyStore struct {
	keys map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{keys: make(map[string]string)}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return s.keys[key], nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = "1"
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.keys, key)
	}
	return nil
}

func testRouterConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Env: "test", Port: "0"},
		Shopify: config.ShopifyConfig{WebhookSecret: testWebhookSecret},
	}
}

func newTestRouter(t *testing.T, routing *stubRouting) http.Handler {
	t.Helper()

	guard, err := shopifywebhook.NewIdempotencyGuard(newMemoryIdempotencyStore(), time.Hour, "shopify")
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	reg := prometheus.NewRegistry()
	return NewRouter(
		testRouterConfig(),
		logg,
		stubPinger{},
		stubPinger{},
		webhookcontrollers.Services{
			Routing:     routing,
			Fulfillment: stubFulfillmentSync{},
			Lifecycle:   stubLifecycle{},
			Catalog:     stubCatalog{},
		},
		guard,
		metrics.NewWebhookMetrics(reg),
		reg,
	)
}

func signPayload(body string) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := newTestRouter(t, &stubRouting{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &stubRouting{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterWebhookRequiresSignature(t *testing.T) {
	routing := &stubRouting{}
	router := newTestRouter(t, routing)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify",
		strings.NewReader(`{"fulfillment_order":{"id":"gid://shopify/FulfillmentOrder/1"}}`))
	req.Header.Set("X-Shopify-Topic", "fulfillment_orders/order_routing_complete")
	req.Header.Set("X-Shopify-Shop-Domain", "retailer.myshopify.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, routing.calls)
}

func TestRouterWebhookDispatchesSignedEvent(t *testing.T) {
	routing := &stubRouting{}
	router := newTestRouter(t, routing)
	body := `{"fulfillment_order":{"id":"gid://shopify/FulfillmentOrder/1"}}`

	req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(body))
	req.Header.Set("X-Shopify-Topic", "fulfillment_orders/order_routing_complete")
	req.Header.Set("X-Shopify-Shop-Domain", "retailer.myshopify.com")
	req.Header.Set("X-Shopify-Event-Id", "evt-router")
	req.Header.Set("X-Shopify-Hmac-Sha256", signPayload(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, routing.calls)
}

func TestRouterWebhookDedupsByEventID(t *testing.T) {
	routing := &stubRouting{}
	router := newTestRouter(t, routing)
	body := `{"fulfillment_order":{"id":"gid://shopify/FulfillmentOrder/1"}}`

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/shopify", strings.NewReader(body))
		req.Header.Set("X-Shopify-Topic", "fulfillment_orders/order_routing_complete")
		req.Header.Set("X-Shopify-Shop-Domain", "retailer.myshopify.com")
		req.Header.Set("X-Shopify-Event-Id", "evt-dedup")
		req.Header.Set("X-Shopify-Hmac-Sha256", signPayload(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, 1, routing.calls)
}
