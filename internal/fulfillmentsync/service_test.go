package fulfillmentsync

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/internal/sessions"
	"github.com/synqsell/synqsell-backend/internal/settlement"
	"github.com/synqsell/synqsell-backend/pkg/db/models"
	"github.com/synqsell/synqsell-backend/pkg/enums"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/shopify"
)

func setupSyncTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  shop TEXT NOT NULL UNIQUE,
  state TEXT NOT NULL,
  is_online INTEGER NOT NULL DEFAULT 0,
  scope TEXT,
  expires DATETIME,
  access_token TEXT NOT NULL,
  user_id INTEGER,
  first_name TEXT,
  last_name TEXT,
  email TEXT,
  account_owner INTEGER NOT NULL DEFAULT 0,
  locale TEXT,
  collaborator INTEGER,
  email_verified INTEGER
);`,
		`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  currency TEXT NOT NULL DEFAULT 'USD',
  shopify_retailer_fulfillment_order_id TEXT NOT NULL,
  shopify_supplier_order_id TEXT NOT NULL,
  retailer_id TEXT NOT NULL,
  supplier_id TEXT NOT NULL,
  shipping_cost NUMERIC NOT NULL DEFAULT 0,
  payment_status TEXT NOT NULL DEFAULT 'INCOMPLETE',
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  retailer_shopify_variant_id TEXT NOT NULL,
  supplier_shopify_variant_id TEXT NOT NULL,
  retail_price_per_unit NUMERIC NOT NULL,
  amount_payable_per_unit NUMERIC NOT NULL,
  shopify_retailer_order_line_item_id TEXT NOT NULL,
  shopify_supplier_order_line_item_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  quantity_fulfilled INTEGER NOT NULL DEFAULT 0,
  quantity_paid INTEGER NOT NULL DEFAULT 0,
  quantity_cancelled INTEGER NOT NULL DEFAULT 0,
  price_list_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS fulfillments (
  id TEXT PRIMARY KEY,
  supplier_shopify_fulfillment_id TEXT NOT NULL,
  retailer_shopify_fulfillment_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  created_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type syncGateway struct {
	mu            sync.Mutex
	calls         []string
	details       *shopify.FulfillmentDetails
	foLines       []shopify.FulfillmentOrderLineItem
	createdInputs []shopify.CreateFulfillmentInput
	cancelled     []string
	createSeq     int
}

func (g *syncGateway) record(call string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
}

func (g *syncGateway) FulfillmentDetails(_ context.Context, _ shopify.Store, _ string) (*shopify.FulfillmentDetails, error) {
	g.record("fulfillment_details")
	return g.details, nil
}

func (g *syncGateway) FulfillmentOrderLineItems(_ context.Context, _ shopify.Store, _ string) ([]shopify.FulfillmentOrderLineItem, error) {
	g.record("fulfillment_order_line_items")
	return g.foLines, nil
}

func (g *syncGateway) CreateFulfillment(_ context.Context, store shopify.Store, input shopify.CreateFulfillmentInput) (string, error) {
	g.record("create_fulfillment:" + store.Shop)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createdInputs = append(g.createdInputs, input)
	g.createSeq++
	return fmt.Sprintf("gid://shopify/Fulfillment/mirror-%d", g.createSeq), nil
}

func (g *syncGateway) CancelFulfillment(_ context.Context, store shopify.Store, fulfillmentID string) error {
	g.record("cancel_fulfillment:" + store.Shop)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, fulfillmentID)
	return nil
}

type fakeSettler struct {
	calls []struct {
		orderID       string
		fulfillmentID string
		lines         []settlement.DeliveredLine
	}
}

func (f *fakeSettler) HandleDelivered(_ context.Context, _, shopifySupplierOrderID, supplierShopifyFulfillmentID string, lines []settlement.DeliveredLine) (bool, error) {
	f.calls = append(f.calls, struct {
		orderID       string
		fulfillmentID string
		lines         []settlement.DeliveredLine
	}{shopifySupplierOrderID, supplierShopifyFulfillmentID, lines})
	return true, nil
}

type syncFixture struct {
	db      *gorm.DB
	gw      *syncGateway
	settler *fakeSettler
	order   *models.Order
	line    *models.OrderLineItem
}

// newSyncFixture seeds a supplier/retailer session pair and one mirrored
// order with a single line item.
func newSyncFixture(t *testing.T, tag string, trackingMinEntries int) (*syncFixture, Service) {
	t.Helper()

	db := setupSyncTestDB(t)
	for _, role := range []string{"supplier", "retailer"} {
		id := role + "-" + tag
		require.NoError(t, db.Create(&models.Session{
			ID: id, Shop: id + ".myshopify.com", State: "state", AccessToken: "shpat_" + id,
		}).Error)
	}

	order := &models.Order{
		ID:                                uuid.New(),
		Currency:                          "USD",
		ShopifyRetailerFulfillmentOrderID: "gid://shopify/FulfillmentOrder/" + tag,
		ShopifySupplierOrderID:            "gid://shopify/Order/" + tag,
		RetailerID:                        "retailer-" + tag,
		SupplierID:                        "supplier-" + tag,
		ShippingCost:                      decimal.RequireFromString("10.00"),
		PaymentStatus:                     enums.OrderPaymentStatusIncomplete,
	}
	require.NoError(t, db.Create(order).Error)

	line := &models.OrderLineItem{
		ID:                             uuid.New(),
		OrderID:                        order.ID,
		RetailerShopifyVariantID:       "ret-var-" + tag,
		SupplierShopifyVariantID:       "sup-var-" + tag,
		RetailPricePerUnit:             decimal.RequireFromString("60.00"),
		AmountPayablePerUnit:           decimal.RequireFromString("45.00"),
		ShopifyRetailerOrderLineItemID: "gid://shopify/LineItem/ret-" + tag,
		ShopifySupplierOrderLineItemID: "gid://shopify/LineItem/sup-" + tag,
		Quantity:                       3,
		PriceListID:                    uuid.New(),
	}
	require.NoError(t, db.Create(line).Error)

	gw := &syncGateway{}
	stl := &fakeSettler{}
	logg := logger.New(logger.Options{ServiceName: "fulfillmentsync-test"})
	svc, err := NewService(NewRepository(db), sessions.NewRepository(db), gw, stl, logg, trackingMinEntries)
	require.NoError(t, err)

	return &syncFixture{db: db, gw: gw, settler: stl, order: order, line: line}, svc
}

func trackingEntry(company, number, url string) shopify.TrackingInfo {
	info := shopify.TrackingInfo{}
	if company != "" {
		info.Company = &company
	}
	if number != "" {
		info.Number = &number
	}
	if url != "" {
		info.URL = &url
	}
	return info
}

func TestHandleFulfillmentCreateMirrorsToRetailer(t *testing.T) {
	f, svc := newSyncFixture(t, "create", 1)
	f.gw.details = &shopify.FulfillmentDetails{
		Tracking: []shopify.TrackingInfo{trackingEntry("UPS", "1Z999", "https://ups.example/1Z999")},
		LineItems: []shopify.FulfillmentLineItem{
			{Quantity: 2, LineItemID: f.line.ShopifySupplierOrderLineItemID, VariantID: f.line.SupplierShopifyVariantID},
		},
	}
	f.gw.foLines = []shopify.FulfillmentOrderLineItem{
		{ID: "gid://shopify/FulfillmentOrderLineItem/create-1", Quantity: 3,
			LineItemID: f.line.ShopifyRetailerOrderLineItemID, VariantID: f.line.RetailerShopifyVariantID},
	}

	processed, err := svc.HandleFulfillmentCreate(context.Background(), CreateInput{
		Shop:          "supplier-create.myshopify.com",
		FulfillmentID: "gid://shopify/Fulfillment/create-supplier",
		OrderID:       f.order.ShopifySupplierOrderID,
	})
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, f.gw.createdInputs, 1)
	input := f.gw.createdInputs[0]
	assert.Equal(t, f.order.ShopifyRetailerFulfillmentOrderID, input.FulfillmentOrderID)
	require.Len(t, input.LineItems, 1)
	assert.Equal(t, "gid://shopify/FulfillmentOrderLineItem/create-1", input.LineItems[0].ID)
	assert.Equal(t, 2, input.LineItems[0].Quantity)
	assert.True(t, input.NotifyCustomer)
	require.Len(t, input.Tracking, 1)

	var pair models.Fulfillment
	require.NoError(t, f.db.Where("order_id = ?", f.order.ID).First(&pair).Error)
	assert.Equal(t, "gid://shopify/Fulfillment/create-supplier", pair.SupplierShopifyFulfillmentID)
	assert.Equal(t, "gid://shopify/Fulfillment/mirror-1", pair.RetailerShopifyFulfillmentID)
}

func TestHandleFulfillmentCreateTrackingBelowThreshold(t *testing.T) {
	f, svc := newSyncFixture(t, "threshold", 2)
	f.gw.details = &shopify.FulfillmentDetails{
		Tracking: []shopify.TrackingInfo{trackingEntry("UPS", "1Z111", "")},
		LineItems: []shopify.FulfillmentLineItem{
			{Quantity: 1, LineItemID: f.line.ShopifySupplierOrderLineItemID},
		},
	}
	f.gw.foLines = []shopify.FulfillmentOrderLineItem{
		{ID: "gid://shopify/FulfillmentOrderLineItem/threshold-1", Quantity: 3,
			LineItemID: f.line.ShopifyRetailerOrderLineItemID},
	}

	processed, err := svc.HandleFulfillmentCreate(context.Background(), CreateInput{
		Shop:          "supplier-threshold.myshopify.com",
		FulfillmentID: "gid://shopify/Fulfillment/threshold-supplier",
		OrderID:       f.order.ShopifySupplierOrderID,
	})
	require.NoError(t, err)
	assert.True(t, processed)

	// A single tracking entry stays below the configured minimum of two.
	require.Len(t, f.gw.createdInputs, 1)
	assert.Empty(t, f.gw.createdInputs[0].Tracking)
}

func TestHandleFulfillmentCreateUnknownOrderNoOp(t *testing.T) {
	f, svc := newSyncFixture(t, "create-miss", 1)

	processed, err := svc.HandleFulfillmentCreate(context.Background(), CreateInput{
		Shop:          "supplier-create-miss.myshopify.com",
		FulfillmentID: "gid://shopify/Fulfillment/create-miss",
		OrderID:       "gid://shopify/Order/not-ours",
	})
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, f.gw.calls)

	var count int64
	require.NoError(t, f.db.Model(&models.Fulfillment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestHandleFulfillmentUpdateSupplierCancelled(t *testing.T) {
	f, svc := newSyncFixture(t, "sup-cancel", 1)
	pair := &models.Fulfillment{
		ID:                           uuid.New(),
		SupplierShopifyFulfillmentID: "gid://shopify/Fulfillment/sup-cancel-supplier",
		RetailerShopifyFulfillmentID: "gid://shopify/Fulfillment/sup-cancel-retailer",
		OrderID:                      f.order.ID,
	}
	require.NoError(t, f.db.Create(pair).Error)

	processed, err := svc.HandleFulfillmentUpdate(context.Background(), UpdateInput{
		Shop:          "supplier-sup-cancel.myshopify.com",
		FulfillmentID: pair.SupplierShopifyFulfillmentID,
		OrderID:       f.order.ShopifySupplierOrderID,
		Status:        "cancelled",
	})
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, f.gw.cancelled, 1)
	assert.Equal(t, pair.RetailerShopifyFulfillmentID, f.gw.cancelled[0])
	assert.Contains(t, f.gw.calls, "cancel_fulfillment:retailer-sup-cancel.myshopify.com")

	var count int64
	require.NoError(t, f.db.Model(&models.Fulfillment{}).Where("id = ?", pair.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestHandleFulfillmentUpdateRetailerCancelledResyncs(t *testing.T) {
	f, svc := newSyncFixture(t, "ret-cancel", 1)
	pair := &models.Fulfillment{
		ID:                           uuid.New(),
		SupplierShopifyFulfillmentID: "gid://shopify/Fulfillment/ret-cancel-supplier",
		RetailerShopifyFulfillmentID: "gid://shopify/Fulfillment/ret-cancel-retailer",
		OrderID:                      f.order.ID,
	}
	require.NoError(t, f.db.Create(pair).Error)

	company := "UPS"
	processed, err := svc.HandleFulfillmentUpdate(context.Background(), UpdateInput{
		Shop:          "retailer-ret-cancel.myshopify.com",
		FulfillmentID: pair.RetailerShopifyFulfillmentID,
		OrderID:       f.order.ShopifySupplierOrderID,
		Status:        "cancelled",
		LineItems: []FulfillmentLine{
			{LineItemID: "gid://shopify/FulfillmentOrderLineItem/ret-cancel-1", Quantity: 2},
		},
		Tracking: TrackingInput{
			Company: &company,
			Numbers: []string{"1Z222"},
			URLs:    []string{"https://ups.example/1Z222"},
		},
	})
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, f.gw.createdInputs, 1)
	input := f.gw.createdInputs[0]
	assert.Equal(t, f.order.ShopifyRetailerFulfillmentOrderID, input.FulfillmentOrderID)
	require.Len(t, input.Tracking, 1)
	require.NotNil(t, input.Tracking[0].Company)
	assert.Equal(t, "UPS", *input.Tracking[0].Company)

	var updated models.Fulfillment
	require.NoError(t, f.db.Where("id = ?", pair.ID).First(&updated).Error)
	assert.Equal(t, "gid://shopify/Fulfillment/mirror-1", updated.RetailerShopifyFulfillmentID)
	assert.Equal(t, pair.SupplierShopifyFulfillmentID, updated.SupplierShopifyFulfillmentID)
}

func TestHandleFulfillmentUpdateDeliveredSettles(t *testing.T) {
	f, svc := newSyncFixture(t, "delivered", 1)
	pair := &models.Fulfillment{
		ID:                           uuid.New(),
		SupplierShopifyFulfillmentID: "gid://shopify/Fulfillment/delivered-supplier",
		RetailerShopifyFulfillmentID: "gid://shopify/Fulfillment/delivered-retailer",
		OrderID:                      f.order.ID,
	}
	require.NoError(t, f.db.Create(pair).Error)

	processed, err := svc.HandleFulfillmentUpdate(context.Background(), UpdateInput{
		Shop:           "supplier-delivered.myshopify.com",
		FulfillmentID:  pair.SupplierShopifyFulfillmentID,
		OrderID:        f.order.ShopifySupplierOrderID,
		Status:         "success",
		ShipmentStatus: "delivered",
		LineItems: []FulfillmentLine{
			{LineItemID: f.line.ShopifySupplierOrderLineItemID, Quantity: 3},
		},
	})
	require.NoError(t, err)
	assert.True(t, processed)

	require.Len(t, f.settler.calls, 1)
	call := f.settler.calls[0]
	assert.Equal(t, f.order.ShopifySupplierOrderID, call.orderID)
	assert.Equal(t, pair.SupplierShopifyFulfillmentID, call.fulfillmentID)
	require.Len(t, call.lines, 1)
	assert.Equal(t, f.line.ShopifySupplierOrderLineItemID, call.lines[0].SupplierOrderLineItemID)
	assert.Equal(t, 3, call.lines[0].Quantity)
}

func TestHandleFulfillmentUpdateUnrelatedNoOp(t *testing.T) {
	f, svc := newSyncFixture(t, "unrelated", 1)

	processed, err := svc.HandleFulfillmentUpdate(context.Background(), UpdateInput{
		Shop:          "supplier-unrelated.myshopify.com",
		FulfillmentID: "gid://shopify/Fulfillment/not-in-ledger",
		OrderID:       f.order.ShopifySupplierOrderID,
		Status:        "cancelled",
	})
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, f.gw.calls)
	assert.Empty(t, f.settler.calls)
}

func TestHandleFulfillmentUpdateCancelledOrderNoOp(t *testing.T) {
	f, svc := newSyncFixture(t, "dead-order", 1)
	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", f.order.ID).
		Update("payment_status", enums.OrderPaymentStatusCancelled).Error)

	pair := &models.Fulfillment{
		ID:                           uuid.New(),
		SupplierShopifyFulfillmentID: "gid://shopify/Fulfillment/dead-order-supplier",
		RetailerShopifyFulfillmentID: "gid://shopify/Fulfillment/dead-order-retailer",
		OrderID:                      f.order.ID,
	}
	require.NoError(t, f.db.Create(pair).Error)

	processed, err := svc.HandleFulfillmentUpdate(context.Background(), UpdateInput{
		Shop:          "supplier-dead-order.myshopify.com",
		FulfillmentID: pair.SupplierShopifyFulfillmentID,
		OrderID:       f.order.ShopifySupplierOrderID,
		Status:        "cancelled",
	})
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, f.gw.cancelled)
}
