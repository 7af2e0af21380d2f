package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/pkg/db/models"
	"github.com/synqsell/synqsell-backend/pkg/enums"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/stripe"
)

func setupSettlementTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:" + t.Name() + "?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
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
		`CREATE TABLE IF NOT EXISTS payments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  fulfillment_id TEXT NOT NULL UNIQUE,
  status TEXT NOT NULL DEFAULT 'INITIATED',
  order_paid NUMERIC NOT NULL,
  shipping_paid NUMERIC NOT NULL,
  total_paid NUMERIC NOT NULL,
  stripe_payment_intent_id TEXT,
  created_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS stripe_connect_accounts (
  id TEXT PRIMARY KEY,
  supplier_id TEXT NOT NULL UNIQUE,
  stripe_account_id TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS stripe_customer_accounts (
  id TEXT PRIMARY KEY,
  retailer_id TEXT NOT NULL UNIQUE,
  stripe_customer_id TEXT NOT NULL
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type fakeCharger struct {
	mu      sync.Mutex
	charges []stripe.ChargeInput
}

func (f *fakeCharger) Charge(_ context.Context, in stripe.ChargeInput) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.charges = append(f.charges, in)
	return fmt.Sprintf("pi_test_%d", len(f.charges)), nil
}

type settlementTxRunner struct {
	db *gorm.DB
}

func (r settlementTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type settlementFixture struct {
	db      *gorm.DB
	charger *fakeCharger
	svc     Service
	order   *models.Order
	line    *models.OrderLineItem
}

// newSettlementFixture seeds one order with a single ten-unit line payable at
// 45.00 per unit and 10.00 total shipping, plus the Stripe accounts on both
// sides.
func newSettlementFixture(t *testing.T, tag string) *settlementFixture {
	t.Helper()

	db := setupSettlementTestDB(t)
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
		ShopifyRetailerOrderLineItemID: "ret-line-" + tag,
		ShopifySupplierOrderLineItemID: "sup-line-" + tag,
		Quantity:                       10,
		PriceListID:                    uuid.New(),
	}
	require.NoError(t, db.Create(line).Error)

	require.NoError(t, db.Create(&models.StripeConnectAccount{
		ID:              uuid.New(),
		SupplierID:      order.SupplierID,
		StripeAccountID: "acct_" + tag,
	}).Error)
	require.NoError(t, db.Create(&models.StripeCustomerAccount{
		ID:               uuid.New(),
		RetailerID:       order.RetailerID,
		StripeCustomerID: "cus_" + tag,
	}).Error)

	charger := &fakeCharger{}
	logg := logger.New(logger.Options{ServiceName: "settlement-test"})
	svc, err := NewService(NewRepository(db), charger, settlementTxRunner{db: db}, logg)
	require.NoError(t, err)

	return &settlementFixture{db: db, charger: charger, svc: svc, order: order, line: line}
}

func (f *settlementFixture) seedPair(t *testing.T, supplierFulfillmentID string) *models.Fulfillment {
	t.Helper()

	pair := &models.Fulfillment{
		ID:                           uuid.New(),
		SupplierShopifyFulfillmentID: supplierFulfillmentID,
		RetailerShopifyFulfillmentID: "retailer-mirror-" + supplierFulfillmentID,
		OrderID:                      f.order.ID,
	}
	require.NoError(t, f.db.Create(pair).Error)
	return pair
}

func TestHandleDeliveredPaysSupplier(t *testing.T) {
	f := newSettlementFixture(t, "pays")
	pair := f.seedPair(t, "gid://shopify/Fulfillment/pays-1")
	ctx := context.Background()

	processed, err := f.svc.HandleDelivered(ctx, "supplier-pays.myshopify.com",
		f.order.ShopifySupplierOrderID, pair.SupplierShopifyFulfillmentID,
		[]DeliveredLine{{SupplierOrderLineItemID: f.line.ShopifySupplierOrderLineItemID, Quantity: 5}})
	require.NoError(t, err)
	assert.True(t, processed)

	// 5 units at 45.00 plus half the 10.00 shipping.
	require.Len(t, f.charger.charges, 1)
	charge := f.charger.charges[0]
	assert.True(t, charge.Amount.Equal(decimal.RequireFromString("230.00")), "charged %s", charge.Amount)
	assert.Equal(t, "cus_pays", charge.CustomerID)
	assert.Equal(t, "acct_pays", charge.DestinationAccountID)
	assert.Equal(t, "USD", charge.Currency)

	var payment models.Payment
	require.NoError(t, f.db.Where("fulfillment_id = ?", pair.ID).First(&payment).Error)
	assert.True(t, payment.OrderPaid.Equal(decimal.RequireFromString("225.00")))
	assert.True(t, payment.ShippingPaid.Equal(decimal.RequireFromString("5.00")))
	assert.True(t, payment.TotalPaid.Equal(decimal.RequireFromString("230.00")))
	assert.Equal(t, enums.PaymentStatusInitiated, payment.Status)
	require.NotNil(t, payment.StripePaymentIntentID)
	assert.Equal(t, "pi_test_1", *payment.StripePaymentIntentID)

	var line models.OrderLineItem
	require.NoError(t, f.db.Where("id = ?", f.line.ID).First(&line).Error)
	assert.Equal(t, 5, line.QuantityFulfilled)
	assert.Equal(t, 5, line.QuantityPaid)
}

func TestHandleDeliveredExactlyOnce(t *testing.T) {
	f := newSettlementFixture(t, "once")
	pair := f.seedPair(t, "gid://shopify/Fulfillment/once-1")
	ctx := context.Background()
	lines := []DeliveredLine{{SupplierOrderLineItemID: f.line.ShopifySupplierOrderLineItemID, Quantity: 5}}

	for i := 0; i < 3; i++ {
		processed, err := f.svc.HandleDelivered(ctx, "supplier-once.myshopify.com",
			f.order.ShopifySupplierOrderID, pair.SupplierShopifyFulfillmentID, lines)
		require.NoError(t, err)
		assert.True(t, processed)
	}

	assert.Len(t, f.charger.charges, 1)
	var count int64
	require.NoError(t, f.db.Model(&models.Payment{}).Where("order_id = ?", f.order.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestHandleDeliveredQuantityBreachChargesNothing(t *testing.T) {
	f := newSettlementFixture(t, "breach")
	pair := f.seedPair(t, "gid://shopify/Fulfillment/breach-1")

	_, err := f.svc.HandleDelivered(context.Background(), "supplier-breach.myshopify.com",
		f.order.ShopifySupplierOrderID, pair.SupplierShopifyFulfillmentID,
		[]DeliveredLine{{SupplierOrderLineItemID: f.line.ShopifySupplierOrderLineItemID, Quantity: 11}})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConsistency, appErr.Code())

	assert.Empty(t, f.charger.charges)
	var count int64
	require.NoError(t, f.db.Model(&models.Payment{}).Where("order_id = ?", f.order.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestHandleDeliveredUnknownLineBreach(t *testing.T) {
	f := newSettlementFixture(t, "unknown-line")
	pair := f.seedPair(t, "gid://shopify/Fulfillment/unknown-line-1")

	_, err := f.svc.HandleDelivered(context.Background(), "supplier-unknown-line.myshopify.com",
		f.order.ShopifySupplierOrderID, pair.SupplierShopifyFulfillmentID,
		[]DeliveredLine{{SupplierOrderLineItemID: "gid://shopify/LineItem/elsewhere", Quantity: 1}})
	require.Error(t, err)

	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeConsistency, appErr.Code())
	assert.Empty(t, f.charger.charges)
}

func TestHandleDeliveredUnknownFulfillmentNoOp(t *testing.T) {
	f := newSettlementFixture(t, "no-pair")

	processed, err := f.svc.HandleDelivered(context.Background(), "supplier-no-pair.myshopify.com",
		f.order.ShopifySupplierOrderID, "gid://shopify/Fulfillment/not-ours",
		[]DeliveredLine{{SupplierOrderLineItemID: f.line.ShopifySupplierOrderLineItemID, Quantity: 1}})
	require.NoError(t, err)
	assert.False(t, processed)
	assert.Empty(t, f.charger.charges)
}

// Shipping proration across three single-unit deliveries of a three-unit
// order: 1.67 + 1.67 + 1.66 recovers the full 5.00.
func TestHandleDeliveredShippingRoundingRecovered(t *testing.T) {
	f := newSettlementFixture(t, "rounding")
	ctx := context.Background()

	require.NoError(t, f.db.Model(&models.Order{}).Where("id = ?", f.order.ID).
		Update("shipping_cost", "5.00").Error)
	require.NoError(t, f.db.Model(&models.OrderLineItem{}).Where("id = ?", f.line.ID).
		Update("quantity", 3).Error)

	want := []string{"1.67", "1.67", "1.66"}
	for i, expected := range want {
		pair := f.seedPair(t, fmt.Sprintf("gid://shopify/Fulfillment/rounding-%d", i))
		processed, err := f.svc.HandleDelivered(ctx, "supplier-rounding.myshopify.com",
			f.order.ShopifySupplierOrderID, pair.SupplierShopifyFulfillmentID,
			[]DeliveredLine{{SupplierOrderLineItemID: f.line.ShopifySupplierOrderLineItemID, Quantity: 1}})
		require.NoError(t, err)
		assert.True(t, processed)

		var payment models.Payment
		require.NoError(t, f.db.Where("fulfillment_id = ?", pair.ID).First(&payment).Error)
		assert.True(t, payment.ShippingPaid.Equal(decimal.RequireFromString(expected)),
			"delivery %d paid %s shipping, want %s", i, payment.ShippingPaid, expected)
	}

	var payments []models.Payment
	require.NoError(t, f.db.Where("order_id = ?", f.order.ID).Find(&payments).Error)
	total := decimal.Zero
	for _, payment := range payments {
		total = total.Add(payment.ShippingPaid)
	}
	assert.True(t, total.Equal(decimal.RequireFromString("5.00")), "total shipping %s", total)
}

type failingTxRunner struct {
	err error
}

func (r failingTxRunner) WithTx(context.Context, func(tx *gorm.DB) error) error {
	return r.err
}

// A charge that cannot be recorded must surface the error so the operator
// reconciles; the event stays marked processed since the money already moved.
func TestHandleDeliveredRecordFailureSurfacesError(t *testing.T) {
	f := newSettlementFixture(t, "record-fail")
	pair := f.seedPair(t, "gid://shopify/Fulfillment/record-fail-1")

	txErr := errors.New("connection reset")
	svc, err := NewService(NewRepository(f.db), f.charger, failingTxRunner{err: txErr}, logger.New(logger.Options{ServiceName: "settlement-test"}))
	require.NoError(t, err)

	processed, err := svc.HandleDelivered(context.Background(), "supplier-record-fail.myshopify.com",
		f.order.ShopifySupplierOrderID, pair.SupplierShopifyFulfillmentID,
		[]DeliveredLine{{SupplierOrderLineItemID: f.line.ShopifySupplierOrderLineItemID, Quantity: 5}})
	require.ErrorIs(t, err, txErr)
	assert.True(t, processed)
	assert.Len(t, f.charger.charges, 1)
}
