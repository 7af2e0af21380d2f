package routing

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/internal/sessions"
	"github.com/synqsell/synqsell-backend/pkg/collections"
	"github.com/synqsell/synqsell-backend/pkg/db/models"
	"github.com/synqsell/synqsell-backend/pkg/enums"
	pkgerrors "github.com/synqsell/synqsell-backend/pkg/errors"
	"github.com/synqsell/synqsell-backend/pkg/logger"
	"github.com/synqsell/synqsell-backend/pkg/shopify"
)

const orderTag = "Synqsell"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateway interface {
	RoutingDetails(ctx context.Context, store shopify.Store, fulfillmentOrderID string) (*shopify.RoutingDetails, error)
	FulfillmentOrderLineItems(ctx context.Context, store shopify.Store, fulfillmentOrderID string) ([]shopify.FulfillmentOrderLineItem, error)
	SplitFulfillmentOrder(ctx context.Context, store shopify.Store, fulfillmentOrderID string, lineItems []shopify.SplitLineItem) (string, error)
	CreateDraftOrder(ctx context.Context, store shopify.Store, input shopify.DraftOrderInput) (string, error)
	CompleteDraftOrder(ctx context.Context, store shopify.Store, draftOrderID string) (string, error)
	OrderDetails(ctx context.Context, store shopify.Store, orderID string) (*shopify.OrderDetails, error)
}

// Service routes a retailer fulfillment order to the suppliers whose listings
// it contains, mirroring one supplier order per partition.
type Service interface {
	HandleOrderRoutingComplete(ctx context.Context, shop, fulfillmentOrderID string) (bool, error)
}

type service struct {
	repo     Repository
	sessions sessions.Repository
	gw       gateway
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds an order routing service with the required dependencies.
func NewService(repo Repository, sessionRepo sessions.Repository, gw gateway, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("routing repository required")
	}
	if sessionRepo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if gw == nil {
		return nil, fmt.Errorf("shopify gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, sessions: sessionRepo, gw: gw, tx: tx, logg: logg}, nil
}

// supplierPartition is one supplier's share of the retailer fulfillment order.
type supplierPartition struct {
	supplierID         string
	fulfillmentOrderID string
	lines              []shopify.FulfillmentOrderLineItem
}

// HandleOrderRoutingComplete mirrors a routed retailer fulfillment order onto
// the supplier stores. The bool result reports whether the fulfillment order
// was a marketplace order at all.
func (s *service) HandleOrderRoutingComplete(ctx context.Context, shop, fulfillmentOrderID string) (bool, error) {
	retailer, err := s.sessions.GetByShop(ctx, shop)
	if err != nil {
		return false, err
	}
	store := shopify.Store{Shop: retailer.Shop, AccessToken: retailer.AccessToken}

	details, err := s.gw.RoutingDetails(ctx, store, fulfillmentOrderID)
	if err != nil {
		return false, err
	}
	if details.LocationID == "" {
		return false, nil
	}
	if _, err := s.repo.GetFulfillmentServiceByLocation(ctx, retailer.ID, details.LocationID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment service")
	}

	lines, err := s.gw.FulfillmentOrderLineItems(ctx, store, fulfillmentOrderID)
	if err != nil {
		return true, err
	}
	if len(lines) == 0 {
		return true, pkgerrors.New(pkgerrors.CodeConsistency, "marketplace fulfillment order has no line items").
			WithDetails(map[string]any{"fulfillment_order_id": fulfillmentOrderID})
	}

	bindings, err := s.resolveBindings(ctx, lines)
	if err != nil {
		return true, err
	}

	partitions, err := s.partitionBySupplier(ctx, store, fulfillmentOrderID, lines, bindings)
	if err != nil {
		return true, err
	}

	var wg sync.WaitGroup
	errs := make([]error, len(partitions))
	for i, partition := range partitions {
		wg.Add(1)
		go func(i int, partition supplierPartition) {
			defer wg.Done()
			if err := s.createSupplierOrder(ctx, retailer, partition, details.Destination, bindings); err != nil {
				s.logg.Error(ctx, "supplier order creation failed", err)
				errs[i] = err
			}
		}(i, partition)
	}
	wg.Wait()

	return true, multierr.Combine(errs...)
}

// resolveBindings maps every retailer variant on the fulfillment order back to
// its supplier. A marketplace order whose variant has no binding means the
// ledger and the storefront disagree.
func (s *service) resolveBindings(ctx context.Context, lines []shopify.FulfillmentOrderLineItem) (map[string]SupplierBinding, error) {
	variantIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		variantIDs = append(variantIDs, line.VariantID)
	}
	bindings, err := s.repo.GetSupplierBindings(ctx, variantIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier bindings")
	}

	byVariant := collections.IndexBy(bindings, func(b SupplierBinding) string { return b.RetailerShopifyVariantID })
	for _, line := range lines {
		if _, ok := byVariant[line.VariantID]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConsistency, "imported variant has no supplier binding").
				WithDetails(map[string]any{"variant_id": line.VariantID})
		}
	}
	return byVariant, nil
}

// partitionBySupplier groups the lines per supplier in first-seen order. The
// first supplier keeps the original fulfillment order; every later partition
// is split off sequentially so each split acts on a consistent remainder.
func (s *service) partitionBySupplier(
	ctx context.Context,
	store shopify.Store,
	fulfillmentOrderID string,
	lines []shopify.FulfillmentOrderLineItem,
	bindings map[string]SupplierBinding,
) ([]supplierPartition, error) {
	groups, order := collections.GroupByOrdered(lines, func(line shopify.FulfillmentOrderLineItem) string {
		return bindings[line.VariantID].SupplierID
	})

	partitions := make([]supplierPartition, 0, len(order))
	for i, supplierID := range order {
		partition := supplierPartition{
			supplierID:         supplierID,
			fulfillmentOrderID: fulfillmentOrderID,
			lines:              groups[supplierID],
		}
		if i > 0 {
			splitLines := make([]shopify.SplitLineItem, 0, len(partition.lines))
			for _, line := range partition.lines {
				splitLines = append(splitLines, shopify.SplitLineItem{ID: line.ID, Quantity: line.Quantity})
			}
			newID, err := s.gw.SplitFulfillmentOrder(ctx, store, fulfillmentOrderID, splitLines)
			if err != nil {
				return nil, err
			}
			partition.fulfillmentOrderID = newID
		}
		partitions = append(partitions, partition)
	}
	return partitions, nil
}

// createSupplierOrder mirrors one partition as a real order on the supplier
// store and books it into the ledger.
func (s *service) createSupplierOrder(
	ctx context.Context,
	retailer *models.Session,
	partition supplierPartition,
	destination *shopify.Destination,
	bindings map[string]SupplierBinding,
) error {
	supplier, err := s.sessions.GetByID(ctx, partition.supplierID)
	if err != nil {
		return err
	}
	supplierStore := shopify.Store{Shop: supplier.Shop, AccessToken: supplier.AccessToken}

	input := shopify.DraftOrderInput{
		LineItems:       make([]shopify.DraftOrderLineItem, 0, len(partition.lines)),
		ShippingAddress: destination.ShippingAddress(),
		Tags:            orderTag,
	}
	if destination != nil {
		input.Email = destination.Email
	}
	for _, line := range partition.lines {
		input.LineItems = append(input.LineItems, shopify.DraftOrderLineItem{
			VariantID: bindings[line.VariantID].SupplierShopifyVariantID,
			Quantity:  line.Quantity,
		})
	}

	draftOrderID, err := s.gw.CreateDraftOrder(ctx, supplierStore, input)
	if err != nil {
		return err
	}
	supplierOrderID, err := s.gw.CompleteDraftOrder(ctx, supplierStore, draftOrderID)
	if err != nil {
		return err
	}
	orderDetails, err := s.gw.OrderDetails(ctx, supplierStore, supplierOrderID)
	if err != nil {
		return err
	}

	currency := orderDetails.CurrencyCode
	if currency == "" {
		currency = "USD"
	}
	shippingCost := decimal.Zero
	if orderDetails.ShippingCost != "" {
		shippingCost, err = decimal.NewFromString(orderDetails.ShippingCost)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "parse shipping cost")
		}
	}

	supplierLines := collections.IndexBy(orderDetails.LineItems, func(l shopify.OrderLine) string { return l.VariantID })

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.CreateOrder(ctx, &models.Order{
			Currency:                          currency,
			ShopifyRetailerFulfillmentOrderID: partition.fulfillmentOrderID,
			ShopifySupplierOrderID:            supplierOrderID,
			RetailerID:                        retailer.ID,
			SupplierID:                        supplier.ID,
			ShippingCost:                      shippingCost,
			PaymentStatus:                     enums.OrderPaymentStatusIncomplete,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderLineItem, 0, len(partition.lines))
		for _, line := range partition.lines {
			binding := bindings[line.VariantID]
			supplierLine, ok := supplierLines[binding.SupplierShopifyVariantID]
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConsistency, "supplier order is missing a mirrored line item").
					WithDetails(map[string]any{"supplier_variant_id": binding.SupplierShopifyVariantID})
			}
			items = append(items, models.OrderLineItem{
				OrderID:                        order.ID,
				RetailerShopifyVariantID:       line.VariantID,
				SupplierShopifyVariantID:       binding.SupplierShopifyVariantID,
				RetailPricePerUnit:             binding.RetailPrice,
				AmountPayablePerUnit:           binding.AmountPayablePerUnit,
				ShopifyRetailerOrderLineItemID: line.LineItemID,
				ShopifySupplierOrderLineItemID: supplierLine.ID,
				Quantity:                       line.Quantity,
				PriceListID:                    binding.PriceListID,
			})
		}
		if err := repo.CreateOrderLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order line items")
		}
		return nil
	})
}
