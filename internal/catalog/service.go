package catalog

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

var oneHundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gateway interface {
	VariantInfo(ctx context.Context, store shopify.Store, variantID string) (*shopify.VariantInfo, error)
	UpdateProductVariants(ctx context.Context, store shopify.Store, productID string, variants []shopify.VariantBulkUpdate) error
}

// EditedVariant is one variant entry of a products/update webhook payload.
type EditedVariant struct {
	ShopifyVariantID  string
	Price             string
	InventoryQuantity int
	InventoryChanged  bool
}

// UpdateInput is a products/update event from either side of a listing.
type UpdateInput struct {
	Shop             string
	ShopifyProductID string
	Variants         []EditedVariant
}

// Service keeps supplier listings and their retailer imports aligned.
// Supplier edits re-derive the ledger pricing and broadcast to every import;
// retailer edits are reverted back to the supplier's live values.
type Service interface {
	HandleProductUpdate(ctx context.Context, input UpdateInput) (bool, error)
}

type service struct {
	repo     Repository
	sessions sessions.Repository
	gw       gateway
	tx       txRunner
	logg     *logger.Logger
}

// NewService builds a catalog sync service with the required dependencies.
func NewService(repo Repository, sessionRepo sessions.Repository, gw gateway, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
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

// HandleProductUpdate dispatches a product edit by the side it happened on.
// Products tracked on neither side are not marketplace listings.
func (s *service) HandleProductUpdate(ctx context.Context, input UpdateInput) (bool, error) {
	product, err := s.repo.GetSupplierProduct(ctx, input.ShopifyProductID)
	if err == nil {
		return true, s.broadcastSupplierEdit(ctx, product, input)
	}
	if err != gorm.ErrRecordNotFound {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	imported, err := s.repo.GetImportedProduct(ctx, input.ShopifyProductID)
	if err == nil {
		return true, s.revertRetailerEdit(ctx, imported, input)
	}
	if err != gorm.ErrRecordNotFound {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load imported product")
	}

	return false, nil
}

// broadcastSupplierEdit re-derives the ledger pricing from the edited prices
// and pushes price and inventory to every retailer that imported the product.
func (s *service) broadcastSupplierEdit(ctx context.Context, product *models.Product, input UpdateInput) error {
	priceList, err := s.repo.GetPriceList(ctx, product.PriceListID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price list")
	}
	variants, err := s.repo.GetVariantsByProduct(ctx, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load variants")
	}
	byShopifyID := collections.IndexBy(variants, func(v models.Variant) string { return v.ShopifyVariantID })

	edited := make([]EditedVariant, 0, len(input.Variants))
	for _, ev := range input.Variants {
		if _, ok := byShopifyID[ev.ShopifyVariantID]; ok {
			edited = append(edited, ev)
		}
	}
	if len(edited) == 0 {
		return nil
	}

	if err := s.repriceVariants(ctx, priceList, byShopifyID, edited); err != nil {
		return err
	}

	targets, err := s.repo.GetRetailerTargets(ctx, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load retailer targets")
	}
	targetsByVariant := make(map[string][]RetailerTarget, len(targets))
	for _, target := range targets {
		targetsByVariant[target.SupplierShopifyVariantID] = append(targetsByVariant[target.SupplierShopifyVariantID], target)
	}

	// One bulk update per retailer product, pushed in parallel.
	type retailerUpdate struct {
		store     shopify.Store
		productID string
		variants  []shopify.VariantBulkUpdate
	}
	updates := make(map[string]*retailerUpdate)
	var productOrder []string
	for _, ev := range edited {
		for _, target := range targetsByVariant[ev.ShopifyVariantID] {
			update, ok := updates[target.RetailerShopifyProductID]
			if !ok {
				update = &retailerUpdate{
					store:     shopify.Store{Shop: target.Shop, AccessToken: target.AccessToken},
					productID: target.RetailerShopifyProductID,
				}
				updates[target.RetailerShopifyProductID] = update
				productOrder = append(productOrder, target.RetailerShopifyProductID)
			}
			price := ev.Price
			entry := shopify.VariantBulkUpdate{ID: target.RetailerShopifyVariantID, Price: &price}
			if ev.InventoryChanged {
				entry.InventoryQuantities = []shopify.InventoryQuantityInput{{
					AvailableQuantity: ev.InventoryQuantity,
					LocationID:        target.ShopifyLocationID,
				}}
			}
			update.variants = append(update.variants, entry)
		}
	}

	var wg sync.WaitGroup
	errs := make([]error, len(productOrder))
	for i, productID := range productOrder {
		update := updates[productID]
		wg.Add(1)
		go func(i int, update *retailerUpdate) {
			defer wg.Done()
			if err := s.gw.UpdateProductVariants(ctx, update.store, update.productID, update.variants); err != nil {
				s.logg.Error(ctx, "broadcast to retailer product failed", err)
				errs[i] = err
			}
		}(i, update)
	}
	wg.Wait()
	return multierr.Combine(errs...)
}

// repriceVariants persists the pricing split for the edited variants in one
// transaction. retail price always equals retailer payment plus supplier
// profit.
func (s *service) repriceVariants(ctx context.Context, priceList *models.PriceList, byShopifyID map[string]models.Variant, edited []EditedVariant) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, ev := range edited {
			variant := byShopifyID[ev.ShopifyVariantID]
			price, err := decimal.NewFromString(ev.Price)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse variant price").
					WithDetails(map[string]any{"variant_id": ev.ShopifyVariantID})
			}
			payment, profit, err := splitPrice(priceList, variant, price)
			if err != nil {
				return err
			}
			if err := repo.UpdateVariantPricing(ctx, variant.ID, price, payment, profit); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update variant pricing")
			}
		}
		return nil
	})
}

// splitPrice derives the retailer payment and supplier profit for a new
// retail price. MARGIN keeps the retailer's percentage; WHOLESALE keeps the
// supplier's fixed profit.
func splitPrice(priceList *models.PriceList, variant models.Variant, price decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	switch priceList.PricingStrategy {
	case enums.PricingStrategyMargin:
		if priceList.Margin == nil {
			return decimal.Zero, decimal.Zero, pkgerrors.New(pkgerrors.CodeConsistency, "margin price list has no margin").
				WithDetails(map[string]any{"price_list_id": priceList.ID})
		}
		margin := decimal.NewFromFloat(*priceList.Margin)
		payment := price.Mul(margin).Div(oneHundred).Round(2)
		return payment, price.Sub(payment), nil
	case enums.PricingStrategyWholesale:
		profit := variant.SupplierProfit
		payment := price.Sub(profit)
		if payment.IsNegative() {
			return decimal.Zero, decimal.Zero, pkgerrors.New(pkgerrors.CodeConsistency, "retail price fell below the wholesale profit").
				WithDetails(map[string]any{"variant_id": variant.ID})
		}
		return payment, profit, nil
	default:
		return decimal.Zero, decimal.Zero, pkgerrors.New(pkgerrors.CodeConsistency, "unknown pricing strategy").
			WithDetails(map[string]any{"pricing_strategy": priceList.PricingStrategy})
	}
}

// revertRetailerEdit pushes a retailer-edited import back to the supplier's
// live price and inventory. Values already in sync are skipped so the revert
// does not retrigger products/update forever.
func (s *service) revertRetailerEdit(ctx context.Context, imported *models.ImportedProduct, input UpdateInput) error {
	retailer, err := s.sessions.GetByShop(ctx, input.Shop)
	if err != nil {
		return err
	}
	retailerStore := shopify.Store{Shop: retailer.Shop, AccessToken: retailer.AccessToken}

	bindings, err := s.repo.GetRevertBindings(ctx, imported.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load supplier bindings")
	}
	byRetailerVariant := collections.IndexBy(bindings, func(b RevertBinding) string { return b.RetailerShopifyVariantID })

	fulfillmentService, err := s.repo.GetFulfillmentServiceBySession(ctx, retailer.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fulfillment service")
	}

	supplierStores := make(map[string]shopify.Store)
	var reverts []shopify.VariantBulkUpdate
	for _, ev := range input.Variants {
		binding, ok := byRetailerVariant[ev.ShopifyVariantID]
		if !ok {
			continue
		}
		store, ok := supplierStores[binding.SupplierID]
		if !ok {
			supplier, err := s.sessions.GetByID(ctx, binding.SupplierID)
			if err != nil {
				return err
			}
			store = shopify.Store{Shop: supplier.Shop, AccessToken: supplier.AccessToken}
			supplierStores[binding.SupplierID] = store
		}

		live, err := s.gw.VariantInfo(ctx, store, binding.SupplierShopifyVariantID)
		if err != nil {
			return err
		}

		priceDiffers := ev.Price != live.Price
		inventoryDiffers := ev.InventoryChanged && ev.InventoryQuantity != live.InventoryQuantity
		if !priceDiffers && !inventoryDiffers {
			continue
		}

		entry := shopify.VariantBulkUpdate{ID: ev.ShopifyVariantID}
		if priceDiffers {
			price := live.Price
			entry.Price = &price
		}
		if inventoryDiffers {
			entry.InventoryQuantities = []shopify.InventoryQuantityInput{{
				AvailableQuantity: live.InventoryQuantity,
				LocationID:        fulfillmentService.ShopifyLocationID,
			}}
		}
		reverts = append(reverts, entry)
	}

	if len(reverts) == 0 {
		return nil
	}
	return s.gw.UpdateProductVariants(ctx, retailerStore, imported.ShopifyProductID, reverts)
}
