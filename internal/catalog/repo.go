package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/pkg/db/models"
)

// RetailerTarget is one retailer variant a supplier price or inventory change
// broadcasts to, together with the store and location the update lands on.
type RetailerTarget struct {
	RetailerShopifyProductID string
	RetailerShopifyVariantID string
	SupplierShopifyVariantID string
	RetailerID               string
	Shop                     string
	AccessToken              string
	ShopifyLocationID        string
}

// RevertBinding resolves a retailer variant on an imported product back to the
// supplier variant it mirrors.
type RevertBinding struct {
	RetailerShopifyVariantID string
	SupplierShopifyVariantID string
	SupplierID               string
}

// Repository is the catalog surface the product sync handlers read and write
// through.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetSupplierProduct(ctx context.Context, shopifyProductID string) (*models.Product, error)
	GetImportedProduct(ctx context.Context, shopifyProductID string) (*models.ImportedProduct, error)
	GetPriceList(ctx context.Context, id uuid.UUID) (*models.PriceList, error)
	GetVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Variant, error)
	UpdateVariantPricing(ctx context.Context, variantID uuid.UUID, retailPrice, retailerPayment, supplierProfit decimal.Decimal) error
	GetRetailerTargets(ctx context.Context, supplierProductID uuid.UUID) ([]RetailerTarget, error)
	GetRevertBindings(ctx context.Context, importedProductID uuid.UUID) ([]RevertBinding, error)
	GetFulfillmentServiceBySession(ctx context.Context, sessionID string) (*models.FulfillmentService, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetSupplierProduct(ctx context.Context, shopifyProductID string) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("shopify_product_id = ?", shopifyProductID).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) GetImportedProduct(ctx context.Context, shopifyProductID string) (*models.ImportedProduct, error) {
	var product models.ImportedProduct
	err := r.db.WithContext(ctx).Where("shopify_product_id = ?", shopifyProductID).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) GetPriceList(ctx context.Context, id uuid.UUID) (*models.PriceList, error) {
	var priceList models.PriceList
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&priceList).Error; err != nil {
		return nil, err
	}
	return &priceList, nil
}

func (r *repository) GetVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]models.Variant, error) {
	var variants []models.Variant
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

func (r *repository) UpdateVariantPricing(ctx context.Context, variantID uuid.UUID, retailPrice, retailerPayment, supplierProfit decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Variant{}).
		Where("id = ?", variantID).
		Updates(map[string]any{
			"retail_price":     retailPrice,
			"retailer_payment": retailerPayment,
			"supplier_profit":  supplierProfit,
		}).Error
}

func (r *repository) GetRetailerTargets(ctx context.Context, supplierProductID uuid.UUID) ([]RetailerTarget, error) {
	var targets []RetailerTarget
	err := r.db.WithContext(ctx).
		Table("imported_variants").
		Select(`imported_products.shopify_product_id AS retailer_shopify_product_id,
			imported_variants.shopify_variant_id AS retailer_shopify_variant_id,
			variants.shopify_variant_id AS supplier_shopify_variant_id,
			sessions.id AS retailer_id,
			sessions.shop AS shop,
			sessions.access_token AS access_token,
			fulfillment_services.shopify_location_id AS shopify_location_id`).
		Joins("INNER JOIN variants ON variants.id = imported_variants.variant_id").
		Joins("INNER JOIN imported_products ON imported_products.id = imported_variants.imported_product_id").
		Joins("INNER JOIN sessions ON sessions.id = imported_products.retailer_id").
		Joins("INNER JOIN fulfillment_services ON fulfillment_services.session_id = sessions.id").
		Where("variants.product_id = ?", supplierProductID).
		Scan(&targets).Error
	if err != nil {
		return nil, err
	}
	return targets, nil
}

func (r *repository) GetRevertBindings(ctx context.Context, importedProductID uuid.UUID) ([]RevertBinding, error) {
	var bindings []RevertBinding
	err := r.db.WithContext(ctx).
		Table("imported_variants").
		Select(`imported_variants.shopify_variant_id AS retailer_shopify_variant_id,
			variants.shopify_variant_id AS supplier_shopify_variant_id,
			price_lists.supplier_id AS supplier_id`).
		Joins("INNER JOIN variants ON variants.id = imported_variants.variant_id").
		Joins("INNER JOIN products ON products.id = variants.product_id").
		Joins("INNER JOIN price_lists ON price_lists.id = products.price_list_id").
		Where("imported_variants.imported_product_id = ?", importedProductID).
		Scan(&bindings).Error
	if err != nil {
		return nil, err
	}
	return bindings, nil
}

func (r *repository) GetFulfillmentServiceBySession(ctx context.Context, sessionID string) (*models.FulfillmentService, error) {
	var service models.FulfillmentService
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&service).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}
