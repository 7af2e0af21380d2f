package routing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/pkg/db/models"
)

// SupplierBinding resolves a retailer variant on an imported listing back to
// the supplier that published it, together with the pricing the order line
// will be booked at.
type SupplierBinding struct {
	RetailerShopifyVariantID string
	SupplierShopifyVariantID string
	SupplierID               string
	PriceListID              uuid.UUID
	RetailPrice              decimal.Decimal
	AmountPayablePerUnit     decimal.Decimal
}

// Repository is the ledger surface the order router writes through.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetFulfillmentServiceByLocation(ctx context.Context, sessionID, shopifyLocationID string) (*models.FulfillmentService, error)
	GetSupplierBindings(ctx context.Context, retailerShopifyVariantIDs []string) ([]SupplierBinding, error)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a routing repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetFulfillmentServiceByLocation(ctx context.Context, sessionID, shopifyLocationID string) (*models.FulfillmentService, error) {
	var service models.FulfillmentService
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND shopify_location_id = ?", sessionID, shopifyLocationID).
		First(&service).Error
	if err != nil {
		return nil, err
	}
	return &service, nil
}

func (r *repository) GetSupplierBindings(ctx context.Context, retailerShopifyVariantIDs []string) ([]SupplierBinding, error) {
	if len(retailerShopifyVariantIDs) == 0 {
		return nil, nil
	}
	var bindings []SupplierBinding
	err := r.db.WithContext(ctx).
		Table("imported_variants").
		Select(`imported_variants.shopify_variant_id AS retailer_shopify_variant_id,
			variants.shopify_variant_id AS supplier_shopify_variant_id,
			price_lists.supplier_id AS supplier_id,
			price_lists.id AS price_list_id,
			variants.retail_price AS retail_price,
			variants.retailer_payment AS amount_payable_per_unit`).
		Joins("INNER JOIN variants ON variants.id = imported_variants.variant_id").
		Joins("INNER JOIN products ON products.id = variants.product_id").
		Joins("INNER JOIN price_lists ON price_lists.id = products.price_list_id").
		Where("imported_variants.shopify_variant_id IN ?", retailerShopifyVariantIDs).
		Scan(&bindings).Error
	if err != nil {
		return nil, err
	}
	return bindings, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
	}
	return r.db.WithContext(ctx).Create(&items).Error
}
