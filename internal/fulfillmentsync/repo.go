package fulfillmentsync

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/pkg/db/models"
)

// Repository is the ledger surface the fulfillment sync handlers read and
// write through.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrderBySupplier(ctx context.Context, supplierID, shopifySupplierOrderID string) (*models.Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetOrderLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	GetBySupplierFulfillmentID(ctx context.Context, supplierShopifyFulfillmentID string) (*models.Fulfillment, error)
	GetByRetailerFulfillmentID(ctx context.Context, retailerShopifyFulfillmentID string) (*models.Fulfillment, error)
	CreateFulfillment(ctx context.Context, fulfillment *models.Fulfillment) (*models.Fulfillment, error)
	DeleteFulfillment(ctx context.Context, id uuid.UUID) error
	SetRetailerFulfillmentID(ctx context.Context, id uuid.UUID, retailerShopifyFulfillmentID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a fulfillment sync repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrderBySupplier(ctx context.Context, supplierID, shopifySupplierOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND shopify_supplier_order_id = ?", supplierID, shopifySupplierOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetOrderLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) GetBySupplierFulfillmentID(ctx context.Context, supplierShopifyFulfillmentID string) (*models.Fulfillment, error) {
	var fulfillment models.Fulfillment
	err := r.db.WithContext(ctx).
		Where("supplier_shopify_fulfillment_id = ?", supplierShopifyFulfillmentID).
		First(&fulfillment).Error
	if err != nil {
		return nil, err
	}
	return &fulfillment, nil
}

func (r *repository) GetByRetailerFulfillmentID(ctx context.Context, retailerShopifyFulfillmentID string) (*models.Fulfillment, error) {
	var fulfillment models.Fulfillment
	err := r.db.WithContext(ctx).
		Where("retailer_shopify_fulfillment_id = ?", retailerShopifyFulfillmentID).
		First(&fulfillment).Error
	if err != nil {
		return nil, err
	}
	return &fulfillment, nil
}

func (r *repository) CreateFulfillment(ctx context.Context, fulfillment *models.Fulfillment) (*models.Fulfillment, error) {
	if fulfillment.ID == uuid.Nil {
		fulfillment.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(fulfillment).Error; err != nil {
		return nil, err
	}
	return fulfillment, nil
}

func (r *repository) DeleteFulfillment(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Fulfillment{}).Error
}

func (r *repository) SetRetailerFulfillmentID(ctx context.Context, id uuid.UUID, retailerShopifyFulfillmentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Fulfillment{}).
		Where("id = ?", id).
		Update("retailer_shopify_fulfillment_id", retailerShopifyFulfillmentID).Error
}
