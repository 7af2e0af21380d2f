package lifecycle

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/pkg/db/models"
	"github.com/synqsell/synqsell-backend/pkg/enums"
)

// Repository is the ledger surface the cancellation handlers read and write
// through.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetOrderByRetailerFulfillmentOrder(ctx context.Context, retailerID, shopifyRetailerFulfillmentOrderID string) (*models.Order, error)
	GetOrderBySupplierOrder(ctx context.Context, supplierID, shopifySupplierOrderID string) (*models.Order, error)
	SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderPaymentStatus) error
	GetLineItemsBySupplierLineIDs(ctx context.Context, orderID uuid.UUID, supplierLineIDs []string) ([]models.OrderLineItem, error)
	SetQuantityCancelled(ctx context.Context, lineItemID uuid.UUID, quantity int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a lifecycle repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrderByRetailerFulfillmentOrder(ctx context.Context, retailerID, shopifyRetailerFulfillmentOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("retailer_id = ? AND shopify_retailer_fulfillment_order_id = ?", retailerID, shopifyRetailerFulfillmentOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) GetOrderBySupplierOrder(ctx context.Context, supplierID, shopifySupplierOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("supplier_id = ? AND shopify_supplier_order_id = ?", supplierID, shopifySupplierOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) SetOrderPaymentStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderPaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("payment_status", status).Error
}

func (r *repository) GetLineItemsBySupplierLineIDs(ctx context.Context, orderID uuid.UUID, supplierLineIDs []string) ([]models.OrderLineItem, error) {
	if len(supplierLineIDs) == 0 {
		return nil, nil
	}
	var items []models.OrderLineItem
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND shopify_supplier_order_line_item_id IN ?", orderID, supplierLineIDs).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) SetQuantityCancelled(ctx context.Context, lineItemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ?", lineItemID).
		Update("quantity_cancelled", quantity).Error
}
