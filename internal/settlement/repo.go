package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/synqsell/synqsell-backend/pkg/db/models"
)

// Repository is the ledger surface settlement reads and writes through.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetFulfillmentBySupplierID(ctx context.Context, supplierShopifyFulfillmentID string) (*models.Fulfillment, error)
	GetOrderBySupplierOrderID(ctx context.Context, shopifySupplierOrderID string) (*models.Order, error)
	HasPaymentForFulfillment(ctx context.Context, fulfillmentID uuid.UUID) (bool, error)
	GetOrderLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error)
	GetPaymentsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error)
	CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	AddDeliveredQuantities(ctx context.Context, lineItemID uuid.UUID, quantity int) error
	GetConnectAccount(ctx context.Context, supplierID string) (*models.StripeConnectAccount, error)
	GetCustomerAccount(ctx context.Context, retailerID string) (*models.StripeCustomerAccount, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a settlement repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetFulfillmentBySupplierID(ctx context.Context, supplierShopifyFulfillmentID string) (*models.Fulfillment, error) {
	var fulfillment models.Fulfillment
	err := r.db.WithContext(ctx).
		Where("supplier_shopify_fulfillment_id = ?", supplierShopifyFulfillmentID).
		First(&fulfillment).Error
	if err != nil {
		return nil, err
	}
	return &fulfillment, nil
}

func (r *repository) GetOrderBySupplierOrderID(ctx context.Context, shopifySupplierOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("shopify_supplier_order_id = ?", shopifySupplierOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) HasPaymentForFulfillment(ctx context.Context, fulfillmentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("fulfillment_id = ?", fulfillmentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) GetOrderLineItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderLineItem, error) {
	var items []models.OrderLineItem
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) GetPaymentsForOrder(ctx context.Context, orderID uuid.UUID) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) AddDeliveredQuantities(ctx context.Context, lineItemID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderLineItem{}).
		Where("id = ?", lineItemID).
		Updates(map[string]any{
			"quantity_fulfilled": gorm.Expr("quantity_fulfilled + ?", quantity),
			"quantity_paid":      gorm.Expr("quantity_paid + ?", quantity),
		}).Error
}

func (r *repository) GetConnectAccount(ctx context.Context, supplierID string) (*models.StripeConnectAccount, error) {
	var account models.StripeConnectAccount
	err := r.db.WithContext(ctx).Where("supplier_id = ?", supplierID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *repository) GetCustomerAccount(ctx context.Context, retailerID string) (*models.StripeCustomerAccount, error) {
	var account models.StripeCustomerAccount
	err := r.db.WithContext(ctx).Where("retailer_id = ?", retailerID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
