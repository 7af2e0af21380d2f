package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/synqsell/synqsell-backend/pkg/enums"
)

// Order links one retailer fulfillment order to the supplier order mirrored from it.
type Order struct {
	ID                                uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Currency                          string                   `gorm:"column:currency;not null;default:'USD'"`
	ShopifyRetailerFulfillmentOrderID string                   `gorm:"column:shopify_retailer_fulfillment_order_id;not null"`
	ShopifySupplierOrderID            string                   `gorm:"column:shopify_supplier_order_id;not null"`
	RetailerID                        string                   `gorm:"column:retailer_id;not null"`
	SupplierID                        string                   `gorm:"column:supplier_id;not null"`
	ShippingCost                      decimal.Decimal          `gorm:"column:shipping_cost;type:numeric(12,2);not null"`
	PaymentStatus                     enums.OrderPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'INCOMPLETE'"`
	LineItems                         []OrderLineItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt                         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
