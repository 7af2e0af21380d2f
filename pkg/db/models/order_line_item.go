package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderLineItem pairs a retailer order line with its supplier counterpart and
// tracks per-line quantity accounting for fulfillment, payment and cancellation.
type OrderLineItem struct {
	ID                             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID                        uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	RetailerShopifyVariantID       string          `gorm:"column:retailer_shopify_variant_id;not null"`
	SupplierShopifyVariantID       string          `gorm:"column:supplier_shopify_variant_id;not null"`
	RetailPricePerUnit             decimal.Decimal `gorm:"column:retail_price_per_unit;type:numeric(12,2);not null"`
	AmountPayablePerUnit           decimal.Decimal `gorm:"column:amount_payable_per_unit;type:numeric(12,2);not null"`
	ShopifyRetailerOrderLineItemID string          `gorm:"column:shopify_retailer_order_line_item_id;not null"`
	ShopifySupplierOrderLineItemID string          `gorm:"column:shopify_supplier_order_line_item_id;not null"`
	Quantity                       int             `gorm:"column:quantity;not null"`
	QuantityFulfilled              int             `gorm:"column:quantity_fulfilled;not null;default:0"`
	QuantityPaid                   int             `gorm:"column:quantity_paid;not null;default:0"`
	QuantityCancelled              int             `gorm:"column:quantity_cancelled;not null;default:0"`
	PriceListID                    uuid.UUID       `gorm:"column:price_list_id;type:uuid;not null"`
	CreatedAt                      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderLineItem) TableName() string { return "order_line_items" }
