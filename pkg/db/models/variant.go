package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Variant is a supplier variant published on a price list. The three price
// columns always satisfy retail_price = retailer_payment + supplier_profit.
type Variant struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopifyVariantID string          `gorm:"column:shopify_variant_id;not null"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	RetailPrice      decimal.Decimal `gorm:"column:retail_price;type:numeric(12,2);not null"`
	RetailerPayment  decimal.Decimal `gorm:"column:retailer_payment;type:numeric(12,2);not null"`
	SupplierProfit   decimal.Decimal `gorm:"column:supplier_profit;type:numeric(12,2);not null"`
	InventoryItem    *InventoryItem  `gorm:"foreignKey:VariantID;constraint:OnDelete:CASCADE"`
}

func (Variant) TableName() string { return "variants" }
