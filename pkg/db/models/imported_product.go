package models

import (
	"github.com/google/uuid"
)

// ImportedProduct is the retailer-side copy of a supplier product.
type ImportedProduct struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID         `gorm:"column:product_id;type:uuid;not null"`
	ShopifyProductID string            `gorm:"column:shopify_product_id;not null"`
	RetailerID       string            `gorm:"column:retailer_id;not null"`
	Variants         []ImportedVariant `gorm:"foreignKey:ImportedProductID;constraint:OnDelete:CASCADE"`
}

func (ImportedProduct) TableName() string { return "imported_products" }
