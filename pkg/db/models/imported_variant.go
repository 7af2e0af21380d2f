package models

import (
	"github.com/google/uuid"
)

// ImportedVariant maps a retailer variant back to the supplier variant it came from.
type ImportedVariant struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ImportedProductID uuid.UUID `gorm:"column:imported_product_id;type:uuid;not null"`
	ShopifyVariantID  string    `gorm:"column:shopify_variant_id;not null"`
	VariantID         uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`

	InventoryItem *ImportedInventoryItem `gorm:"foreignKey:ImportedVariantID;constraint:OnDelete:CASCADE"`
}

func (ImportedVariant) TableName() string { return "imported_variants" }
