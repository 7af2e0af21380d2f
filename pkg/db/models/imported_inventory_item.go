package models

import (
	"github.com/google/uuid"
)

// ImportedInventoryItem maps a retailer inventory item back to the supplier's.
type ImportedInventoryItem struct {
	ID                     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ImportedVariantID      uuid.UUID `gorm:"column:imported_variant_id;type:uuid;not null"`
	ShopifyInventoryItemID string    `gorm:"column:shopify_inventory_item_id;not null"`
	InventoryItemID        uuid.UUID `gorm:"column:inventory_item_id;type:uuid;not null"`
}

func (ImportedInventoryItem) TableName() string { return "imported_inventory_items" }
