package models

import (
	"github.com/google/uuid"
)

// InventoryItem links a supplier variant to its Shopify inventory item.
type InventoryItem struct {
	ID                     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopifyInventoryItemID string    `gorm:"column:shopify_inventory_item_id;not null"`
	VariantID              uuid.UUID `gorm:"column:variant_id;type:uuid;not null"`
}

func (InventoryItem) TableName() string { return "inventory_items" }
