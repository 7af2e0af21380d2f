package models

import (
	"time"

	"github.com/google/uuid"
)

// Fulfillment pairs a supplier fulfillment with its retailer mirror.
// Row presence doubles as state: deleting the row marks the pair cancelled,
// and the sync handlers use existence checks to break propagation loops.
type Fulfillment struct {
	ID                           uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierShopifyFulfillmentID string    `gorm:"column:supplier_shopify_fulfillment_id;not null"`
	RetailerShopifyFulfillmentID string    `gorm:"column:retailer_shopify_fulfillment_id;not null"`
	OrderID                      uuid.UUID `gorm:"column:order_id;type:uuid;not null"`
	CreatedAt                    time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Fulfillment) TableName() string { return "fulfillments" }
