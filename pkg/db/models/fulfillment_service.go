package models

import (
	"github.com/google/uuid"
)

// FulfillmentService records the marketplace-managed fulfillment service and
// location a store was provisioned with. An order routed to this location is
// a marketplace order.
type FulfillmentService struct {
	ID                          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID                   string    `gorm:"column:session_id;not null"`
	ShopifyFulfillmentServiceID string    `gorm:"column:shopify_fulfillment_service_id;not null"`
	ShopifyLocationID           string    `gorm:"column:shopify_location_id;not null"`
}

func (FulfillmentService) TableName() string { return "fulfillment_services" }
