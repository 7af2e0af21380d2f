package models

import (
	"github.com/google/uuid"
)

// Product is a supplier listing published on a price list.
type Product struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopifyProductID string    `gorm:"column:shopify_product_id;not null"`
	PriceListID      uuid.UUID `gorm:"column:price_list_id;type:uuid;not null"`
	Variants         []Variant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

func (Product) TableName() string { return "products" }
