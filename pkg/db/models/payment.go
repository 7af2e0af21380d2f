package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/synqsell/synqsell-backend/pkg/enums"
)

// Payment records one settlement charge for one delivered fulfillment.
// The unique index on fulfillment_id enforces at-most-one payment per
// fulfillment at the database level.
type Payment struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID               uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	FulfillmentID         uuid.UUID           `gorm:"column:fulfillment_id;type:uuid;not null;uniqueIndex:payments_fulfillment_id_key"`
	Status                enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'INITIATED'"`
	OrderPaid             decimal.Decimal     `gorm:"column:order_paid;type:numeric(12,2);not null"`
	ShippingPaid          decimal.Decimal     `gorm:"column:shipping_paid;type:numeric(12,2);not null"`
	TotalPaid             decimal.Decimal     `gorm:"column:total_paid;type:numeric(12,2);not null"`
	StripePaymentIntentID *string             `gorm:"column:stripe_payment_intent_id"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (Payment) TableName() string { return "payments" }
