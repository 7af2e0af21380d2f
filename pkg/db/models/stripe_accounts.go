package models

import (
	"github.com/google/uuid"
)

// StripeConnectAccount holds the connected account payments to a supplier are
// transferred into.
type StripeConnectAccount struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SupplierID      string    `gorm:"column:supplier_id;not null;uniqueIndex:stripe_connect_accounts_supplier_id_key"`
	StripeAccountID string    `gorm:"column:stripe_account_id;not null"`
}

func (StripeConnectAccount) TableName() string { return "stripe_connect_accounts" }

// StripeCustomerAccount holds the customer a retailer is charged as.
type StripeCustomerAccount struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RetailerID       string    `gorm:"column:retailer_id;not null;uniqueIndex:stripe_customer_accounts_retailer_id_key"`
	StripeCustomerID string    `gorm:"column:stripe_customer_id;not null"`
}

func (StripeCustomerAccount) TableName() string { return "stripe_customer_accounts" }
