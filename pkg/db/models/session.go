package models

import "time"

// Session stores the offline access token for a connected Shopify store.
// The ID is the Shopify session identifier and acts as the store identity
// everywhere else in the schema.
type Session struct {
	ID            string     `gorm:"column:id;primaryKey"`
	Shop          string     `gorm:"column:shop;not null;uniqueIndex:sessions_shop_key"`
	State         string     `gorm:"column:state;not null"`
	IsOnline      bool       `gorm:"column:is_online;not null;default:false"`
	Scope         *string    `gorm:"column:scope"`
	Expires       *time.Time `gorm:"column:expires"`
	AccessToken   string     `gorm:"column:access_token;not null"`
	UserID        *int64     `gorm:"column:user_id"`
	FirstName     *string    `gorm:"column:first_name"`
	LastName      *string    `gorm:"column:last_name"`
	Email         *string    `gorm:"column:email"`
	AccountOwner  bool       `gorm:"column:account_owner;not null;default:false"`
	Locale        *string    `gorm:"column:locale"`
	Collaborator  *bool      `gorm:"column:collaborator"`
	EmailVerified *bool      `gorm:"column:email_verified"`
}

func (Session) TableName() string { return "sessions" }
