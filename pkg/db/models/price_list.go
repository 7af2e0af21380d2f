package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/synqsell/synqsell-backend/pkg/enums"
)

// PriceList groups a supplier's published products under one pricing strategy.
// Margin is only populated for MARGIN lists.
type PriceList struct {
	ID                       uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                     string                `gorm:"column:name;not null"`
	IsGeneral                bool                  `gorm:"column:is_general;not null;default:false"`
	RequiresApprovalToImport bool                  `gorm:"column:requires_approval_to_import;not null;default:false"`
	PricingStrategy          enums.PricingStrategy `gorm:"column:pricing_strategy;type:text;not null"`
	SupplierID               string                `gorm:"column:supplier_id;not null"`
	Margin                   *float64              `gorm:"column:margin"`
	CreatedAt                time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (PriceList) TableName() string { return "price_lists" }
