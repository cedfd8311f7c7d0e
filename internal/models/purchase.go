package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is a stock-in ledger row.
type Purchase struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ProductID    uint            `gorm:"index;not null" json:"product_id"`
	Product      *Product        `gorm:"constraint:OnDelete:RESTRICT;" json:"product,omitempty"`
	Quantity     float64         `gorm:"not null" json:"quantity"`
	UnitCost     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_cost"`
	TotalCost    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_cost"`
	Supplier     string          `gorm:"size:100" json:"supplier"`
	PurchaseDate time.Time       `gorm:"type:date;index;not null" json:"purchase_date"`
	ExpiryDate   *time.Time      `gorm:"type:date" json:"expiry_date"`
	Note         string          `gorm:"size:255" json:"note"`
	CreatedBy    uint            `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
