package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type WasteReason string

const (
	WasteExpired WasteReason = "expired"
	WasteDamaged WasteReason = "damaged"
	WasteOther   WasteReason = "other"
)

func (r WasteReason) Valid() bool {
	switch r {
	case WasteExpired, WasteDamaged, WasteOther:
		return true
	}
	return false
}

// Waste is a stock-out ledger row for spoiled or damaged goods.
type Waste struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Product   *Product        `gorm:"constraint:OnDelete:RESTRICT;" json:"product,omitempty"`
	Quantity  float64         `gorm:"not null" json:"quantity"`
	Reason    WasteReason     `gorm:"size:20;not null" json:"reason"`
	CostValue decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"cost_value"`
	WasteDate time.Time       `gorm:"type:date;index;not null" json:"waste_date"`
	Note      string          `gorm:"size:255" json:"note"`
	CreatedBy uint            `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Waste) TableName() string { return "waste" }
