package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Category     string          `gorm:"size:60;index" json:"category"`
	Unit         string          `gorm:"size:20;not null" json:"unit"` // litre, kg, packet...
	SellingPrice decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"selling_price"`
	CostPrice    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"cost_price"`
	MinStock     float64         `gorm:"not null;default:0" json:"min_stock"`
	// When TrackExpiry is set, purchases without an explicit expiry date get
	// purchase date + ShelfLifeDays.
	TrackExpiry   bool      `gorm:"not null;default:false" json:"track_expiry"`
	ShelfLifeDays int       `gorm:"not null;default:0" json:"shelf_life_days"`
	Description   string    `gorm:"size:255" json:"description"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
