package models

import "time"

type StockDirection string

const (
	StockIn  StockDirection = "in"
	StockOut StockDirection = "out"
)

type StockSource string

const (
	SourceImage  StockSource = "image"
	SourceManual StockSource = "manual"
)

// StockLog records every stock change made through the capture flow.
type StockLog struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	ProductID     uint           `gorm:"index;not null" json:"product_id"`
	Product       *Product       `gorm:"constraint:OnDelete:CASCADE;" json:"product,omitempty"`
	Direction     StockDirection `gorm:"size:5;not null" json:"direction"`
	Quantity      float64        `gorm:"not null" json:"quantity"`
	Source        StockSource    `gorm:"size:10;not null" json:"source"`
	ReferenceType string         `gorm:"size:20;not null" json:"reference_type"` // purchase | waste
	ReferenceID   uint           `gorm:"not null" json:"reference_id"`
	ImageURL      string         `gorm:"size:500" json:"image_url"`
	Analysis      string         `gorm:"type:jsonb" json:"analysis"`
	Note          string         `gorm:"size:255" json:"note"`
	UserID        uint           `gorm:"index" json:"user_id"`
	CreatedAt     time.Time      `json:"created_at"`
}
