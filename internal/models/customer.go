package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	Name    string `gorm:"size:100;not null;index" json:"name"`
	Phone   string `gorm:"size:30" json:"phone"`
	Email   string `gorm:"size:100" json:"email"`
	Address string `gorm:"size:255" json:"address"`
	// Zero means no limit.
	CreditLimit decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"credit_limit"`
	Notes       string          `gorm:"size:255" json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
