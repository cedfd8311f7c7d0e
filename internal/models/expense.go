package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Category      string          `gorm:"size:60;index;not null" json:"category"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	ExpenseDate   time.Time       `gorm:"type:date;index;not null" json:"expense_date"`
	Description   string          `gorm:"size:255" json:"description"`
	PaymentMethod PaymentMethod   `gorm:"size:20" json:"payment_method"`
	CreatedBy     uint            `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
