package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodUPI          PaymentMethod = "upi"
	MethodOther        PaymentMethod = "other"
)

type Payment struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	SaleID      uint            `gorm:"index;not null" json:"sale_id"`
	Amount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	PaymentDate time.Time       `gorm:"type:date;index;not null" json:"payment_date"`
	Method      PaymentMethod   `gorm:"size:20;not null" json:"method"`
	Note        string          `gorm:"size:255" json:"note"`
	CreatedBy   uint            `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}
