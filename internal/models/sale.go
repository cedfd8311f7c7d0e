package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentOverdue PaymentStatus = "overdue"
)

// Sale is a stock-out ledger row that also carries the receivable.
type Sale struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProductID     uint            `gorm:"index;not null" json:"product_id"`
	Product       *Product        `gorm:"constraint:OnDelete:RESTRICT;" json:"product,omitempty"`
	CustomerID    *uint           `gorm:"index" json:"customer_id"`
	Customer      *Customer       `gorm:"constraint:OnDelete:SET NULL;" json:"customer,omitempty"`
	Quantity      float64         `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	AmountPaid    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"amount_paid"`
	PaymentStatus PaymentStatus   `gorm:"size:20;index;not null" json:"payment_status"`
	SaleDate      time.Time       `gorm:"type:date;index;not null" json:"sale_date"`
	DueDate       *time.Time      `gorm:"type:date" json:"due_date"`
	Note          string          `gorm:"size:255" json:"note"`
	CreatedBy     uint            `json:"created_by"`
	Payments      []Payment       `gorm:"constraint:OnDelete:CASCADE;" json:"payments,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StatusFor is the stored status implied by an amount paid against a total.
func StatusFor(amountPaid, total decimal.Decimal) PaymentStatus {
	if amountPaid.GreaterThanOrEqual(total) {
		return PaymentPaid
	}
	return PaymentPending
}

// EffectiveStatus reports pending sales past their due date as overdue.
func (s *Sale) EffectiveStatus(today time.Time) PaymentStatus {
	if s.PaymentStatus == PaymentPending && s.DueDate != nil {
		due := truncateDay(*s.DueDate)
		if due.Before(truncateDay(today)) {
			return PaymentOverdue
		}
	}
	return s.PaymentStatus
}

// Outstanding is the unpaid part of the sale, never negative.
func (s *Sale) Outstanding() decimal.Decimal {
	rest := s.TotalAmount.Sub(s.AmountPaid)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
