package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineTotal is quantity × unit price rounded to cents.
func LineTotal(quantity float64, unit decimal.Decimal) decimal.Decimal {
	return decimal.NewFromFloat(quantity).Mul(unit).Round(2)
}

// DefaultExpiry is the expiry implied by the product's shelf life, or nil when
// the product does not track expiry.
func (p *Product) DefaultExpiry(purchased time.Time) *time.Time {
	if !p.TrackExpiry || p.ShelfLifeDays <= 0 {
		return nil
	}
	d := truncateDay(purchased).AddDate(0, 0, p.ShelfLifeDays)
	return &d
}
