package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	total := decimal.NewFromInt(500)

	assert.Equal(t, PaymentPending, StatusFor(decimal.Zero, total))
	assert.Equal(t, PaymentPending, StatusFor(decimal.NewFromInt(499), total))
	assert.Equal(t, PaymentPaid, StatusFor(decimal.NewFromInt(500), total))
	assert.Equal(t, PaymentPaid, StatusFor(decimal.NewFromInt(650), total))
}

func TestSale_EffectiveStatus(t *testing.T) {
	today := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	sameDay := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		sale Sale
		want PaymentStatus
	}{
		{"pending without due date", Sale{PaymentStatus: PaymentPending}, PaymentPending},
		{"pending past due", Sale{PaymentStatus: PaymentPending, DueDate: &yesterday}, PaymentOverdue},
		{"pending due today", Sale{PaymentStatus: PaymentPending, DueDate: &sameDay}, PaymentPending},
		{"paid past due", Sale{PaymentStatus: PaymentPaid, DueDate: &yesterday}, PaymentPaid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sale.EffectiveStatus(today))
		})
	}
}

func TestSale_Outstanding(t *testing.T) {
	s := Sale{TotalAmount: decimal.NewFromInt(500), AmountPaid: decimal.NewFromInt(200)}
	assert.True(t, s.Outstanding().Equal(decimal.NewFromInt(300)))

	s.AmountPaid = decimal.NewFromInt(700)
	assert.True(t, s.Outstanding().IsZero())
}

func TestEnums_Valid(t *testing.T) {
	assert.True(t, RoleManager.Valid())
	assert.False(t, UserRole("owner").Valid())
	assert.True(t, WasteDamaged.Valid())
	assert.False(t, WasteReason("stolen").Valid())
}
