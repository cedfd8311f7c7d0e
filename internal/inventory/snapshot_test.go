package inventory

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"dairy-backend/internal/dbtest"
	"dairy-backend/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sampleProducts() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Milk", Category: "milk", Unit: "litre", CostPrice: decimal.RequireFromString("40.50"), MinStock: 20, TrackExpiry: true},
		{ID: 2, Name: "Paneer", Category: "cheese", Unit: "kg", CostPrice: decimal.NewFromInt(300), MinStock: 2},
		{ID: 3, Name: "Curd", Category: "milk", Unit: "kg", CostPrice: decimal.NewFromInt(60), TrackExpiry: true},
	}
}

func TestBuildSnapshot_Stock(t *testing.T) {
	l := Ledger{
		Products: sampleProducts(),
		Purchases: []Receipt{
			{ProductID: 1, Quantity: 50},
			{ProductID: 1, Quantity: 30},
			{ProductID: 2, Quantity: 5},
			{ProductID: 99, Quantity: 1000},
		},
		Sales: []Movement{{ProductID: 1, Quantity: 45}, {ProductID: 2, Quantity: 1}},
		Waste: []Movement{{ProductID: 1, Quantity: 5}},
	}

	snaps := BuildSnapshot(l, today)
	require.Len(t, snaps, 3)

	milk := snaps[0]
	assert.Equal(t, 80.0, milk.TotalPurchased)
	assert.Equal(t, 45.0, milk.TotalSold)
	assert.Equal(t, 5.0, milk.TotalWasted)
	assert.Equal(t, 30.0, milk.CurrentStock)
	assert.Equal(t, "1215.00", milk.StockValue.StringFixed(2))
	assert.False(t, milk.IsLowStock)

	paneer := snaps[1]
	assert.Equal(t, 4.0, paneer.CurrentStock)
	assert.False(t, paneer.IsLowStock)

	curd := snaps[2]
	assert.Equal(t, 0.0, curd.CurrentStock)
	assert.True(t, curd.IsLowStock, "zero stock with zero minimum is low")
	assert.True(t, curd.StockValue.IsZero())
}

func TestBuildSnapshot_LowStockBoundary(t *testing.T) {
	l := Ledger{
		Products:  []models.Product{{ID: 1, Name: "Milk", MinStock: 10}},
		Purchases: []Receipt{{ProductID: 1, Quantity: 10}},
	}
	assert.True(t, BuildSnapshot(l, today)[0].IsLowStock)

	l.Purchases[0].Quantity = 10.5
	assert.False(t, BuildSnapshot(l, today)[0].IsLowStock)
}

func TestBuildSnapshot_NonFiniteQuantitiesCountAsZero(t *testing.T) {
	l := Ledger{
		Products:  []models.Product{{ID: 1, Name: "Milk", CostPrice: decimal.NewFromInt(1)}},
		Purchases: []Receipt{{ProductID: 1, Quantity: 10}, {ProductID: 1, Quantity: math.NaN()}},
		Sales:     []Movement{{ProductID: 1, Quantity: math.Inf(1)}},
		Waste:     []Movement{{ProductID: 1, Quantity: math.Inf(-1)}},
	}
	s := BuildSnapshot(l, today)[0]
	assert.Equal(t, 10.0, s.CurrentStock)
	assert.Equal(t, "10.00", s.StockValue.StringFixed(2))
}

func TestBuildSnapshot_Expiry(t *testing.T) {
	tests := []struct {
		name     string
		receipts []Receipt
		sold     float64
		want     *int
	}{
		{
			name:     "nearest upcoming batch",
			receipts: []Receipt{{ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 15)}, {ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 12)}},
			want:     intp(2),
		},
		{
			name:     "expires today",
			receipts: []Receipt{{ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 10)}},
			want:     intp(0),
		},
		{
			name:     "past batches ignored while a future one exists",
			receipts: []Receipt{{ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 1)}, {ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 20)}},
			want:     intp(10),
		},
		{
			name:     "all expired reports the latest",
			receipts: []Receipt{{ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 1)}, {ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 7)}},
			want:     intp(-3),
		},
		{
			name:     "no dated batches",
			receipts: []Receipt{{ProductID: 1, Quantity: 5}},
			want:     nil,
		},
		{
			name:     "nothing left in stock",
			receipts: []Receipt{{ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 12)}},
			sold:     5,
			want:     nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Ledger{
				Products:  []models.Product{{ID: 1, Name: "Milk", TrackExpiry: true}},
				Purchases: tt.receipts,
				Sales:     []Movement{{ProductID: 1, Quantity: tt.sold}},
			}
			s := BuildSnapshot(l, today.Add(15*time.Hour))[0]
			if tt.want == nil {
				assert.Nil(t, s.DaysUntilExpiry)
				assert.Nil(t, s.NextExpiry)
				return
			}
			require.NotNil(t, s.DaysUntilExpiry)
			assert.Equal(t, *tt.want, *s.DaysUntilExpiry)
		})
	}
}

func TestBuildSnapshot_UntrackedProductHasNoExpiry(t *testing.T) {
	l := Ledger{
		Products:  []models.Product{{ID: 1, Name: "Ghee"}},
		Purchases: []Receipt{{ProductID: 1, Quantity: 5, ExpiryDate: date(2024, 5, 12)}},
	}
	assert.Nil(t, BuildSnapshot(l, today)[0].DaysUntilExpiry)
}

func TestBuildSnapshot_Empty(t *testing.T) {
	assert.Empty(t, BuildSnapshot(Ledger{}, today))
}

type failingSource struct{}

func (failingSource) Load(context.Context) (Ledger, error) {
	return Ledger{}, errors.New("sales query failed")
}

func TestBuild_FailsClosed(t *testing.T) {
	snaps, err := Build(context.Background(), failingSource{}, today)
	require.Error(t, err)
	assert.Nil(t, snaps)
}

func TestGormSource_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := models.Product{Name: "Milk", Unit: "litre", CostPrice: decimal.NewFromInt(40), TrackExpiry: true, MinStock: 5}
	require.NoError(t, db.Create(&milk).Error)
	require.NoError(t, db.Create(&models.Purchase{
		ProductID: milk.ID, Quantity: 20, UnitCost: milk.CostPrice, TotalCost: decimal.NewFromInt(800),
		PurchaseDate: today, ExpiryDate: date(2024, 5, 12),
	}).Error)
	require.NoError(t, db.Create(&models.Sale{
		ProductID: milk.ID, Quantity: 8, UnitPrice: decimal.NewFromInt(50), TotalAmount: decimal.NewFromInt(400),
		PaymentStatus: models.PaymentPending, SaleDate: today,
	}).Error)
	require.NoError(t, db.Create(&models.Waste{
		ProductID: milk.ID, Quantity: 2, Reason: models.WasteDamaged, CostValue: decimal.NewFromInt(80), WasteDate: today,
	}).Error)

	snaps, err := Build(context.Background(), NewGormSource(db), today)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 10.0, snaps[0].CurrentStock)
	assert.Equal(t, "400.00", snaps[0].StockValue.StringFixed(2))
	require.NotNil(t, snaps[0].DaysUntilExpiry)
	assert.Equal(t, 2, *snaps[0].DaysUntilExpiry)
}

func intp(v int) *int { return &v }
