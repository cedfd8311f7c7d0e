package inventory

import (
	"math"
	"time"

	"dairy-backend/internal/models"

	"github.com/shopspring/decimal"
)

// Movement is one ledger row reduced to what stock needs.
type Movement struct {
	ProductID uint
	Quantity  float64
}

// Receipt is a purchase row with the expiry of the batch it brought in.
type Receipt struct {
	ProductID  uint
	Quantity   float64
	ExpiryDate *time.Time
}

// Ledger is every row the snapshot is derived from.
type Ledger struct {
	Products  []models.Product
	Purchases []Receipt
	Sales     []Movement
	Waste     []Movement
}

// Snapshot is the derived stock position of one product.
type Snapshot struct {
	ProductID       uint            `json:"product_id"`
	Name            string          `json:"name"`
	Category        string          `json:"category"`
	Unit            string          `json:"unit"`
	CostPrice       decimal.Decimal `json:"cost_price"`
	SellingPrice    decimal.Decimal `json:"selling_price"`
	MinStock        float64         `json:"min_stock"`
	TotalPurchased  float64         `json:"total_purchased"`
	TotalSold       float64         `json:"total_sold"`
	TotalWasted     float64         `json:"total_wasted"`
	CurrentStock    float64         `json:"current_stock"`
	StockValue      decimal.Decimal `json:"stock_value"`
	IsLowStock      bool            `json:"is_low_stock"`
	TrackExpiry     bool            `json:"track_expiry"`
	NextExpiry      *time.Time      `json:"next_expiry"`
	DaysUntilExpiry *int            `json:"days_until_expiry"`
}

type totals struct {
	purchased, sold, wasted float64
	expiries                []time.Time
}

// BuildSnapshot derives one snapshot per product, in product order.
// Rows for unknown products are ignored.
func BuildSnapshot(l Ledger, today time.Time) []Snapshot {
	today = day(today)
	byProduct := make(map[uint]*totals, len(l.Products))
	for _, p := range l.Products {
		byProduct[p.ID] = &totals{}
	}

	for _, r := range l.Purchases {
		if t, ok := byProduct[r.ProductID]; ok {
			t.purchased += finite(r.Quantity)
			if r.ExpiryDate != nil {
				t.expiries = append(t.expiries, day(*r.ExpiryDate))
			}
		}
	}
	for _, m := range l.Sales {
		if t, ok := byProduct[m.ProductID]; ok {
			t.sold += finite(m.Quantity)
		}
	}
	for _, m := range l.Waste {
		if t, ok := byProduct[m.ProductID]; ok {
			t.wasted += finite(m.Quantity)
		}
	}

	out := make([]Snapshot, 0, len(l.Products))
	for _, p := range l.Products {
		t := byProduct[p.ID]
		current := t.purchased - t.sold - t.wasted
		s := Snapshot{
			ProductID:      p.ID,
			Name:           p.Name,
			Category:       p.Category,
			Unit:           p.Unit,
			CostPrice:      p.CostPrice,
			SellingPrice:   p.SellingPrice,
			MinStock:       p.MinStock,
			TotalPurchased: t.purchased,
			TotalSold:      t.sold,
			TotalWasted:    t.wasted,
			CurrentStock:   current,
			StockValue:     decimal.NewFromFloat(current).Mul(p.CostPrice).Round(2),
			IsLowStock:     current <= p.MinStock,
			TrackExpiry:    p.TrackExpiry,
		}
		if p.TrackExpiry && current > 0 {
			if exp, ok := nextExpiry(t.expiries, today); ok {
				days := daysBetween(today, exp)
				s.NextExpiry = &exp
				s.DaysUntilExpiry = &days
			}
		}
		out = append(out, s)
	}
	return out
}

// nextExpiry picks the earliest expiry on or after today. When every batch
// has already expired it returns the latest one, which yields a negative
// day count.
func nextExpiry(expiries []time.Time, today time.Time) (time.Time, bool) {
	var upcoming, latest time.Time
	for _, e := range expiries {
		if !e.Before(today) && (upcoming.IsZero() || e.Before(upcoming)) {
			upcoming = e
		}
		if latest.IsZero() || e.After(latest) {
			latest = e
		}
	}
	switch {
	case !upcoming.IsZero():
		return upcoming, true
	case !latest.IsZero():
		return latest, true
	}
	return time.Time{}, false
}

func daysBetween(from, to time.Time) int {
	return int(math.Ceil(to.Sub(from).Hours() / 24))
}

func finite(q float64) float64 {
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
