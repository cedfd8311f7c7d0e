package inventory

import (
	"cmp"
	"slices"
	"strings"

	"dairy-backend/internal/httpx"

	"github.com/gofiber/fiber/v2"
)

// Query filters and orders a snapshot list.
type Query struct {
	Search   string
	Category string
	Sort     string
	Desc     bool
}

type sortKey struct {
	text   func(Snapshot) string
	number func(Snapshot) (float64, bool)
}

func num(f func(Snapshot) float64) sortKey {
	return sortKey{number: func(s Snapshot) (float64, bool) { return f(s), true }}
}

func text(f func(Snapshot) string) sortKey {
	return sortKey{text: func(s Snapshot) string { return strings.ToLower(f(s)) }}
}

var sortKeys = map[string]sortKey{
	"name":            text(func(s Snapshot) string { return s.Name }),
	"category":        text(func(s Snapshot) string { return s.Category }),
	"unit":            text(func(s Snapshot) string { return s.Unit }),
	"current_stock":   num(func(s Snapshot) float64 { return s.CurrentStock }),
	"min_stock":       num(func(s Snapshot) float64 { return s.MinStock }),
	"total_purchased": num(func(s Snapshot) float64 { return s.TotalPurchased }),
	"total_sold":      num(func(s Snapshot) float64 { return s.TotalSold }),
	"total_wasted":    num(func(s Snapshot) float64 { return s.TotalWasted }),
	"stock_value":     num(func(s Snapshot) float64 { return s.StockValue.InexactFloat64() }),
	"cost_price":      num(func(s Snapshot) float64 { return s.CostPrice.InexactFloat64() }),
	"selling_price":   num(func(s Snapshot) float64 { return s.SellingPrice.InexactFloat64() }),
	"days_until_expiry": {number: func(s Snapshot) (float64, bool) {
		if s.DaysUntilExpiry == nil {
			return 0, false
		}
		return float64(*s.DaysUntilExpiry), true
	}},
}

// ParseQuery reads ?search= &category= &sort= &order=asc|desc.
func ParseQuery(c *fiber.Ctx) (Query, error) {
	q := Query{
		Search:   strings.TrimSpace(c.Query("search")),
		Category: strings.TrimSpace(c.Query("category")),
		Sort:     strings.ToLower(strings.TrimSpace(c.Query("sort", "name"))),
	}
	if _, ok := sortKeys[q.Sort]; !ok {
		return Query{}, httpx.BadRequest("unsupported sort field: " + q.Sort)
	}
	switch strings.ToLower(c.Query("order", "asc")) {
	case "asc":
	case "desc":
		q.Desc = true
	default:
		return Query{}, httpx.BadRequest("order must be asc or desc")
	}
	return q, nil
}

// Apply returns the matching snapshots in the requested order. Equal keys
// keep their input order, and products without an expiry sort last either way.
func Apply(snaps []Snapshot, q Query) []Snapshot {
	search := strings.ToLower(q.Search)
	category := strings.ToLower(q.Category)

	out := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Category), search) {
			continue
		}
		if category != "" && strings.ToLower(s.Category) != category {
			continue
		}
		out = append(out, s)
	}

	key, ok := sortKeys[q.Sort]
	if !ok {
		key = sortKeys["name"]
	}
	slices.SortStableFunc(out, func(a, b Snapshot) int {
		return compare(key, a, b, q.Desc)
	})
	return out
}

func compare(key sortKey, a, b Snapshot, desc bool) int {
	var c int
	if key.text != nil {
		c = strings.Compare(key.text(a), key.text(b))
	} else {
		av, aok := key.number(a)
		bv, bok := key.number(b)
		switch {
		case !aok && !bok:
			return 0
		case !aok:
			return 1
		case !bok:
			return -1
		}
		c = cmp.Compare(av, bv)
	}
	if desc {
		return -c
	}
	return c
}
