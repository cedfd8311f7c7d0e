package report

import (
	"slices"
	"strconv"

	"dairy-backend/internal/httpx"
	"dairy-backend/internal/inventory"

	"github.com/gofiber/fiber/v2"
)

const defaultExpiryWindow = 7

func snapshots(c *fiber.Ctx, src inventory.Source) ([]inventory.Snapshot, error) {
	snaps, err := inventory.Build(c.UserContext(), src, httpx.Today())
	if err != nil {
		return nil, httpx.DBError(err, "", "could not build inventory")
	}
	return snaps, nil
}

// GET /api/reports/inventory?search=&category=&sort=current_stock&order=desc&page=1&limit=10
func InventoryHandler(src inventory.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := inventory.ParseQuery(c)
		if err != nil {
			return err
		}
		snaps, err := snapshots(c, src)
		if err != nil {
			return err
		}
		return c.JSON(httpx.PageOf(inventory.Apply(snaps, q), httpx.ParsePage(c)))
	}
}

// LowStock returns products at or below their minimum, emptiest first.
func LowStock(snaps []inventory.Snapshot) []inventory.Snapshot {
	out := make([]inventory.Snapshot, 0)
	for _, s := range snaps {
		if s.IsLowStock {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b inventory.Snapshot) int {
		switch {
		case a.CurrentStock < b.CurrentStock:
			return -1
		case a.CurrentStock > b.CurrentStock:
			return 1
		}
		return 0
	})
	return out
}

// Expiring returns tracked products whose next expiry is within days,
// soonest first. Already expired stock is included.
func Expiring(snaps []inventory.Snapshot, days int) []inventory.Snapshot {
	out := make([]inventory.Snapshot, 0)
	for _, s := range snaps {
		if s.DaysUntilExpiry != nil && *s.DaysUntilExpiry <= days {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b inventory.Snapshot) int {
		return *a.DaysUntilExpiry - *b.DaysUntilExpiry
	})
	return out
}

// GET /api/reports/low-stock
func LowStockHandler(src inventory.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snaps, err := snapshots(c, src)
		if err != nil {
			return err
		}
		return c.JSON(LowStock(snaps))
	}
}

// GET /api/reports/expiring?days=7
func ExpiringHandler(src inventory.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		days := defaultExpiryWindow
		if raw := c.Query("days"); raw != "" {
			d, err := strconv.Atoi(raw)
			if err != nil || d < 0 || d > 365 {
				return httpx.BadRequest("days must be between 0 and 365")
			}
			days = d
		}
		snaps, err := snapshots(c, src)
		if err != nil {
			return err
		}
		return c.JSON(Expiring(snaps, days))
	}
}
