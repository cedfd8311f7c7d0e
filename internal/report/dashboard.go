package report

import (
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/inventory"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const topProductsLimit = 5

type TopProduct struct {
	ProductID    uint            `json:"product_id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	QuantitySold float64         `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

type Dashboard struct {
	ProductCount     int             `json:"product_count"`
	TotalStockValue  decimal.Decimal `json:"total_stock_value"`
	LowStockCount    int             `json:"low_stock_count"`
	ExpiringCount    int             `json:"expiring_count"`
	TodayRevenue     decimal.Decimal `json:"today_revenue"`
	TodaySalesCount  int64           `json:"today_sales_count"`
	MonthRevenue     decimal.Decimal `json:"month_revenue"`
	MonthExpenses    decimal.Decimal `json:"month_expenses"`
	MonthNetProfit   decimal.Decimal `json:"month_net_profit"`
	Receivables      decimal.Decimal `json:"receivables"`
	OverdueSaleCount int64           `json:"overdue_sale_count"`
	TopProducts      []TopProduct    `json:"top_products"`
}

// Summarize fills the stock side of the dashboard from a snapshot.
func Summarize(snaps []inventory.Snapshot, d *Dashboard) {
	d.ProductCount = len(snaps)
	d.TotalStockValue = decimal.Zero
	for _, s := range snaps {
		d.TotalStockValue = d.TotalStockValue.Add(s.StockValue)
	}
	d.LowStockCount = len(LowStock(snaps))
	d.ExpiringCount = len(Expiring(snaps, defaultExpiryWindow))
}

// TopSelling ranks products by quantity sold over all time.
func TopSelling(db *gorm.DB, limit int) ([]TopProduct, error) {
	out := make([]TopProduct, 0, limit)
	err := db.Table("sales").
		Select(`products.id AS product_id, products.name, products.unit,
			SUM(sales.quantity) AS quantity_sold, SUM(sales.total_amount) AS revenue`).
		Joins("JOIN products ON products.id = sales.product_id").
		Group("products.id, products.name, products.unit").
		Order("quantity_sold DESC, products.name ASC").
		Limit(limit).
		Scan(&out).Error
	return out, err
}

type receivableSums struct {
	Outstanding decimal.Decimal
	Overdue     int64
}

// GET /api/reports/dashboard
func DashboardHandler(db *gorm.DB, src inventory.Source) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scoped := db.WithContext(c.UserContext())
		today := httpx.Today()

		snaps, err := snapshots(c, src)
		if err != nil {
			return err
		}
		var d Dashboard
		Summarize(snaps, &d)

		day, err := TotalsBetween(scoped, today, today)
		if err != nil {
			return httpx.DBError(err, "", "could not build dashboard")
		}
		first, last := httpx.MonthBounds(today.Year(), today.Month())
		month, err := TotalsBetween(scoped, first, last)
		if err != nil {
			return httpx.DBError(err, "", "could not build dashboard")
		}
		d.TodayRevenue = day.Revenue
		d.TodaySalesCount = day.SalesCount
		d.MonthRevenue = month.Revenue
		d.MonthExpenses = month.Expenses
		d.MonthNetProfit = month.NetProfit

		var r receivableSums
		err = scoped.Model(&models.Sale{}).
			Select(`COALESCE(SUM(GREATEST(total_amount - amount_paid, 0)), 0) AS outstanding,
				COUNT(*) FILTER (WHERE due_date < ?) AS overdue`, today).
			Where("payment_status = ?", models.PaymentPending).
			Scan(&r).Error
		if err != nil {
			return httpx.DBError(err, "", "could not build dashboard")
		}
		d.Receivables = r.Outstanding
		d.OverdueSaleCount = r.Overdue

		if d.TopProducts, err = TopSelling(scoped, topProductsLimit); err != nil {
			return httpx.DBError(err, "", "could not build dashboard")
		}
		return c.JSON(d)
	}
}
