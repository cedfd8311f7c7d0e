package report

import (
	"time"

	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Totals are the money movements of a date range. Cost of goods sold uses
// each product's current cost price.
type Totals struct {
	SalesCount      int64           `json:"sales_count"`
	QuantitySold    float64         `json:"quantity_sold"`
	Revenue         decimal.Decimal `json:"revenue"`
	Collected       decimal.Decimal `json:"collected"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	CostOfGoodsSold decimal.Decimal `json:"cost_of_goods_sold"`
	PurchasesCost   decimal.Decimal `json:"purchases_cost"`
	Expenses        decimal.Decimal `json:"expenses"`
	WasteCost       decimal.Decimal `json:"waste_cost"`
	GrossProfit     decimal.Decimal `json:"gross_profit"`
	NetProfit       decimal.Decimal `json:"net_profit"`
}

// Finish derives the profit lines from the collected sums.
func (t *Totals) Finish() {
	t.GrossProfit = t.Revenue.Sub(t.CostOfGoodsSold)
	t.NetProfit = t.GrossProfit.Sub(t.Expenses).Sub(t.WasteCost)
}

type DayTotals struct {
	Date          string          `json:"date"`
	SalesCount    int64           `json:"sales_count"`
	Revenue       decimal.Decimal `json:"revenue"`
	Collected     decimal.Decimal `json:"collected"`
	PurchasesCost decimal.Decimal `json:"purchases_cost"`
	Expenses      decimal.Decimal `json:"expenses"`
	WasteCost     decimal.Decimal `json:"waste_cost"`
}

type DailyReport struct {
	Date string `json:"date"`
	Totals
}

type MonthlyReport struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	From  string      `json:"from"`
	To    string      `json:"to"`
	Days  []DayTotals `json:"days"`
	Totals
}

type saleSums struct {
	SalesCount   int64
	QuantitySold float64
	Revenue      decimal.Decimal
	Outstanding  decimal.Decimal
	Cogs         decimal.Decimal
}

type amountSum struct {
	Total decimal.Decimal
}

// TotalsBetween sums every ledger over the inclusive date range.
func TotalsBetween(db *gorm.DB, from, to time.Time) (Totals, error) {
	var s saleSums
	err := db.Table("sales").
		Select(`COUNT(sales.id) AS sales_count,
			COALESCE(SUM(sales.quantity), 0) AS quantity_sold,
			COALESCE(SUM(sales.total_amount), 0) AS revenue,
			COALESCE(SUM(GREATEST(sales.total_amount - sales.amount_paid, 0)), 0) AS outstanding,
			COALESCE(ROUND(SUM(sales.quantity::numeric * products.cost_price), 2), 0) AS cogs`).
		Joins("JOIN products ON products.id = sales.product_id").
		Where("sales.sale_date BETWEEN ? AND ?", from, to).
		Scan(&s).Error
	if err != nil {
		return Totals{}, err
	}

	t := Totals{
		SalesCount:      s.SalesCount,
		QuantitySold:    s.QuantitySold,
		Revenue:         s.Revenue,
		Outstanding:     s.Outstanding,
		CostOfGoodsSold: s.Cogs,
	}
	sums := []struct {
		model  any
		column string
		date   string
		dst    *decimal.Decimal
	}{
		{&models.Payment{}, "amount", "payment_date", &t.Collected},
		{&models.Purchase{}, "total_cost", "purchase_date", &t.PurchasesCost},
		{&models.Expense{}, "amount", "expense_date", &t.Expenses},
		{&models.Waste{}, "cost_value", "waste_date", &t.WasteCost},
	}
	for _, sum := range sums {
		var row amountSum
		err := db.Model(sum.model).
			Select("COALESCE(SUM("+sum.column+"), 0) AS total").
			Where(sum.date+" BETWEEN ? AND ?", from, to).
			Scan(&row).Error
		if err != nil {
			return Totals{}, err
		}
		*sum.dst = row.Total
	}
	t.Finish()
	return t, nil
}

type dayRow struct {
	Day   time.Time
	Count int64
	Total decimal.Decimal
}

// DailyBreakdown returns one row per day in the range, zero-filled.
func DailyBreakdown(db *gorm.DB, from, to time.Time) ([]DayTotals, error) {
	days := make([]DayTotals, 0, int(to.Sub(from).Hours()/24)+1)
	index := make(map[string]int)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format(httpx.DateLayout)
		index[key] = len(days)
		days = append(days, DayTotals{Date: key})
	}

	grouped := []struct {
		model  any
		column string
		date   string
		apply  func(*DayTotals, dayRow)
	}{
		{&models.Sale{}, "total_amount", "sale_date", func(d *DayTotals, r dayRow) { d.SalesCount, d.Revenue = r.Count, r.Total }},
		{&models.Payment{}, "amount", "payment_date", func(d *DayTotals, r dayRow) { d.Collected = r.Total }},
		{&models.Purchase{}, "total_cost", "purchase_date", func(d *DayTotals, r dayRow) { d.PurchasesCost = r.Total }},
		{&models.Expense{}, "amount", "expense_date", func(d *DayTotals, r dayRow) { d.Expenses = r.Total }},
		{&models.Waste{}, "cost_value", "waste_date", func(d *DayTotals, r dayRow) { d.WasteCost = r.Total }},
	}
	for _, g := range grouped {
		var rows []dayRow
		err := db.Model(g.model).
			Select(g.date+" AS day, COUNT(*) AS count, COALESCE(SUM("+g.column+"), 0) AS total").
			Where(g.date+" BETWEEN ? AND ?", from, to).
			Group(g.date).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			if i, ok := index[r.Day.UTC().Format(httpx.DateLayout)]; ok {
				g.apply(&days[i], r)
			}
		}
	}
	return days, nil
}

// GET /api/reports/daily?date=2024-05-10
func DailyHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := httpx.ParseDate(c.Query("date"), httpx.Today())
		if err != nil {
			return err
		}
		t, err := TotalsBetween(db.WithContext(c.UserContext()), day, day)
		if err != nil {
			return httpx.DBError(err, "", "could not build daily report")
		}
		return c.JSON(DailyReport{Date: day.Format(httpx.DateLayout), Totals: t})
	}
}

// GET /api/reports/monthly?year=2024&month=5
func MonthlyHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, month, err := httpx.YearMonth(c)
		if err != nil {
			return err
		}
		first, last := httpx.MonthBounds(year, month)
		scoped := db.WithContext(c.UserContext())

		t, err := TotalsBetween(scoped, first, last)
		if err != nil {
			return httpx.DBError(err, "", "could not build monthly report")
		}
		days, err := DailyBreakdown(scoped, first, last)
		if err != nil {
			return httpx.DBError(err, "", "could not build monthly report")
		}
		return c.JSON(MonthlyReport{
			Year:   year,
			Month:  int(month),
			From:   first.Format(httpx.DateLayout),
			To:     last.Format(httpx.DateLayout),
			Days:   days,
			Totals: t,
		})
	}
}
