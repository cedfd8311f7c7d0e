package report

import (
	"testing"
	"time"

	"dairy-backend/internal/apitest"
	"dairy-backend/internal/dbtest"
	"dairy-backend/internal/inventory"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func d(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedMonth(t *testing.T, db *gorm.DB) {
	t.Helper()
	milk := models.Product{Name: "Milk", Unit: "litre", CostPrice: decimal.NewFromInt(40), SellingPrice: decimal.NewFromInt(50)}
	paneer := models.Product{Name: "Paneer", Unit: "kg", CostPrice: decimal.NewFromInt(300), SellingPrice: decimal.NewFromInt(400)}
	require.NoError(t, db.Create(&milk).Error)
	require.NoError(t, db.Create(&paneer).Error)

	require.NoError(t, db.Create(&models.Purchase{ProductID: milk.ID, Quantity: 100, UnitCost: milk.CostPrice, TotalCost: decimal.NewFromInt(4000), PurchaseDate: d("2024-05-01")}).Error)

	s1 := models.Sale{ProductID: milk.ID, Quantity: 10, UnitPrice: milk.SellingPrice, TotalAmount: decimal.NewFromInt(500),
		AmountPaid: decimal.NewFromInt(500), PaymentStatus: models.PaymentPaid, SaleDate: d("2024-05-02")}
	s2 := models.Sale{ProductID: paneer.ID, Quantity: 2, UnitPrice: paneer.SellingPrice, TotalAmount: decimal.NewFromInt(800),
		AmountPaid: decimal.NewFromInt(300), PaymentStatus: models.PaymentPending, SaleDate: d("2024-05-02")}
	s3 := models.Sale{ProductID: milk.ID, Quantity: 20, UnitPrice: milk.SellingPrice, TotalAmount: decimal.NewFromInt(1000),
		PaymentStatus: models.PaymentPending, SaleDate: d("2024-06-01")}
	for _, s := range []*models.Sale{&s1, &s2, &s3} {
		require.NoError(t, db.Create(s).Error)
	}
	require.NoError(t, db.Create(&models.Payment{SaleID: s1.ID, Amount: decimal.NewFromInt(500), PaymentDate: d("2024-05-02"), Method: models.MethodCash}).Error)
	require.NoError(t, db.Create(&models.Payment{SaleID: s2.ID, Amount: decimal.NewFromInt(300), PaymentDate: d("2024-05-03"), Method: models.MethodUPI}).Error)

	require.NoError(t, db.Create(&models.Expense{Category: "fuel", Amount: decimal.NewFromInt(120), ExpenseDate: d("2024-05-02")}).Error)
	require.NoError(t, db.Create(&models.Waste{ProductID: milk.ID, Quantity: 2, Reason: models.WasteExpired, CostValue: decimal.NewFromInt(80), WasteDate: d("2024-05-31")}).Error)
}

func TestTotalsBetween_Integration(t *testing.T) {
	db := dbtest.Open(t)
	seedMonth(t, db)

	tot, err := TotalsBetween(db, d("2024-05-01"), d("2024-05-31"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), tot.SalesCount)
	assert.Equal(t, 12.0, tot.QuantitySold)
	assert.Equal(t, "1300.00", tot.Revenue.StringFixed(2))
	assert.Equal(t, "800.00", tot.Collected.StringFixed(2))
	assert.Equal(t, "500.00", tot.Outstanding.StringFixed(2))
	assert.Equal(t, "1000.00", tot.CostOfGoodsSold.StringFixed(2))
	assert.Equal(t, "4000.00", tot.PurchasesCost.StringFixed(2))
	assert.Equal(t, "120.00", tot.Expenses.StringFixed(2))
	assert.Equal(t, "80.00", tot.WasteCost.StringFixed(2))
	assert.Equal(t, "300.00", tot.GrossProfit.StringFixed(2))
	assert.Equal(t, "100.00", tot.NetProfit.StringFixed(2))
}

func TestMonthlyAndDailyHandlers_Integration(t *testing.T) {
	db := dbtest.Open(t)
	seedMonth(t, db)

	app := apitest.NewApp(apitest.Admin())
	app.Get("/reports/daily", DailyHandler(db))
	app.Get("/reports/monthly", MonthlyHandler(db))
	app.Get("/reports/dashboard", DashboardHandler(db, inventory.NewGormSource(db)))

	var daily DailyReport
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/reports/daily?date=2024-05-02", nil, &daily))
	assert.Equal(t, int64(2), daily.SalesCount)
	assert.Equal(t, "500.00", daily.Collected.StringFixed(2))

	var monthly MonthlyReport
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/reports/monthly?year=2024&month=5", nil, &monthly))
	require.Len(t, monthly.Days, 31)
	assert.Equal(t, "2024-05-02", monthly.Days[1].Date)
	assert.Equal(t, int64(2), monthly.Days[1].SalesCount)
	assert.Equal(t, "1300.00", monthly.Days[1].Revenue.StringFixed(2))
	assert.Equal(t, "300.00", monthly.Days[2].Collected.StringFixed(2))
	assert.Equal(t, "80.00", monthly.Days[30].WasteCost.StringFixed(2))
	assert.Equal(t, "100.00", monthly.NetProfit.StringFixed(2))

	status, _ := apitest.Do(t, app, "GET", "/reports/daily?date=yesterday", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	var dash Dashboard
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/reports/dashboard", nil, &dash))
	assert.Equal(t, 2, dash.ProductCount)
	assert.Equal(t, "1500.00", dash.Receivables.StringFixed(2))
	require.Len(t, dash.TopProducts, 2)
	assert.Equal(t, "Milk", dash.TopProducts[0].Name)
	assert.Equal(t, 30.0, dash.TopProducts[0].QuantitySold)
}
