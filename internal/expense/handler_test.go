package expense

import (
	"strconv"
	"testing"

	"dairy-backend/internal/apitest"
	"dairy-backend/internal/dbtest"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenses_Integration(t *testing.T) {
	db := dbtest.Open(t)

	app := apitest.NewApp(apitest.Admin())
	app.Get("/expenses/summary", MonthlySummaryHandler(db))
	app.Get("/expenses", ListExpensesHandler(db))
	app.Get("/expenses/:id", GetExpenseHandler(db))
	app.Post("/expenses", CreateExpenseHandler(db))
	app.Put("/expenses/:id", UpdateExpenseHandler(db))
	app.Delete("/expenses/:id", DeleteExpenseHandler(db))

	seed := []map[string]any{
		{"category": "fuel", "amount": "120.50", "expense_date": "2024-05-03", "payment_method": "cash"},
		{"category": "fuel", "amount": "79.50", "expense_date": "2024-05-20"},
		{"category": "rent", "amount": "5000", "expense_date": "2024-05-01", "payment_method": "bank_transfer"},
		{"category": "rent", "amount": "5000", "expense_date": "2024-06-01"},
	}
	var first models.Expense
	for i, body := range seed {
		var e models.Expense
		require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/expenses", body, &e))
		if i == 0 {
			first = e
		}
	}

	status, _ := apitest.Do(t, app, "POST", "/expenses", map[string]any{"category": "fuel", "amount": 0})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = apitest.Do(t, app, "POST", "/expenses", map[string]any{"category": "fuel", "amount": 5, "payment_method": "cheque"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	var summary MonthlySummaryResponse
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/expenses/summary?year=2024&month=5", nil, &summary))
	require.Len(t, summary.Items, 2)
	assert.Equal(t, "rent", summary.Items[0].Category)
	assert.Equal(t, "200.00", summary.Items[1].Total.StringFixed(2))
	assert.Equal(t, int64(2), summary.Items[1].Count)
	assert.Equal(t, "5200.00", summary.GrandTotal.StringFixed(2))

	var page httpx.PageResponse[models.Expense]
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/expenses?category=FUEL", nil, &page))
	assert.Equal(t, int64(2), page.Count)

	id := strconv.FormatUint(uint64(first.ID), 10)
	var updated models.Expense
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "PUT", "/expenses/"+id, map[string]any{"amount": "100"}, &updated))
	assert.Equal(t, "100.00", updated.Amount.StringFixed(2))

	status, _ = apitest.Do(t, app, "DELETE", "/expenses/"+id, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = apitest.Do(t, app, "GET", "/expenses/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}
