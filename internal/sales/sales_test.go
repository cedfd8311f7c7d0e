package sales

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"

	"dairy-backend/internal/apitest"
	"dairy-backend/internal/dbtest"
	"dairy-backend/internal/events"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/metrics"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingPublisher struct {
	mu    sync.Mutex
	types []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventType, _ string, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.types = append(p.types, eventType)
}

func (p *recordingPublisher) Close() error { return nil }

func newApp(db *gorm.DB, pub events.Publisher, m *metrics.Metrics) *fiber.App {
	app := apitest.NewApp(apitest.Admin())
	app.Get("/sales", ListSalesHandler(db))
	app.Get("/sales/:id", GetSaleHandler(db))
	app.Post("/sales", CreateSaleHandler(db, pub))
	app.Put("/sales/:id", UpdateSaleHandler(db))
	app.Delete("/sales/:id", DeleteSaleHandler(db))
	app.Post("/payments", RecordPaymentHandler(db, pub, m))
	app.Get("/payments", ListPaymentsHandler(db))
	app.Get("/customers", ListCustomersHandler(db))
	app.Get("/customers/:id", GetCustomerHandler(db))
	app.Post("/customers", CreateCustomerHandler(db))
	app.Put("/customers/:id", UpdateCustomerHandler(db))
	app.Delete("/customers/:id", DeleteCustomerHandler(db))
	return app
}

func seedProduct(t *testing.T, db *gorm.DB) models.Product {
	t.Helper()
	p := models.Product{Name: "Milk", Unit: "litre", SellingPrice: decimal.NewFromInt(50), CostPrice: decimal.NewFromInt(40)}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func id(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func TestCreateSale_DefaultsAndInitialPayment_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)
	app := newApp(db, events.NopPublisher{}, metrics.New())

	var sale models.Sale
	status := apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "quantity": 4, "amount_paid": "50", "payment_method": "upi",
	}, &sale)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "200.00", sale.TotalAmount.StringFixed(2))
	assert.Equal(t, models.PaymentPending, sale.PaymentStatus)

	var payments []models.Payment
	require.NoError(t, db.Where("sale_id = ?", sale.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, models.MethodUPI, payments[0].Method)
	assert.Equal(t, "50.00", payments[0].Amount.StringFixed(2))

	var paidInFull models.Sale
	status = apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "quantity": 1, "unit_price": "45", "amount_paid": "45",
	}, &paidInFull)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, models.PaymentPaid, paidInFull.PaymentStatus)

	status, _ = apitest.Do(t, app, "POST", "/sales", map[string]any{"product_id": milk.ID, "quantity": 1, "amount_paid": "60"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = apitest.Do(t, app, "POST", "/sales", map[string]any{"product_id": milk.ID, "quantity": -1})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = apitest.Do(t, app, "POST", "/sales", map[string]any{"product_id": milk.ID, "quantity": 1, "customer_id": 404})
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestRecordPayment_Reconciles_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)
	m := metrics.New()
	pub := &recordingPublisher{}
	app := newApp(db, pub, m)

	var sale models.Sale
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "quantity": 2,
	}, &sale))

	var resp PaymentResponse
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/payments", map[string]any{
		"sale_id": sale.ID, "amount": "60", "method": "card",
	}, &resp))
	assert.Equal(t, "60.00", resp.Sale.AmountPaid.StringFixed(2))
	assert.Equal(t, models.PaymentPending, resp.Sale.PaymentStatus)

	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/payments", map[string]any{
		"sale_id": sale.ID, "amount": "40",
	}, &resp))
	assert.Equal(t, "100.00", resp.Sale.AmountPaid.StringFixed(2))
	assert.Equal(t, models.PaymentPaid, resp.Sale.PaymentStatus)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentsRecorded))
	assert.Equal(t, []string{events.SaleCreated, events.PaymentRecorded, events.PaymentRecorded}, pub.types)

	status, _ := apitest.Do(t, app, "POST", "/payments", map[string]any{"sale_id": 9999, "amount": "10"})
	assert.Equal(t, fiber.StatusNotFound, status)
	status, _ = apitest.Do(t, app, "POST", "/payments", map[string]any{"sale_id": sale.ID, "amount": "0"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	status, _ = apitest.Do(t, app, "POST", "/payments", map[string]any{"sale_id": sale.ID, "amount": "-5"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	var page httpx.PageResponse[models.Payment]
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/payments?sale_id="+id(sale.ID), nil, &page))
	assert.Equal(t, int64(2), page.Count)
}

func TestApplyPayment_ConcurrentPaymentsAllCount_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)

	sale := models.Sale{
		ProductID: milk.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(50),
		TotalAmount: decimal.NewFromInt(500), AmountPaid: decimal.Zero,
		PaymentStatus: models.PaymentPending, SaleDate: httpx.Today(),
	}
	require.NoError(t, db.Create(&sale).Error)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.Transaction(func(tx *gorm.DB) error {
				p := models.Payment{SaleID: sale.ID, Amount: decimal.NewFromInt(50), PaymentDate: httpx.Today(), Method: models.MethodCash}
				_, err := ApplyPayment(tx, &p)
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var got models.Sale
	require.NoError(t, db.First(&got, sale.ID).Error)
	assert.Equal(t, "500.00", got.AmountPaid.StringFixed(2))
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)

	var sum struct{ Total decimal.Decimal }
	require.NoError(t, db.Model(&models.Payment{}).Select("COALESCE(SUM(amount), 0) AS total").Where("sale_id = ?", sale.ID).Scan(&sum).Error)
	assert.True(t, sum.Total.Equal(got.AmountPaid))
}

func TestOverdueStatusAndFilters_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)
	app := newApp(db, events.NopPublisher{}, metrics.New())

	past := httpx.Today().AddDate(0, 0, -10).Format(httpx.DateLayout)
	due := httpx.Today().AddDate(0, 0, -1).Format(httpx.DateLayout)

	var overdue models.Sale
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "quantity": 1, "sale_date": past, "due_date": due,
	}, &overdue))
	assert.Equal(t, models.PaymentOverdue, overdue.PaymentStatus)

	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "quantity": 1,
	}, nil))

	var page httpx.PageResponse[models.Sale]
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/sales?status=overdue", nil, &page))
	require.Equal(t, int64(1), page.Count)
	assert.Equal(t, overdue.ID, page.Data[0].ID)

	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/sales?status=pending", nil, &page))
	assert.Equal(t, int64(1), page.Count)

	status, _ := apitest.Do(t, app, "GET", "/sales?status=late", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	var stored models.Sale
	require.NoError(t, db.First(&stored, overdue.ID).Error)
	assert.Equal(t, models.PaymentPending, stored.PaymentStatus)
}

func TestCreditLimit_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)
	app := newApp(db, events.NopPublisher{}, metrics.New())

	var cust CustomerResponse
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/customers", map[string]any{
		"name": "Hotel Annapurna", "credit_limit": "300",
	}, &cust))

	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "customer_id": cust.ID, "quantity": 5,
	}, nil))

	status, body := apitest.Do(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "customer_id": cust.ID, "quantity": 2,
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(body), "credit limit")

	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "customer_id": cust.ID, "quantity": 2, "amount_paid": "50",
	}, nil))

	var got CustomerResponse
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/customers/"+id(cust.ID), nil, &got))
	assert.Equal(t, "300.00", got.Outstanding.StringFixed(2))
	assert.Equal(t, int64(2), got.SalesCount)
}

func TestDeleteCustomer_KeepsSales_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)
	app := newApp(db, events.NopPublisher{}, metrics.New())

	var cust CustomerResponse
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/customers", map[string]any{"name": "Ravi"}, &cust))
	var sale models.Sale
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "customer_id": cust.ID, "quantity": 1,
	}, &sale))

	status, _ := apitest.Do(t, app, "DELETE", "/customers/"+id(cust.ID), nil)
	require.Equal(t, fiber.StatusNoContent, status)

	var kept models.Sale
	require.NoError(t, db.First(&kept, sale.ID).Error)
	assert.Nil(t, kept.CustomerID)
}

func TestDeleteSale_RemovesPayments_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)
	app := newApp(db, events.NopPublisher{}, metrics.New())

	var sale models.Sale
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "quantity": 2, "amount_paid": "20",
	}, &sale))
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/payments", map[string]any{
		"sale_id": sale.ID, "amount": "30",
	}, nil))

	var full models.Sale
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "GET", "/sales/"+id(sale.ID), nil, &full))
	assert.Len(t, full.Payments, 2)

	status, _ := apitest.Do(t, app, "DELETE", "/sales/"+id(sale.ID), nil)
	require.Equal(t, fiber.StatusNoContent, status)

	var n int64
	require.NoError(t, db.Model(&models.Payment{}).Where("sale_id = ?", sale.ID).Count(&n).Error)
	assert.Zero(t, n)
	status, _ = apitest.Do(t, app, "GET", fmt.Sprintf("/sales/%d", sale.ID), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestUpdateSale_DueDateAndCustomer_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)
	app := newApp(db, events.NopPublisher{}, metrics.New())

	var cust CustomerResponse
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/customers", map[string]any{"name": "Meena"}, &cust))
	var sale models.Sale
	require.Equal(t, fiber.StatusCreated, apitest.DoJSON(t, app, "POST", "/sales", map[string]any{
		"product_id": milk.ID, "quantity": 1, "sale_date": "2024-01-10",
	}, &sale))

	var updated models.Sale
	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "PUT", "/sales/"+id(sale.ID), map[string]any{
		"customer_id": cust.ID, "due_date": "2024-01-20", "note": "monthly account",
	}, &updated))
	require.NotNil(t, updated.CustomerID)
	assert.Equal(t, cust.ID, *updated.CustomerID)
	assert.Equal(t, models.PaymentOverdue, updated.PaymentStatus)

	status, _ := apitest.Do(t, app, "PUT", "/sales/"+id(sale.ID), map[string]any{"due_date": "2024-01-01"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	require.Equal(t, fiber.StatusOK, apitest.DoJSON(t, app, "PUT", "/sales/"+id(sale.ID), map[string]any{"clear_customer": true}, &updated))
	assert.Nil(t, updated.CustomerID)
}

func TestCreditLimit_ConcurrentSalesStayWithinLimit_Integration(t *testing.T) {
	db := dbtest.Open(t)
	milk := seedProduct(t, db)
	cust := models.Customer{Name: "Cafe Kesar", CreditLimit: decimal.NewFromInt(300)}
	require.NoError(t, db.Create(&cust).Error)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- db.Transaction(func(tx *gorm.DB) error {
				total := decimal.NewFromInt(50)
				if err := checkCreditLimit(tx, cust.ID, total); err != nil {
					return err
				}
				sale := models.Sale{
					ProductID: milk.ID, CustomerID: &cust.ID, Quantity: 1, UnitPrice: total,
					TotalAmount: total, AmountPaid: decimal.Zero,
					PaymentStatus: models.PaymentPending, SaleDate: httpx.Today(),
				}
				return tx.Omit("Product", "Customer", "Payments").Create(&sale).Error
			})
		}()
	}
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		if err != nil {
			require.Contains(t, err.Error(), "credit limit")
			rejected++
		}
	}
	assert.Equal(t, 4, rejected)

	bal, err := balances(db, []uint{cust.ID})
	require.NoError(t, err)
	assert.Equal(t, "300.00", bal[cust.ID].Outstanding.StringFixed(2))
	assert.Equal(t, int64(6), bal[cust.ID].SalesCount)
}
