package catalog

import (
	"strconv"
	"testing"
	"time"

	"dairy-backend/internal/apitest"
	"dairy-backend/internal/dbtest"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newApp(db *gorm.DB) *fiber.App {
	app := apitest.NewApp(apitest.Admin())
	app.Get("/products", ListProductsHandler(db))
	app.Get("/products/:id", GetProductHandler(db))
	app.Post("/products", CreateProductHandler(db))
	app.Put("/products/:id", UpdateProductHandler(db))
	app.Delete("/products/:id", DeleteProductHandler(db))
	return app
}

func TestProductCRUD_Integration(t *testing.T) {
	db := dbtest.Open(t)
	app := newApp(db)

	var milk models.Product
	status := apitest.DoJSON(t, app, "POST", "/products", map[string]any{
		"name": " Toned Milk ", "category": "milk", "unit": "litre",
		"selling_price": "56.00", "cost_price": "48.50", "min_stock": 20,
		"track_expiry": true, "shelf_life_days": 2,
	}, &milk)
	require.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "Toned Milk", milk.Name)
	assert.True(t, milk.CostPrice.Equal(decimal.RequireFromString("48.5")))

	status = apitest.DoJSON(t, app, "POST", "/products", map[string]any{
		"name": "Paneer", "category": "cheese", "unit": "kg", "selling_price": 400, "cost_price": 320,
	}, nil)
	require.Equal(t, fiber.StatusCreated, status)

	status, _ = apitest.Do(t, app, "POST", "/products", map[string]any{"name": "Toned Milk", "unit": "litre"})
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = apitest.Do(t, app, "POST", "/products", map[string]any{"name": "Curd", "unit": "kg", "cost_price": -1})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = apitest.Do(t, app, "POST", "/products", map[string]any{"name": "Curd"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	var page httpx.PageResponse[models.Product]
	status = apitest.DoJSON(t, app, "GET", "/products?search=MILK", nil, &page)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, page.Data, 1)
	assert.Equal(t, milk.ID, page.Data[0].ID)

	var updated models.Product
	status = apitest.DoJSON(t, app, "PUT", "/products/"+itoa(milk.ID), map[string]any{"min_stock": 5, "selling_price": "58"}, &updated)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 5.0, updated.MinStock)
	assert.Equal(t, "Toned Milk", updated.Name)

	var logs int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("entity_type = ?", "product").Count(&logs).Error)
	assert.Equal(t, int64(3), logs)

	status, _ = apitest.Do(t, app, "GET", "/products/999", nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestDeleteProduct_RefusesWhenReferenced_Integration(t *testing.T) {
	db := dbtest.Open(t)
	app := newApp(db)

	p := models.Product{Name: "Butter", Unit: "packet", CostPrice: decimal.NewFromInt(40), SellingPrice: decimal.NewFromInt(50)}
	require.NoError(t, db.Create(&p).Error)
	free := models.Product{Name: "Ghee", Unit: "jar"}
	require.NoError(t, db.Create(&free).Error)
	require.NoError(t, db.Create(&models.Purchase{
		ProductID: p.ID, Quantity: 10, UnitCost: p.CostPrice, TotalCost: decimal.NewFromInt(400),
		PurchaseDate: time.Now().UTC(),
	}).Error)

	status, _ := apitest.Do(t, app, "DELETE", "/products/"+itoa(p.ID), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = apitest.Do(t, app, "DELETE", "/products/"+itoa(free.ID), nil)
	assert.Equal(t, fiber.StatusNoContent, status)

	status, _ = apitest.Do(t, app, "DELETE", "/products/"+itoa(free.ID), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
