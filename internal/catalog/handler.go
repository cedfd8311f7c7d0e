package catalog

import (
	"fmt"
	"strings"

	"dairy-backend/internal/audit"
	"dairy-backend/internal/auth"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateProductRequest struct {
	Name          string          `json:"name" validate:"required,max=100"`
	Category      string          `json:"category" validate:"max=60"`
	Unit          string          `json:"unit" validate:"required,max=20"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	MinStock      float64         `json:"min_stock" validate:"gte=0"`
	TrackExpiry   bool            `json:"track_expiry"`
	ShelfLifeDays int             `json:"shelf_life_days" validate:"gte=0"`
	Description   string          `json:"description" validate:"max=255"`
}

type UpdateProductRequest struct {
	Name          *string          `json:"name" validate:"omitempty,max=100"`
	Category      *string          `json:"category" validate:"omitempty,max=60"`
	Unit          *string          `json:"unit" validate:"omitempty,max=20"`
	SellingPrice  *decimal.Decimal `json:"selling_price"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
	MinStock      *float64         `json:"min_stock" validate:"omitempty,gte=0"`
	TrackExpiry   *bool            `json:"track_expiry"`
	ShelfLifeDays *int             `json:"shelf_life_days" validate:"omitempty,gte=0"`
	Description   *string          `json:"description" validate:"omitempty,max=255"`
}

func checkPrices(selling, cost decimal.Decimal) error {
	if selling.IsNegative() {
		return httpx.BadRequest("selling_price must not be negative")
	}
	if cost.IsNegative() {
		return httpx.BadRequest("cost_price must not be negative")
	}
	return nil
}

// GET /api/products?search=milk&category=dairy
func ListProductsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Product{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(name) LIKE ? OR LOWER(category) LIKE ?", like, like)
		}
		if category := strings.TrimSpace(c.Query("category")); category != "" {
			q = q.Where("LOWER(category) = ?", strings.ToLower(category))
		}

		page, err := httpx.Paginate[models.Product](q, httpx.ParsePage(c), "name ASC")
		if err != nil {
			return httpx.DBError(err, "", "could not list products")
		}
		return c.JSON(page)
	}
}

// GET /api/products/:id
func GetProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Product
		if err := db.First(&p, id).Error; err != nil {
			return httpx.DBError(err, "product not found", "could not load product")
		}
		return c.JSON(p)
	}
}

// POST /api/products (admin, manager)
func CreateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		body.Name = strings.TrimSpace(body.Name)
		body.Unit = strings.TrimSpace(body.Unit)
		if body.Name == "" || body.Unit == "" {
			return httpx.BadRequest("name and unit are required")
		}
		if err := checkPrices(body.SellingPrice, body.CostPrice); err != nil {
			return err
		}

		p := models.Product{
			Name:          body.Name,
			Category:      strings.TrimSpace(body.Category),
			Unit:          body.Unit,
			SellingPrice:  body.SellingPrice,
			CostPrice:     body.CostPrice,
			MinStock:      body.MinStock,
			TrackExpiry:   body.TrackExpiry,
			ShelfLifeDays: body.ShelfLifeDays,
			Description:   strings.TrimSpace(body.Description),
		}

		userID, userName := auth.Actor(c)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("created product %s", p.Name),
				After:       p,
			})
		})
		if err != nil {
			return httpx.DBError(err, "", "could not create product")
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id (admin, manager)
func UpdateProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateProductRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		var p models.Product
		if err := db.First(&p, id).Error; err != nil {
			return httpx.DBError(err, "product not found", "could not load product")
		}
		before := p

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return httpx.BadRequest("name cannot be empty")
			}
			p.Name = name
		}
		if body.Unit != nil {
			unit := strings.TrimSpace(*body.Unit)
			if unit == "" {
				return httpx.BadRequest("unit cannot be empty")
			}
			p.Unit = unit
		}
		if body.Category != nil {
			p.Category = strings.TrimSpace(*body.Category)
		}
		if body.SellingPrice != nil {
			p.SellingPrice = *body.SellingPrice
		}
		if body.CostPrice != nil {
			p.CostPrice = *body.CostPrice
		}
		if body.MinStock != nil {
			p.MinStock = *body.MinStock
		}
		if body.TrackExpiry != nil {
			p.TrackExpiry = *body.TrackExpiry
		}
		if body.ShelfLifeDays != nil {
			p.ShelfLifeDays = *body.ShelfLifeDays
		}
		if body.Description != nil {
			p.Description = strings.TrimSpace(*body.Description)
		}
		if err := checkPrices(p.SellingPrice, p.CostPrice); err != nil {
			return err
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "product",
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("updated product %s", p.Name),
				Before:      before,
				After:       p,
			})
		})
		if err != nil {
			return httpx.DBError(err, "product not found", "could not update product")
		}
		return c.JSON(p)
	}
}

// DELETE /api/products/:id (admin)
// A product that any ledger row still points at cannot be deleted.
func DeleteProductHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}

		var p models.Product
		if err := db.First(&p, id).Error; err != nil {
			return httpx.DBError(err, "product not found", "could not load product")
		}

		inUse, err := referenced(db, id)
		if err != nil {
			return httpx.DBError(err, "", "could not delete product")
		}
		if inUse {
			return httpx.BadRequest("product has purchases, sales or waste records and cannot be deleted")
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.Product{}, id).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "product",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("deleted product %s", p.Name),
				Before:      p,
			})
		})
		if err != nil {
			return httpx.DBError(err, "product not found", "could not delete product")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func referenced(db *gorm.DB, productID uint) (bool, error) {
	for _, model := range []any{&models.Purchase{}, &models.Sale{}, &models.Waste{}} {
		var n int64
		if err := db.Model(model).Where("product_id = ?", productID).Count(&n).Error; err != nil {
			return false, err
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}
