package purchase

import (
	"fmt"
	"strings"
	"time"

	"dairy-backend/internal/audit"
	"dairy-backend/internal/auth"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreatePurchaseRequest struct {
	ProductID    uint             `json:"product_id" validate:"required"`
	Quantity     float64          `json:"quantity" validate:"gt=0"`
	UnitCost     *decimal.Decimal `json:"unit_cost"`
	Supplier     string           `json:"supplier" validate:"max=100"`
	PurchaseDate string           `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate   string           `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Note         string           `json:"note" validate:"max=255"`
}

type UpdatePurchaseRequest struct {
	ProductID    *uint            `json:"product_id" validate:"omitempty,gt=0"`
	Quantity     *float64         `json:"quantity" validate:"omitempty,gt=0"`
	UnitCost     *decimal.Decimal `json:"unit_cost"`
	Supplier     *string          `json:"supplier" validate:"omitempty,max=100"`
	PurchaseDate *string          `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	ExpiryDate   *string          `json:"expiry_date" validate:"omitempty,datetime=2006-01-02"`
	Note         *string          `json:"note" validate:"omitempty,max=255"`
}

// Build assembles a purchase row for product. A nil unitCost means the
// product's cost price; a nil expiry falls back to the product's shelf life.
func Build(p *models.Product, quantity float64, unitCost *decimal.Decimal, date time.Time, expiry *time.Time) models.Purchase {
	cost := p.CostPrice
	if unitCost != nil {
		cost = *unitCost
	}
	if expiry == nil {
		expiry = p.DefaultExpiry(date)
	}
	return models.Purchase{
		ProductID:    p.ID,
		Quantity:     quantity,
		UnitCost:     cost,
		TotalCost:    models.LineTotal(quantity, cost),
		PurchaseDate: date,
		ExpiryDate:   expiry,
	}
}

// GET /api/purchases?product_id=1&from=2024-01-01&to=2024-01-31
func ListPurchasesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Purchase{})

		productID, err := httpx.QueryID(c, "product_id")
		if err != nil {
			return err
		}
		if productID != nil {
			q = q.Where("product_id = ?", *productID)
		}
		from, to, err := httpx.DateRange(c)
		if err != nil {
			return err
		}
		if from != nil {
			q = q.Where("purchase_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("purchase_date <= ?", *to)
		}

		page, err := httpx.Paginate[models.Purchase](q, httpx.ParsePage(c), "purchase_date DESC, id DESC", "Product")
		if err != nil {
			return httpx.DBError(err, "", "could not list purchases")
		}
		return c.JSON(page)
	}
}

// GET /api/purchases/:id
func GetPurchaseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Purchase
		if err := db.Preload("Product").First(&p, id).Error; err != nil {
			return httpx.DBError(err, "purchase not found", "could not load purchase")
		}
		return c.JSON(p)
	}
}

// POST /api/purchases
func CreatePurchaseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePurchaseRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		if body.UnitCost != nil && body.UnitCost.IsNegative() {
			return httpx.BadRequest("unit_cost must not be negative")
		}
		date, err := httpx.ParseDate(body.PurchaseDate, httpx.Today())
		if err != nil {
			return err
		}
		expiry, err := httpx.ParseOptionalDate(body.ExpiryDate)
		if err != nil {
			return err
		}

		var product models.Product
		if err := db.First(&product, body.ProductID).Error; err != nil {
			return httpx.DBError(err, "product not found", "could not load product")
		}

		userID, userName := auth.Actor(c)
		p := Build(&product, body.Quantity, body.UnitCost, date, expiry)
		p.Supplier = strings.TrimSpace(body.Supplier)
		p.Note = strings.TrimSpace(body.Note)
		p.CreatedBy = userID

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase",
				EntityID:    p.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("purchased %g %s of %s", p.Quantity, product.Unit, product.Name),
				After:       p,
			})
		})
		if err != nil {
			return httpx.DBError(err, "", "could not create purchase")
		}
		p.Product = &product
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/purchases/:id
func UpdatePurchaseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdatePurchaseRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		var p models.Purchase
		if err := db.First(&p, id).Error; err != nil {
			return httpx.DBError(err, "purchase not found", "could not load purchase")
		}
		before := p

		if body.ProductID != nil && *body.ProductID != p.ProductID {
			var product models.Product
			if err := db.First(&product, *body.ProductID).Error; err != nil {
				return httpx.DBError(err, "product not found", "could not load product")
			}
			p.ProductID = product.ID
		}
		if body.Quantity != nil {
			p.Quantity = *body.Quantity
		}
		if body.UnitCost != nil {
			if body.UnitCost.IsNegative() {
				return httpx.BadRequest("unit_cost must not be negative")
			}
			p.UnitCost = *body.UnitCost
		}
		if body.Supplier != nil {
			p.Supplier = strings.TrimSpace(*body.Supplier)
		}
		if body.PurchaseDate != nil {
			if p.PurchaseDate, err = httpx.ParseDate(*body.PurchaseDate, p.PurchaseDate); err != nil {
				return err
			}
		}
		if body.ExpiryDate != nil {
			if p.ExpiryDate, err = httpx.ParseOptionalDate(*body.ExpiryDate); err != nil {
				return err
			}
		}
		if body.Note != nil {
			p.Note = strings.TrimSpace(*body.Note)
		}
		p.TotalCost = models.LineTotal(p.Quantity, p.UnitCost)

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Product").Save(&p).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase",
				EntityID:    p.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("updated purchase #%d", p.ID),
				Before:      before,
				After:       p,
			})
		})
		if err != nil {
			return httpx.DBError(err, "purchase not found", "could not update purchase")
		}
		return c.JSON(p)
	}
}

// DELETE /api/purchases/:id
func DeletePurchaseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var p models.Purchase
		if err := db.First(&p, id).Error; err != nil {
			return httpx.DBError(err, "purchase not found", "could not load purchase")
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.Purchase{}, id).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "purchase",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("deleted purchase #%d", id),
				Before:      p,
			})
		})
		if err != nil {
			return httpx.DBError(err, "purchase not found", "could not delete purchase")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
