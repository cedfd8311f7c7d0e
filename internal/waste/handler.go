package waste

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

type CreateWasteRequest struct {
	ProductID uint             `json:"product_id" validate:"required"`
	Quantity  float64          `json:"quantity" validate:"gt=0"`
	Reason    string           `json:"reason" validate:"omitempty,oneof=expired damaged other"`
	CostValue *decimal.Decimal `json:"cost_value"`
	WasteDate string           `json:"waste_date" validate:"omitempty,datetime=2006-01-02"`
	Note      string           `json:"note" validate:"max=255"`
}

type UpdateWasteRequest struct {
	Quantity  *float64         `json:"quantity" validate:"omitempty,gt=0"`
	Reason    *string          `json:"reason" validate:"omitempty,oneof=expired damaged other"`
	CostValue *decimal.Decimal `json:"cost_value"`
	WasteDate *string          `json:"waste_date" validate:"omitempty,datetime=2006-01-02"`
	Note      *string          `json:"note" validate:"omitempty,max=255"`
}

// Build assembles a waste row valued at the product's cost price. An empty
// reason is recorded as "other".
func Build(p *models.Product, quantity float64, reason models.WasteReason, date time.Time) models.Waste {
	if reason == "" {
		reason = models.WasteOther
	}
	return models.Waste{
		ProductID: p.ID,
		Quantity:  quantity,
		Reason:    reason,
		CostValue: models.LineTotal(quantity, p.CostPrice),
		WasteDate: date,
	}
}

// GET /api/waste?product_id=1&reason=expired&from=&to=
func ListWasteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Waste{})

		productID, err := httpx.QueryID(c, "product_id")
		if err != nil {
			return err
		}
		if productID != nil {
			q = q.Where("product_id = ?", *productID)
		}
		if reason := c.Query("reason"); reason != "" {
			if !models.WasteReason(reason).Valid() {
				return httpx.BadRequest("reason must be one of: expired damaged other")
			}
			q = q.Where("reason = ?", reason)
		}
		from, to, err := httpx.DateRange(c)
		if err != nil {
			return err
		}
		if from != nil {
			q = q.Where("waste_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("waste_date <= ?", *to)
		}

		page, err := httpx.Paginate[models.Waste](q, httpx.ParsePage(c), "waste_date DESC, id DESC", "Product")
		if err != nil {
			return httpx.DBError(err, "", "could not list waste")
		}
		return c.JSON(page)
	}
}

// GET /api/waste/:id
func GetWasteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var w models.Waste
		if err := db.Preload("Product").First(&w, id).Error; err != nil {
			return httpx.DBError(err, "waste record not found", "could not load waste record")
		}
		return c.JSON(w)
	}
}

// POST /api/waste
func CreateWasteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateWasteRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		if body.CostValue != nil && body.CostValue.IsNegative() {
			return httpx.BadRequest("cost_value must not be negative")
		}
		date, err := httpx.ParseDate(body.WasteDate, httpx.Today())
		if err != nil {
			return err
		}

		var product models.Product
		if err := db.First(&product, body.ProductID).Error; err != nil {
			return httpx.DBError(err, "product not found", "could not load product")
		}

		userID, userName := auth.Actor(c)
		w := Build(&product, body.Quantity, models.WasteReason(body.Reason), date)
		if body.CostValue != nil {
			w.CostValue = body.CostValue.Round(2)
		}
		w.Note = strings.TrimSpace(body.Note)
		w.CreatedBy = userID

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&w).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "waste",
				EntityID:    w.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("wasted %g %s of %s (%s)", w.Quantity, product.Unit, product.Name, w.Reason),
				After:       w,
			})
		})
		if err != nil {
			return httpx.DBError(err, "", "could not create waste record")
		}
		w.Product = &product
		return c.Status(fiber.StatusCreated).JSON(w)
	}
}

// PUT /api/waste/:id
// Changing the quantity revalues the row at the product's current cost
// unless cost_value is given explicitly.
func UpdateWasteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateWasteRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		var w models.Waste
		if err := db.Preload("Product").First(&w, id).Error; err != nil {
			return httpx.DBError(err, "waste record not found", "could not load waste record")
		}
		before := w
		before.Product = nil

		if body.Quantity != nil {
			w.Quantity = *body.Quantity
			if w.Product != nil {
				w.CostValue = models.LineTotal(w.Quantity, w.Product.CostPrice)
			}
		}
		if body.CostValue != nil {
			if body.CostValue.IsNegative() {
				return httpx.BadRequest("cost_value must not be negative")
			}
			w.CostValue = body.CostValue.Round(2)
		}
		if body.Reason != nil {
			w.Reason = models.WasteReason(*body.Reason)
		}
		if body.WasteDate != nil {
			if w.WasteDate, err = httpx.ParseDate(*body.WasteDate, w.WasteDate); err != nil {
				return err
			}
		}
		if body.Note != nil {
			w.Note = strings.TrimSpace(*body.Note)
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Omit("Product").Save(&w).Error; err != nil {
				return err
			}
			after := w
			after.Product = nil
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "waste",
				EntityID:    w.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("updated waste record #%d", w.ID),
				Before:      before,
				After:       after,
			})
		})
		if err != nil {
			return httpx.DBError(err, "waste record not found", "could not update waste record")
		}
		return c.JSON(w)
	}
}

// DELETE /api/waste/:id
func DeleteWasteHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var w models.Waste
		if err := db.First(&w, id).Error; err != nil {
			return httpx.DBError(err, "waste record not found", "could not load waste record")
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.Waste{}, id).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "waste",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("deleted waste record #%d", id),
				Before:      w,
			})
		})
		if err != nil {
			return httpx.DBError(err, "waste record not found", "could not delete waste record")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
