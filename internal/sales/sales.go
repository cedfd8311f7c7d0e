package sales

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"dairy-backend/internal/audit"
	"dairy-backend/internal/auth"
	"dairy-backend/internal/events"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateSaleRequest struct {
	ProductID     uint             `json:"product_id" validate:"required"`
	CustomerID    *uint            `json:"customer_id" validate:"omitempty,gt=0"`
	Quantity      float64          `json:"quantity" validate:"gt=0"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	AmountPaid    *decimal.Decimal `json:"amount_paid"`
	PaymentMethod string           `json:"payment_method" validate:"omitempty,oneof=cash card bank_transfer upi other"`
	SaleDate      string           `json:"sale_date" validate:"omitempty,datetime=2006-01-02"`
	DueDate       string           `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Note          string           `json:"note" validate:"max=255"`
}

// UpdateSaleRequest only touches bookkeeping fields; quantities and money are
// fixed once payments may exist against the sale.
type UpdateSaleRequest struct {
	CustomerID    *uint   `json:"customer_id" validate:"omitempty,gt=0"`
	ClearCustomer bool    `json:"clear_customer"`
	DueDate       *string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Note          *string `json:"note" validate:"omitempty,max=255"`
}

// present replaces the stored status with the one reported to clients.
func present(s *models.Sale, today time.Time) {
	s.PaymentStatus = s.EffectiveStatus(today)
}

// GET /api/sales?status=overdue&customer_id=1&product_id=2&from=&to=
func ListSalesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		today := httpx.Today()
		q := db.Model(&models.Sale{})

		switch models.PaymentStatus(c.Query("status")) {
		case "":
		case models.PaymentPaid:
			q = q.Where("payment_status = ?", models.PaymentPaid)
		case models.PaymentPending:
			q = q.Where("payment_status = ? AND (due_date IS NULL OR due_date >= ?)", models.PaymentPending, today)
		case models.PaymentOverdue:
			q = q.Where("payment_status = ? AND due_date < ?", models.PaymentPending, today)
		default:
			return httpx.BadRequest("status must be one of: paid pending overdue")
		}

		customerID, err := httpx.QueryID(c, "customer_id")
		if err != nil {
			return err
		}
		if customerID != nil {
			q = q.Where("customer_id = ?", *customerID)
		}
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
			q = q.Where("sale_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("sale_date <= ?", *to)
		}

		page, err := httpx.Paginate[models.Sale](q, httpx.ParsePage(c), "sale_date DESC, id DESC", "Product", "Customer")
		if err != nil {
			return httpx.DBError(err, "", "could not list sales")
		}
		for i := range page.Data {
			present(&page.Data[i], today)
		}
		return c.JSON(page)
	}
}

// GET /api/sales/:id
func GetSaleHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var s models.Sale
		err = db.Preload("Product").Preload("Customer").
			Preload("Payments", func(tx *gorm.DB) *gorm.DB { return tx.Order("payment_date ASC, id ASC") }).
			First(&s, id).Error
		if err != nil {
			return httpx.DBError(err, "sale not found", "could not load sale")
		}
		present(&s, httpx.Today())
		return c.JSON(s)
	}
}

// POST /api/sales
func CreateSaleHandler(db *gorm.DB, publisher events.Publisher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateSaleRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		saleDate, err := httpx.ParseDate(body.SaleDate, httpx.Today())
		if err != nil {
			return err
		}
		dueDate, err := httpx.ParseOptionalDate(body.DueDate)
		if err != nil {
			return err
		}
		if dueDate != nil && dueDate.Before(saleDate) {
			return httpx.BadRequest("due_date must not be before sale_date")
		}

		var product models.Product
		if err := db.First(&product, body.ProductID).Error; err != nil {
			return httpx.DBError(err, "product not found", "could not load product")
		}

		price := product.SellingPrice
		if body.UnitPrice != nil {
			if body.UnitPrice.IsNegative() {
				return httpx.BadRequest("unit_price must not be negative")
			}
			price = *body.UnitPrice
		}
		total := models.LineTotal(body.Quantity, price)

		paid := decimal.Zero
		if body.AmountPaid != nil {
			paid = body.AmountPaid.Round(2)
		}
		if paid.IsNegative() {
			return httpx.BadRequest("amount_paid must not be negative")
		}
		if paid.GreaterThan(total) {
			return httpx.BadRequest("amount_paid must not exceed the sale total")
		}

		userID, userName := auth.Actor(c)
		sale := models.Sale{
			ProductID:     product.ID,
			CustomerID:    body.CustomerID,
			Quantity:      body.Quantity,
			UnitPrice:     price,
			TotalAmount:   total,
			AmountPaid:    paid,
			PaymentStatus: models.StatusFor(paid, total),
			SaleDate:      saleDate,
			DueDate:       dueDate,
			Note:          strings.TrimSpace(body.Note),
			CreatedBy:     userID,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if sale.CustomerID != nil {
				if err := checkCreditLimit(tx, *sale.CustomerID, total.Sub(paid)); err != nil {
					return err
				}
			}
			if err := tx.Omit("Product", "Customer", "Payments").Create(&sale).Error; err != nil {
				return err
			}
			if paid.IsPositive() {
				method := models.PaymentMethod(body.PaymentMethod)
				if method == "" {
					method = models.MethodCash
				}
				initial := models.Payment{
					SaleID:      sale.ID,
					Amount:      paid,
					PaymentDate: saleDate,
					Method:      method,
					Note:        "paid at sale",
					CreatedBy:   userID,
				}
				if err := tx.Create(&initial).Error; err != nil {
					return err
				}
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "sale",
				EntityID:    sale.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("sold %g %s of %s for %s", sale.Quantity, product.Unit, product.Name, total.StringFixed(2)),
				After:       sale,
			})
		})
		if err != nil {
			return saleError(err, "could not create sale")
		}

		publisher.Publish(c.UserContext(), events.SaleCreated, fmt.Sprint(sale.ID), fiber.Map{
			"sale_id":      sale.ID,
			"product_id":   sale.ProductID,
			"customer_id":  sale.CustomerID,
			"quantity":     sale.Quantity,
			"total_amount": sale.TotalAmount,
			"amount_paid":  sale.AmountPaid,
		})

		sale.Product = &product
		present(&sale, httpx.Today())
		return c.Status(fiber.StatusCreated).JSON(sale)
	}
}

// PUT /api/sales/:id
func UpdateSaleHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateSaleRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		if body.ClearCustomer && body.CustomerID != nil {
			return httpx.BadRequest("customer_id and clear_customer cannot both be set")
		}

		var s models.Sale
		if err := db.First(&s, id).Error; err != nil {
			return httpx.DBError(err, "sale not found", "could not load sale")
		}
		before := s

		if body.DueDate != nil {
			if s.DueDate, err = httpx.ParseOptionalDate(*body.DueDate); err != nil {
				return err
			}
			if s.DueDate != nil && s.DueDate.Before(s.SaleDate) {
				return httpx.BadRequest("due_date must not be before sale_date")
			}
		}
		if body.Note != nil {
			s.Note = strings.TrimSpace(*body.Note)
		}
		if body.ClearCustomer {
			s.CustomerID = nil
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if body.CustomerID != nil && (s.CustomerID == nil || *s.CustomerID != *body.CustomerID) {
				if err := checkCreditLimit(tx, *body.CustomerID, s.Outstanding()); err != nil {
					return err
				}
				s.CustomerID = body.CustomerID
			}
			if err := tx.Omit("Product", "Customer", "Payments").Save(&s).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "sale",
				EntityID:    s.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("updated sale #%d", s.ID),
				Before:      before,
				After:       s,
			})
		})
		if err != nil {
			return saleError(err, "could not update sale")
		}
		present(&s, httpx.Today())
		return c.JSON(s)
	}
}

// DELETE /api/sales/:id
// The sale's payments go with it.
func DeleteSaleHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var s models.Sale
		if err := db.First(&s, id).Error; err != nil {
			return httpx.DBError(err, "sale not found", "could not load sale")
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("sale_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Sale{}, id).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "sale",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("deleted sale #%d", id),
				Before:      s,
			})
		})
		if err != nil {
			return httpx.DBError(err, "sale not found", "could not delete sale")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// saleError passes through HTTP errors raised inside a transaction and
// classifies everything else as a data-store error.
func saleError(err error, fallback string) error {
	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return err
	}
	return httpx.DBError(err, "customer not found", fallback)
}
