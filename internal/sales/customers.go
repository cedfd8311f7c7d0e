package sales

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
	"gorm.io/gorm/clause"
)

type CreateCustomerRequest struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Phone       string           `json:"phone" validate:"max=30"`
	Email       string           `json:"email" validate:"omitempty,email,max=100"`
	Address     string           `json:"address" validate:"max=255"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
	Notes       string           `json:"notes" validate:"max=255"`
}

type UpdateCustomerRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=100"`
	Phone       *string          `json:"phone" validate:"omitempty,max=30"`
	Email       *string          `json:"email" validate:"omitempty,email,max=100"`
	Address     *string          `json:"address" validate:"omitempty,max=255"`
	CreditLimit *decimal.Decimal `json:"credit_limit"`
	Notes       *string          `json:"notes" validate:"omitempty,max=255"`
}

type CustomerResponse struct {
	models.Customer
	Outstanding decimal.Decimal `json:"outstanding"`
	SalesCount  int64           `json:"sales_count"`
}

type balanceRow struct {
	CustomerID  uint
	Outstanding decimal.Decimal
	SalesCount  int64
}

// balances sums the unpaid part of each customer's sales.
func balances(db *gorm.DB, customerIDs []uint) (map[uint]balanceRow, error) {
	out := make(map[uint]balanceRow, len(customerIDs))
	if len(customerIDs) == 0 {
		return out, nil
	}
	var rows []balanceRow
	err := db.Model(&models.Sale{}).
		Select(`customer_id,
			COALESCE(SUM(GREATEST(total_amount - amount_paid, 0)), 0) AS outstanding,
			COUNT(*) AS sales_count`).
		Where("customer_id IN ?", customerIDs).
		Group("customer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.CustomerID] = r
	}
	return out, nil
}

// checkCreditLimit rejects adding extra to the customer's outstanding balance
// when that would pass a positive credit limit. The customer row stays locked
// until tx ends, so concurrent sales for one customer are checked one at a time.
func checkCreditLimit(tx *gorm.DB, customerID uint, extra decimal.Decimal) error {
	var customer models.Customer
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&customer, customerID).Error; err != nil {
		return err
	}
	if !customer.CreditLimit.IsPositive() || !extra.IsPositive() {
		return nil
	}
	bal, err := balances(tx, []uint{customerID})
	if err != nil {
		return err
	}
	projected := bal[customerID].Outstanding.Add(extra)
	if projected.GreaterThan(customer.CreditLimit) {
		return httpx.BadRequest(fmt.Sprintf(
			"credit limit exceeded for %s: outstanding would be %s, limit is %s",
			customer.Name, projected.StringFixed(2), customer.CreditLimit.StringFixed(2)))
	}
	return nil
}

func withBalance(c models.Customer, bal map[uint]balanceRow) CustomerResponse {
	row := bal[c.ID]
	return CustomerResponse{Customer: c, Outstanding: row.Outstanding, SalesCount: row.SalesCount}
}

// GET /api/customers?search=
func ListCustomersHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Customer{})
		if search := strings.TrimSpace(c.Query("search")); search != "" {
			like := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(name) LIKE ? OR phone LIKE ? OR LOWER(email) LIKE ?", like, like, like)
		}

		page, err := httpx.Paginate[models.Customer](q, httpx.ParsePage(c), "name ASC, id ASC")
		if err != nil {
			return httpx.DBError(err, "", "could not list customers")
		}
		ids := make([]uint, 0, len(page.Data))
		for _, cust := range page.Data {
			ids = append(ids, cust.ID)
		}
		bal, err := balances(db, ids)
		if err != nil {
			return httpx.DBError(err, "", "could not list customers")
		}

		out := make([]CustomerResponse, 0, len(page.Data))
		for _, cust := range page.Data {
			out = append(out, withBalance(cust, bal))
		}
		return c.JSON(httpx.PageResponse[CustomerResponse]{
			Data:       out,
			Count:      page.Count,
			Page:       page.Page,
			TotalPages: page.TotalPages,
		})
	}
}

// GET /api/customers/:id
func GetCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var cust models.Customer
		if err := db.First(&cust, id).Error; err != nil {
			return httpx.DBError(err, "customer not found", "could not load customer")
		}
		bal, err := balances(db, []uint{cust.ID})
		if err != nil {
			return httpx.DBError(err, "", "could not load customer")
		}
		return c.JSON(withBalance(cust, bal))
	}
}

// POST /api/customers
func CreateCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			return httpx.BadRequest("name is required")
		}
		cust := models.Customer{
			Name:    name,
			Phone:   strings.TrimSpace(body.Phone),
			Email:   strings.TrimSpace(strings.ToLower(body.Email)),
			Address: strings.TrimSpace(body.Address),
			Notes:   strings.TrimSpace(body.Notes),
		}
		if body.CreditLimit != nil {
			if body.CreditLimit.IsNegative() {
				return httpx.BadRequest("credit_limit must not be negative")
			}
			cust.CreditLimit = body.CreditLimit.Round(2)
		}

		userID, userName := auth.Actor(c)
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&cust).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "customer",
				EntityID:    cust.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("created customer %s", cust.Name),
				After:       cust,
			})
		})
		if err != nil {
			return httpx.DBError(err, "", "could not create customer")
		}
		return c.Status(fiber.StatusCreated).JSON(CustomerResponse{Customer: cust, Outstanding: decimal.Zero})
	}
}

// PUT /api/customers/:id
func UpdateCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateCustomerRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		var cust models.Customer
		if err := db.First(&cust, id).Error; err != nil {
			return httpx.DBError(err, "customer not found", "could not load customer")
		}
		before := cust

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return httpx.BadRequest("name cannot be empty")
			}
			cust.Name = name
		}
		if body.Phone != nil {
			cust.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Email != nil {
			cust.Email = strings.TrimSpace(strings.ToLower(*body.Email))
		}
		if body.Address != nil {
			cust.Address = strings.TrimSpace(*body.Address)
		}
		if body.Notes != nil {
			cust.Notes = strings.TrimSpace(*body.Notes)
		}
		if body.CreditLimit != nil {
			if body.CreditLimit.IsNegative() {
				return httpx.BadRequest("credit_limit must not be negative")
			}
			cust.CreditLimit = body.CreditLimit.Round(2)
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&cust).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "customer",
				EntityID:    cust.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("updated customer %s", cust.Name),
				Before:      before,
				After:       cust,
			})
		})
		if err != nil {
			return httpx.DBError(err, "customer not found", "could not update customer")
		}
		bal, err := balances(db, []uint{cust.ID})
		if err != nil {
			return httpx.DBError(err, "", "could not load customer")
		}
		return c.JSON(withBalance(cust, bal))
	}
}

// DELETE /api/customers/:id
// Their sales stay on the books without a customer.
func DeleteCustomerHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var cust models.Customer
		if err := db.First(&cust, id).Error; err != nil {
			return httpx.DBError(err, "customer not found", "could not load customer")
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Sale{}).Where("customer_id = ?", id).Update("customer_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.Customer{}, id).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "customer",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("deleted customer %s", cust.Name),
				Before:      cust,
			})
		})
		if err != nil {
			return httpx.DBError(err, "customer not found", "could not delete customer")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
