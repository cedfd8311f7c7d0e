package expense

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

type CreateExpenseRequest struct {
	Category      string          `json:"category" validate:"required,max=60"`
	Amount        decimal.Decimal `json:"amount"`
	ExpenseDate   string          `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	Description   string          `json:"description" validate:"max=255"`
	PaymentMethod string          `json:"payment_method" validate:"omitempty,oneof=cash card bank_transfer upi other"`
}

type UpdateExpenseRequest struct {
	Category      *string          `json:"category" validate:"omitempty,min=1,max=60"`
	Amount        *decimal.Decimal `json:"amount"`
	ExpenseDate   *string          `json:"expense_date" validate:"omitempty,datetime=2006-01-02"`
	Description   *string          `json:"description" validate:"omitempty,max=255"`
	PaymentMethod *string          `json:"payment_method" validate:"omitempty,oneof=cash card bank_transfer upi other"`
}

type MonthlySummaryItem struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

type MonthlySummaryResponse struct {
	Year       int                  `json:"year"`
	Month      int                  `json:"month"`
	Items      []MonthlySummaryItem `json:"items"`
	GrandTotal decimal.Decimal      `json:"grand_total"`
}

// GET /api/expenses?category=rent&from=2024-01-01&to=2024-01-31
func ListExpensesHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Expense{})
		if category := strings.TrimSpace(c.Query("category")); category != "" {
			q = q.Where("LOWER(category) = ?", strings.ToLower(category))
		}
		from, to, err := httpx.DateRange(c)
		if err != nil {
			return err
		}
		if from != nil {
			q = q.Where("expense_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("expense_date <= ?", *to)
		}

		page, err := httpx.Paginate[models.Expense](q, httpx.ParsePage(c), "expense_date DESC, id DESC")
		if err != nil {
			return httpx.DBError(err, "", "could not list expenses")
		}
		return c.JSON(page)
	}
}

// GET /api/expenses/:id
func GetExpenseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var e models.Expense
		if err := db.First(&e, id).Error; err != nil {
			return httpx.DBError(err, "expense not found", "could not load expense")
		}
		return c.JSON(e)
	}
}

// POST /api/expenses
func CreateExpenseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateExpenseRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		if !body.Amount.IsPositive() {
			return httpx.BadRequest("amount must be greater than 0")
		}
		category := strings.TrimSpace(body.Category)
		if category == "" {
			return httpx.BadRequest("category is required")
		}
		date, err := httpx.ParseDate(body.ExpenseDate, httpx.Today())
		if err != nil {
			return err
		}

		userID, userName := auth.Actor(c)
		e := models.Expense{
			Category:      category,
			Amount:        body.Amount.Round(2),
			ExpenseDate:   date,
			Description:   strings.TrimSpace(body.Description),
			PaymentMethod: models.PaymentMethod(body.PaymentMethod),
			CreatedBy:     userID,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&e).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "expense",
				EntityID:    e.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("%s expense of %s", e.Category, e.Amount.StringFixed(2)),
				After:       e,
			})
		})
		if err != nil {
			return httpx.DBError(err, "", "could not create expense")
		}
		return c.Status(fiber.StatusCreated).JSON(e)
	}
}

// PUT /api/expenses/:id
func UpdateExpenseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var body UpdateExpenseRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}

		var e models.Expense
		if err := db.First(&e, id).Error; err != nil {
			return httpx.DBError(err, "expense not found", "could not load expense")
		}
		before := e

		if body.Category != nil {
			category := strings.TrimSpace(*body.Category)
			if category == "" {
				return httpx.BadRequest("category cannot be empty")
			}
			e.Category = category
		}
		if body.Amount != nil {
			if !body.Amount.IsPositive() {
				return httpx.BadRequest("amount must be greater than 0")
			}
			e.Amount = body.Amount.Round(2)
		}
		if body.ExpenseDate != nil {
			if e.ExpenseDate, err = httpx.ParseDate(*body.ExpenseDate, e.ExpenseDate); err != nil {
				return err
			}
		}
		if body.Description != nil {
			e.Description = strings.TrimSpace(*body.Description)
		}
		if body.PaymentMethod != nil {
			e.PaymentMethod = models.PaymentMethod(*body.PaymentMethod)
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&e).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "expense",
				EntityID:    e.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("updated expense #%d", e.ID),
				Before:      before,
				After:       e,
			})
		})
		if err != nil {
			return httpx.DBError(err, "expense not found", "could not update expense")
		}
		return c.JSON(e)
	}
}

// DELETE /api/expenses/:id
func DeleteExpenseHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := httpx.ParamID(c, "id")
		if err != nil {
			return err
		}
		var e models.Expense
		if err := db.First(&e, id).Error; err != nil {
			return httpx.DBError(err, "expense not found", "could not load expense")
		}

		userID, userName := auth.Actor(c)
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&models.Expense{}, id).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "expense",
				EntityID:    id,
				Action:      models.AuditActionDelete,
				Description: fmt.Sprintf("deleted %s expense of %s", e.Category, e.Amount.StringFixed(2)),
				Before:      e,
			})
		})
		if err != nil {
			return httpx.DBError(err, "expense not found", "could not delete expense")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/expenses/summary?year=2024&month=5
func MonthlySummaryHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		year, month, err := httpx.YearMonth(c)
		if err != nil {
			return err
		}
		first, last := httpx.MonthBounds(year, month)

		var rows []MonthlySummaryItem
		err = db.Model(&models.Expense{}).
			Select("category, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
			Where("expense_date >= ? AND expense_date <= ?", first, last).
			Group("category").
			Order("total DESC, category ASC").
			Scan(&rows).Error
		if err != nil {
			return httpx.DBError(err, "", "could not summarise expenses")
		}

		resp := MonthlySummaryResponse{
			Year:       year,
			Month:      int(month),
			Items:      make([]MonthlySummaryItem, 0, len(rows)),
			GrandTotal: decimal.Zero,
		}
		for _, r := range rows {
			resp.Items = append(resp.Items, r)
			resp.GrandTotal = resp.GrandTotal.Add(r.Total)
		}
		return c.JSON(resp)
	}
}
