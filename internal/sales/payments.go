package sales

import (
	"fmt"
	"strings"
	"time"

	"dairy-backend/internal/audit"
	"dairy-backend/internal/auth"
	"dairy-backend/internal/events"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/metrics"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RecordPaymentRequest struct {
	SaleID      uint            `json:"sale_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	Method      string          `json:"method" validate:"omitempty,oneof=cash card bank_transfer upi other"`
	Note        string          `json:"note" validate:"max=255"`
}

type PaymentResponse struct {
	Payment models.Payment `json:"payment"`
	Sale    models.Sale    `json:"sale"`
}

// ApplyPayment inserts the payment and moves the sale's amount_paid and
// status in one conditional UPDATE. Both sides of the CASE read the row as it
// was before the update, so the new status always matches the new amount.
// It must run inside a transaction.
func ApplyPayment(tx *gorm.DB, p *models.Payment) (models.Sale, error) {
	var sale models.Sale
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, p.SaleID).Error; err != nil {
		return models.Sale{}, err
	}
	if err := tx.Create(p).Error; err != nil {
		return models.Sale{}, err
	}

	res := tx.Model(&models.Sale{}).
		Where("id = ?", p.SaleID).
		Updates(map[string]any{
			"amount_paid": gorm.Expr("amount_paid + ?", p.Amount),
			"payment_status": gorm.Expr("CASE WHEN amount_paid + ? >= total_amount THEN ? ELSE ? END",
				p.Amount, models.PaymentPaid, models.PaymentPending),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return models.Sale{}, res.Error
	}
	if res.RowsAffected == 0 {
		return models.Sale{}, gorm.ErrRecordNotFound
	}

	var updated models.Sale
	if err := tx.First(&updated, p.SaleID).Error; err != nil {
		return models.Sale{}, err
	}
	return updated, nil
}

// POST /api/payments
func RecordPaymentHandler(db *gorm.DB, publisher events.Publisher, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RecordPaymentRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		amount := body.Amount.Round(2)
		if !amount.IsPositive() {
			return httpx.BadRequest("amount must be greater than 0")
		}
		date, err := httpx.ParseDate(body.PaymentDate, httpx.Today())
		if err != nil {
			return err
		}
		method := models.PaymentMethod(body.Method)
		if method == "" {
			method = models.MethodCash
		}

		userID, userName := auth.Actor(c)
		payment := models.Payment{
			SaleID:      body.SaleID,
			Amount:      amount,
			PaymentDate: date,
			Method:      method,
			Note:        strings.TrimSpace(body.Note),
			CreatedBy:   userID,
		}

		var sale models.Sale
		err = db.Transaction(func(tx *gorm.DB) error {
			var err error
			if sale, err = ApplyPayment(tx, &payment); err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  "payment",
				EntityID:    payment.ID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("payment of %s against sale #%d", amount.StringFixed(2), sale.ID),
				After:       payment,
			})
		})
		if err != nil {
			return httpx.DBError(err, "sale not found", "could not record payment")
		}

		m.PaymentsRecorded.Inc()
		publisher.Publish(c.UserContext(), events.PaymentRecorded, fmt.Sprint(sale.ID), fiber.Map{
			"payment_id":     payment.ID,
			"sale_id":        sale.ID,
			"amount":         payment.Amount,
			"amount_paid":    sale.AmountPaid,
			"payment_status": sale.PaymentStatus,
		})

		present(&sale, httpx.Today())
		return c.Status(fiber.StatusCreated).JSON(PaymentResponse{Payment: payment, Sale: sale})
	}
}

// GET /api/payments?sale_id=1&from=&to=
func ListPaymentsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.Payment{})
		saleID, err := httpx.QueryID(c, "sale_id")
		if err != nil {
			return err
		}
		if saleID != nil {
			q = q.Where("sale_id = ?", *saleID)
		}
		from, to, err := httpx.DateRange(c)
		if err != nil {
			return err
		}
		if from != nil {
			q = q.Where("payment_date >= ?", *from)
		}
		if to != nil {
			q = q.Where("payment_date <= ?", *to)
		}

		page, err := httpx.Paginate[models.Payment](q, httpx.ParsePage(c), "payment_date DESC, id DESC")
		if err != nil {
			return httpx.DBError(err, "", "could not list payments")
		}
		return c.JSON(page)
	}
}
