package stock

import (
	"encoding/json"
	"fmt"
	"strings"

	"dairy-backend/internal/audit"
	"dairy-backend/internal/auth"
	"dairy-backend/internal/events"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/metrics"
	"dairy-backend/internal/models"
	"dairy-backend/internal/purchase"
	"dairy-backend/internal/waste"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type UpdateRequest struct {
	ProductID   *uint           `json:"product_id" validate:"omitempty,gt=0"`
	ProductName string          `json:"product_name" validate:"max=100"`
	Quantity    float64         `json:"quantity" validate:"gt=0"`
	Direction   string          `json:"direction" validate:"required,oneof=in out"`
	Date        string          `json:"date" validate:"omitempty,datetime=2006-01-02"`
	ImageURL    string          `json:"image_url" validate:"omitempty,max=500"`
	Reason      string          `json:"reason" validate:"omitempty,oneof=expired damaged other"`
	Note        string          `json:"note" validate:"max=255"`
	Analysis    json.RawMessage `json:"analysis"`
}

type UpdateResponse struct {
	Log      models.StockLog  `json:"log"`
	Product  models.Product   `json:"product"`
	Purchase *models.Purchase `json:"purchase,omitempty"`
	Waste    *models.Waste    `json:"waste,omitempty"`
}

// StockChange is the payload of the stock.changed event.
type StockChange struct {
	ProductID     uint                  `json:"product_id"`
	Direction     models.StockDirection `json:"direction"`
	Quantity      float64               `json:"quantity"`
	Source        models.StockSource    `json:"source"`
	ReferenceType string                `json:"reference_type"`
	ReferenceID   uint                  `json:"reference_id"`
	StockLogID    uint                  `json:"stock_log_id"`
}

func resolveProduct(db *gorm.DB, body *UpdateRequest) (models.Product, error) {
	if body.ProductID != nil {
		var p models.Product
		if err := db.First(&p, *body.ProductID).Error; err != nil {
			return models.Product{}, httpx.DBError(err, "product not found", "could not load product")
		}
		return p, nil
	}

	name := strings.TrimSpace(body.ProductName)
	if name == "" {
		return models.Product{}, httpx.BadRequest("product_id or product_name is required")
	}
	var products []models.Product
	if err := db.Order("name ASC").Find(&products).Error; err != nil {
		return models.Product{}, httpx.DBError(err, "", "could not load products")
	}
	match := MatchProduct(products, name)
	if match == nil {
		return models.Product{}, httpx.NotFound(fmt.Sprintf("no product matches %q", name))
	}
	return *match, nil
}

func analysisJSON(raw json.RawMessage) (string, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return "null", nil
	}
	if !json.Valid([]byte(trimmed)) {
		return "", httpx.BadRequest("analysis must be valid JSON")
	}
	return trimmed, nil
}

// POST /api/stock/update
// Records a stock-in as a purchase or a stock-out as waste, both at the
// product's cost price, plus a stock log row in the same transaction.
func UpdateHandler(db *gorm.DB, publisher events.Publisher, m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateRequest
		if err := httpx.ParseBody(c, &body); err != nil {
			return err
		}
		date, err := httpx.ParseDate(body.Date, httpx.Today())
		if err != nil {
			return err
		}
		analysis, err := analysisJSON(body.Analysis)
		if err != nil {
			return err
		}
		product, err := resolveProduct(db, &body)
		if err != nil {
			return err
		}

		source := models.SourceManual
		if body.ImageURL != "" || analysis != "null" {
			source = models.SourceImage
		}
		direction := models.StockDirection(body.Direction)
		note := strings.TrimSpace(body.Note)
		userID, userName := auth.Actor(c)

		resp := UpdateResponse{Product: product}
		stockLog := models.StockLog{
			ProductID: product.ID,
			Direction: direction,
			Quantity:  body.Quantity,
			Source:    source,
			ImageURL:  strings.TrimSpace(body.ImageURL),
			Analysis:  analysis,
			Note:      note,
			UserID:    userID,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if direction == models.StockIn {
				p := purchase.Build(&product, body.Quantity, nil, date, nil)
				p.Note = note
				p.CreatedBy = userID
				if err := tx.Omit("Product").Create(&p).Error; err != nil {
					return err
				}
				stockLog.ReferenceType, stockLog.ReferenceID = "purchase", p.ID
				resp.Purchase = &p
			} else {
				w := waste.Build(&product, body.Quantity, models.WasteReason(body.Reason), date)
				w.Note = note
				w.CreatedBy = userID
				if err := tx.Omit("Product").Create(&w).Error; err != nil {
					return err
				}
				stockLog.ReferenceType, stockLog.ReferenceID = "waste", w.ID
				resp.Waste = &w
			}

			if err := tx.Omit("Product").Create(&stockLog).Error; err != nil {
				return err
			}
			return audit.WriteLog(tx, audit.LogOptions{
				UserID:      userID,
				UserName:    userName,
				EntityType:  stockLog.ReferenceType,
				EntityID:    stockLog.ReferenceID,
				Action:      models.AuditActionCreate,
				Description: fmt.Sprintf("stock %s %g %s of %s (%s)", direction, body.Quantity, product.Unit, product.Name, source),
				After:       stockLog,
			})
		})
		if err != nil {
			return httpx.DBError(err, "product not found", "could not update stock")
		}

		m.StockImageUpdates.WithLabelValues(string(direction)).Inc()
		publisher.Publish(c.UserContext(), events.StockChanged, fmt.Sprint(product.ID), StockChange{
			ProductID:     product.ID,
			Direction:     direction,
			Quantity:      body.Quantity,
			Source:        source,
			ReferenceType: stockLog.ReferenceType,
			ReferenceID:   stockLog.ReferenceID,
			StockLogID:    stockLog.ID,
		})

		resp.Log = stockLog
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/stock/logs?product_id=1&direction=in&from=2024-01-01&to=2024-01-31
func ListLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.StockLog{})

		productID, err := httpx.QueryID(c, "product_id")
		if err != nil {
			return err
		}
		if productID != nil {
			q = q.Where("product_id = ?", *productID)
		}
		switch dir := c.Query("direction"); dir {
		case "":
		case string(models.StockIn), string(models.StockOut):
			q = q.Where("direction = ?", dir)
		default:
			return httpx.BadRequest("direction must be in or out")
		}
		from, to, err := httpx.DateRange(c)
		if err != nil {
			return err
		}
		if from != nil {
			q = q.Where("created_at >= ?", *from)
		}
		if to != nil {
			q = q.Where("created_at < ?", to.AddDate(0, 0, 1))
		}

		page, err := httpx.Paginate[models.StockLog](q, httpx.ParsePage(c), "created_at DESC, id DESC", "Product")
		if err != nil {
			return httpx.DBError(err, "", "could not list stock logs")
		}
		return c.JSON(page)
	}
}
