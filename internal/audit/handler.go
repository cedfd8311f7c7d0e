package audit

import (
	"strings"

	"dairy-backend/internal/httpx"
	"dairy-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// GET /api/audit-logs?entity_type=sale&entity_id=1&user_id=2
func ListAuditLogsHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := db.Model(&models.AuditLog{})

		if entityType := strings.TrimSpace(c.Query("entity_type")); entityType != "" {
			q = q.Where("entity_type = ?", entityType)
		}
		entityID, err := httpx.QueryID(c, "entity_id")
		if err != nil {
			return err
		}
		if entityID != nil {
			q = q.Where("entity_id = ?", *entityID)
		}
		userID, err := httpx.QueryID(c, "user_id")
		if err != nil {
			return err
		}
		if userID != nil {
			q = q.Where("user_id = ?", *userID)
		}

		page, err := httpx.Paginate[models.AuditLog](q, httpx.ParsePage(c), "created_at DESC, id DESC")
		if err != nil {
			return httpx.DBError(err, "", "could not list audit logs")
		}
		return c.JSON(page)
	}
}
