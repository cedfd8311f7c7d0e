package audit

import (
	"encoding/json"
	"fmt"

	"dairy-backend/internal/models"

	"gorm.io/gorm"
)

type LogOptions struct {
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog stores one audit row. Pass the transaction that made the change so
// the log commits or rolls back with it.
func WriteLog(db *gorm.DB, opts LogOptions) error {
	log := models.AuditLog{
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}

	if err := db.Create(&log).Error; err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// jsonb rejects an empty string, so absent snapshots are stored as JSON null.
func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
