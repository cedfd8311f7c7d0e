package inventory

import (
	"context"
	"fmt"
	"time"

	"dairy-backend/internal/models"

	"gorm.io/gorm"
)

// Source loads the ledger a snapshot is built from.
type Source interface {
	Load(ctx context.Context) (Ledger, error)
}

type GormSource struct {
	db *gorm.DB
}

func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

// Load reads every product and ledger row. Any failed query fails the whole
// load; a partial ledger would report wrong stock.
func (s *GormSource) Load(ctx context.Context) (Ledger, error) {
	db := s.db.WithContext(ctx)
	var l Ledger

	if err := db.Order("name ASC, id ASC").Find(&l.Products).Error; err != nil {
		return Ledger{}, fmt.Errorf("load products: %w", err)
	}
	if err := db.Model(&models.Purchase{}).
		Select("product_id, COALESCE(quantity, 0) AS quantity, expiry_date").
		Scan(&l.Purchases).Error; err != nil {
		return Ledger{}, fmt.Errorf("load purchases: %w", err)
	}
	if err := db.Model(&models.Sale{}).
		Select("product_id, COALESCE(quantity, 0) AS quantity").
		Scan(&l.Sales).Error; err != nil {
		return Ledger{}, fmt.Errorf("load sales: %w", err)
	}
	if err := db.Model(&models.Waste{}).
		Select("product_id, COALESCE(quantity, 0) AS quantity").
		Scan(&l.Waste).Error; err != nil {
		return Ledger{}, fmt.Errorf("load waste: %w", err)
	}
	return l, nil
}

// Build loads the ledger and derives the snapshot for today.
func Build(ctx context.Context, src Source, today time.Time) ([]Snapshot, error) {
	l, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	return BuildSnapshot(l, today), nil
}
