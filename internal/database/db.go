package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dairy-backend/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to Postgres and migrates the schema.
func Open(dsn string, logger *slog.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logger.Info("database connected, migration complete")
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Customer{},
		&models.Purchase{},
		&models.Sale{},
		&models.Payment{},
		&models.Expense{},
		&models.Waste{},
		&models.StockLog{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	// Ledger quantities and money must never go negative.
	checks := []string{
		`ALTER TABLE purchases DROP CONSTRAINT IF EXISTS chk_purchases_quantity`,
		`ALTER TABLE purchases ADD CONSTRAINT chk_purchases_quantity CHECK (quantity > 0)`,
		`ALTER TABLE sales DROP CONSTRAINT IF EXISTS chk_sales_quantity`,
		`ALTER TABLE sales ADD CONSTRAINT chk_sales_quantity CHECK (quantity > 0)`,
		`ALTER TABLE waste DROP CONSTRAINT IF EXISTS chk_waste_quantity`,
		`ALTER TABLE waste ADD CONSTRAINT chk_waste_quantity CHECK (quantity > 0)`,
		`ALTER TABLE payments DROP CONSTRAINT IF EXISTS chk_payments_amount`,
		`ALTER TABLE payments ADD CONSTRAINT chk_payments_amount CHECK (amount > 0)`,
	}
	for _, stmt := range checks {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply constraint: %w", err)
		}
	}
	return nil
}

// Ping checks that the database answers within the context deadline.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
