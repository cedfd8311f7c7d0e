// Package dbtest opens a real Postgres database for integration tests.
// Tests are skipped unless TEST_DATABASE_DSN is set. Packages share the
// database, so run them with `go test -p 1 ./...`.
package dbtest

import (
	"os"
	"testing"

	"dairy-backend/internal/database"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to TEST_DATABASE_DSN, migrates, and truncates every table.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping integration test")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	err = db.Exec(`TRUNCATE stock_logs, payments, sales, purchases, waste, expenses,
		customers, products, audit_logs, users RESTART IDENTITY CASCADE`).Error
	if err != nil {
		t.Fatalf("truncate test database: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
