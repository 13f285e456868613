// Package testing provides test utilities and database setup for the AdGenius backend
package testing

import (
	"fmt"

	"github.com/adgenius-ai/adgenius/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB represents an isolated in-memory test database
type TestDB struct {
	DB *gorm.DB
}

// SetupTestDB opens a fresh in-memory SQLite database and runs migrations.
// Every call returns an isolated database, tests never share state.
func SetupTestDB() (*TestDB, error) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=private"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open test database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.BusinessProfile{},
		&models.Integration{},
		&models.ChatMessage{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate test database: %w", err)
	}

	return &TestDB{DB: db}, nil
}

// Cleanup closes the underlying connection, dropping the in-memory database
func (tdb *TestDB) Cleanup() error {
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
