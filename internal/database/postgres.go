package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/CedricAlejo21/securelms-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// MigrateSecurity applies the schema for the security core tables.
func MigrateSecurity(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Identity{}, &models.SecurityEvent{}); err != nil {
		return fmt.Errorf("failed to migrate security schema: %w", err)
	}

	return nil
}
