package database

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Migration is a single versioned schema change. Versions run in ascending
// order exactly once; applied versions are recorded in schema_migrations.
type Migration struct {
	Version int
	Name    string
	Up      func(tx *gorm.DB) error
}

type schemaMigration struct {
	Version   int `gorm:"primaryKey"`
	Name      string
	AppliedAt time.Time
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

// Migrations holds the full ordered schema history of the service
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_users",
		Up: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE users (
					id SERIAL PRIMARY KEY,
					full_name VARCHAR(100) NOT NULL,
					email VARCHAR(100) NOT NULL UNIQUE,
					password VARCHAR(255) NOT NULL,
					user_type VARCHAR(20) NOT NULL DEFAULT 'customer',
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					created_at TIMESTAMPTZ,
					updated_at TIMESTAMPTZ
				)`).Error
		},
	},
	{
		Version: 2,
		Name:    "create_businesses",
		Up: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE businesses (
					id SERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT,
					address VARCHAR(255),
					phone VARCHAR(50),
					email VARCHAR(100) NOT NULL,
					user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
					image_url VARCHAR(255),
					created_at TIMESTAMPTZ,
					updated_at TIMESTAMPTZ
				);
				CREATE INDEX idx_businesses_user_id ON businesses(user_id)`).Error
		},
	},
	{
		Version: 3,
		Name:    "create_products",
		Up: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE products (
					id SERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					description TEXT,
					price NUMERIC NOT NULL,
					discounted_price NUMERIC,
					quantity INTEGER NOT NULL,
					category VARCHAR(100) NOT NULL,
					expiration_date TIMESTAMPTZ NOT NULL,
					business_id INTEGER NOT NULL REFERENCES businesses(id) ON DELETE CASCADE,
					image_url VARCHAR(255),
					created_at TIMESTAMPTZ,
					updated_at TIMESTAMPTZ
				);
				CREATE INDEX idx_products_business_id ON products(business_id);
				CREATE INDEX idx_products_category ON products(category)`).Error
		},
	},
	{
		Version: 4,
		Name:    "create_refresh_tokens",
		Up: func(tx *gorm.DB) error {
			return tx.Exec(`
				CREATE TABLE refresh_tokens (
					id VARCHAR(36) PRIMARY KEY,
					user_id INTEGER NOT NULL,
					expires_at TIMESTAMPTZ NOT NULL,
					revoked BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ,
					updated_at TIMESTAMPTZ
				);
				CREATE INDEX idx_refresh_tokens_user_id ON refresh_tokens(user_id)`).Error
		},
	},
}

// Migrate applies all pending migrations against db. It is called before the
// server starts listening; a failed migration is fatal to process start.
func Migrate(db *gorm.DB) error {
	return RunMigrations(db, Migrations)
}

// RunMigrations applies pending migrations from the given set in version
// order, each inside its own transaction together with its bookkeeping row.
func RunMigrations(db *gorm.DB, migrations []Migration) error {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for i := 1; i < len(migrations); i++ {
		if migrations[i].Version <= migrations[i-1].Version {
			return fmt.Errorf("migrations out of order at version %d", migrations[i].Version)
		}
	}

	for _, m := range migrations {
		var count int64
		if err := db.Model(&schemaMigration{}).Where("version = ?", m.Version).Count(&count).Error; err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Up(tx); err != nil {
				return err
			}
			return tx.Create(&schemaMigration{
				Version:   m.Version,
				Name:      m.Name,
				AppliedAt: time.Now(),
			}).Error
		})
		if err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}
