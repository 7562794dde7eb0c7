package database

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	return db
}

func testMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_widgets",
			Up: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT)`).Error
			},
		},
		{
			Version: 2,
			Name:    "create_gadgets",
			Up: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE TABLE gadgets (id INTEGER PRIMARY KEY, widget_id INTEGER)`).Error
			},
		},
	}
}

func TestRunMigrationsAppliesAll(t *testing.T) {
	db := openTestDB(t)

	if err := RunMigrations(db, testMigrations()); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	for _, table := range []string{"widgets", "gadgets", "schema_migrations"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %q not created", table)
		}
	}

	var count int64
	db.Table("schema_migrations").Count(&count)
	if count != 2 {
		t.Errorf("schema_migrations rows = %d, want 2", count)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	migrations := testMigrations()

	if err := RunMigrations(db, migrations); err != nil {
		t.Fatalf("first RunMigrations() error = %v", err)
	}

	// A second run must skip already-applied versions; re-running the DDL
	// would fail on the existing tables
	if err := RunMigrations(db, migrations); err != nil {
		t.Fatalf("second RunMigrations() error = %v", err)
	}

	var count int64
	db.Table("schema_migrations").Count(&count)
	if count != 2 {
		t.Errorf("schema_migrations rows = %d, want 2", count)
	}
}

func TestRunMigrationsAppliesPendingOnly(t *testing.T) {
	db := openTestDB(t)
	migrations := testMigrations()

	if err := RunMigrations(db, migrations[:1]); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	if err := RunMigrations(db, migrations); err != nil {
		t.Fatalf("RunMigrations() with pending migration error = %v", err)
	}

	if !db.Migrator().HasTable("gadgets") {
		t.Error("pending migration was not applied")
	}
}

func TestRunMigrationsRejectsOutOfOrderVersions(t *testing.T) {
	db := openTestDB(t)

	migrations := testMigrations()
	migrations[1].Version = 1

	if err := RunMigrations(db, migrations); err == nil {
		t.Error("RunMigrations() expected error for out-of-order versions, got nil")
	}
}

func TestRunMigrationsRollsBackFailedMigration(t *testing.T) {
	db := openTestDB(t)

	migrations := []Migration{
		{
			Version: 1,
			Name:    "broken",
			Up: func(tx *gorm.DB) error {
				return errors.New("boom")
			},
		},
	}

	if err := RunMigrations(db, migrations); err == nil {
		t.Fatal("RunMigrations() expected error from failing migration, got nil")
	}

	var count int64
	db.Table("schema_migrations").Count(&count)
	if count != 0 {
		t.Errorf("failed migration was recorded, rows = %d, want 0", count)
	}
}
