package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(DriverSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Failed to close test database: %v", err)
		}
	})
	return db
}

// Functional Validation Tests - Config

func TestConfig_DefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Driver != DriverSQLite {
		t.Errorf("Expected driver sqlite3, got %s", config.Driver)
	}
	if config.DatabasePath != "./data/liveacademy.db" {
		t.Errorf("Expected DatabasePath './data/liveacademy.db', got %s", config.DatabasePath)
	}
	if config.MaxConnections != 10 {
		t.Errorf("Expected MaxConnections 10, got %d", config.MaxConnections)
	}
	if config.ConnMaxLifetime != time.Hour {
		t.Errorf("Expected ConnMaxLifetime 1 hour, got %v", config.ConnMaxLifetime)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid sqlite", func(c *Config) {}, false},
		{"empty path", func(c *Config) { c.DatabasePath = "" }, true},
		{"postgres without dsn", func(c *Config) { c.Driver = DriverPostgres }, true},
		{"postgres with dsn", func(c *Config) { c.Driver = DriverPostgres; c.DSN = "postgres://localhost/academy" }, false},
		{"unknown driver", func(c *Config) { c.Driver = "mysql" }, true},
		{"zero connections", func(c *Config) { c.MaxConnections = 0 }, true},
		{"zero write timeout", func(c *Config) { c.WriteTimeout = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_DataSourceName(t *testing.T) {
	c := DefaultConfig()
	if got := c.DataSourceName(); got != "./data/liveacademy.db?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on" {
		t.Errorf("Unexpected sqlite DSN %s", got)
	}
	c.Driver = DriverPostgres
	c.DSN = "postgres://u:p@db/academy?sslmode=disable"
	if got := c.DataSourceName(); got != c.DSN {
		t.Errorf("Expected postgres DSN passthrough, got %s", got)
	}
}

func TestStatementBuilder_Placeholders(t *testing.T) {
	query, _, err := StatementBuilder(DriverPostgres).Select("id").From("sessions").Where("id = ?", "x").ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if query != "SELECT id FROM sessions WHERE id = $1" {
		t.Errorf("Expected dollar placeholders, got %s", query)
	}

	query, _, err = StatementBuilder(DriverSQLite).Select("id").From("sessions").Where("id = ?", "x").ToSql()
	if err != nil {
		t.Fatal(err)
	}
	if query != "SELECT id FROM sessions WHERE id = ?" {
		t.Errorf("Expected question placeholders, got %s", query)
	}
}

// Functional Validation Tests - Migration System

func TestMigrationManager_ApplyEmbeddedMigrations(t *testing.T) {
	db := openTestDB(t)
	mgr := NewMigrationManager(db, DriverSQLite)

	if err := mgr.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations should not fail: %v", err)
	}
	if err := mgr.ValidateSchema(); err != nil {
		t.Errorf("ValidateSchema should pass after migrations: %v", err)
	}

	// Second run is a no-op
	if err := mgr.ApplyMigrations(); err != nil {
		t.Errorf("Re-applying migrations should not fail: %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("Expected 2 applied migrations, got %d", count)
	}
}

func TestMigrationManager_OrdersByVersion(t *testing.T) {
	db := openTestDB(t)
	source := fstest.MapFS{
		"m/002_add_column.sql": {Data: []byte(`ALTER TABLE things ADD COLUMN label TEXT;`)},
		"m/001_create.sql":     {Data: []byte(`CREATE TABLE things (id TEXT PRIMARY KEY);`)},
		"m/README.md":          {Data: []byte(`ignored`)},
	}

	mgr := NewMigrationManagerFromFS(db, DriverSQLite, source, "m")
	migrations, err := mgr.loadMigrations()
	if err != nil {
		t.Fatal(err)
	}
	if len(migrations) != 2 || migrations[0].Version != "001" || migrations[1].Description != "add_column" {
		t.Fatalf("Unexpected migration order: %+v", migrations)
	}

	if err := mgr.ApplyMigrations(); err != nil {
		t.Fatalf("ApplyMigrations should not fail: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO things (id, label) VALUES ('a', 'b')`); err != nil {
		t.Errorf("Expected both migrations applied: %v", err)
	}
}

func TestMigrationManager_FailedMigrationRollsBack(t *testing.T) {
	db := openTestDB(t)
	source := fstest.MapFS{
		"m/001_broken.sql": {Data: []byte(`CREATE TABLE ok (id TEXT); CREATE TABLE broken (;`)},
	}

	mgr := NewMigrationManagerFromFS(db, DriverSQLite, source, "m")
	if err := mgr.ApplyMigrations(); err == nil {
		t.Fatal("Expected broken migration to fail")
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected failed migration not to be recorded, got %d", count)
	}
}

func TestMigrationManager_ValidateSchemaOnEmptyDatabase(t *testing.T) {
	db := openTestDB(t)
	if err := NewMigrationManager(db, DriverSQLite).ValidateSchema(); err == nil {
		t.Error("ValidateSchema should fail on empty database")
	}
}

// Technical Validation Tests - Schema Structure

func TestSchema_SessionStatusConstraint(t *testing.T) {
	db := openTestDB(t)
	if err := NewMigrationManager(db, DriverSQLite).ApplyMigrations(); err != nil {
		t.Fatal(err)
	}

	insert := `INSERT INTO sessions (id, course_id, title, date_label, time_range, host, host_id, status, created_at)
		VALUES (?, 'c1', 'Title', 'Mon', '10-11', 'Ram', 'h1', ?, ?)`
	if _, err := db.Exec(insert, "s1", "live", time.Now().UTC()); err != nil {
		t.Errorf("Expected live status to be accepted: %v", err)
	}
	if _, err := db.Exec(insert, "s2", "archived", time.Now().UTC()); err == nil {
		t.Error("Expected unknown status to be rejected by check constraint")
	}
}

func TestSchema_ChatUserUnique(t *testing.T) {
	db := openTestDB(t)
	if err := NewMigrationManager(db, DriverSQLite).ApplyMigrations(); err != nil {
		t.Fatal(err)
	}

	insert := `INSERT INTO chats (id, user_id, updated_at) VALUES (?, 'u1', ?)`
	if _, err := db.Exec(insert, "c1", time.Now().UTC()); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(insert, "c2", time.Now().UTC()); err == nil {
		t.Error("Expected a second chat for the same user to be rejected")
	}
}

// Performance Validation Tests

func TestDatabase_SQLiteOptimizations(t *testing.T) {
	db := openTestDB(t)

	if err := ApplyOptimizations(db, DriverSQLite); err != nil {
		t.Errorf("Failed to apply SQLite optimizations: %v", err)
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to check journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected WAL journal mode, got %s", journalMode)
	}

	if err := ApplyOptimizations(db, DriverPostgres); err != nil {
		t.Errorf("Expected postgres optimizations to be a no-op, got %v", err)
	}
}
