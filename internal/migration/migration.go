package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

//go:embed sqlite/schema.sql
var sqliteSchema string

//go:embed mysql/schema.sql
var mysqlSchema string

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// ApplySQLite creates the roster schema on a sqlite connection. Statements are
// idempotent so it is safe to run on every start.
func ApplySQLite(db *gorm.DB) error {
	return applySchema(db, "sqlite", sqliteSchema)
}

// ApplyMySQL creates the roster schema on a mysql connection (8.0.16 or later, which
// enforces CHECK constraints). Statements are idempotent.
func ApplyMySQL(db *gorm.DB) error {
	return applySchema(db, "mysql", mysqlSchema)
}

func applySchema(db *gorm.DB, dialect, schema string) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	for _, stmt := range schemaStatements(schema) {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("apply %s schema: %w", dialect, err)
		}
	}
	return nil
}

// schemaStatements splits a schema file into statements, dropping comment lines.
func schemaStatements(schema string) []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";\n") {
		var lines []string
		for _, line := range strings.Split(stmt, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		stmt = strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
