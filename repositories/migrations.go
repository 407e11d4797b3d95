package repositories

import (
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/latticehq/lattice-backend/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// embed migrations sql folder
//
//go:embed migrations/*.sql
var embedMigrations embed.FS

func setupDbConnection(env string, pgConfig utils.PGConfig) (*sql.DB, error) {
	connectionString := pgConfig.GetConnectionString(env)

	migrationDB, err := sql.Open("pgx", connectionString)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	err = migrationDB.Ping()
	if err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return migrationDB, nil
}

// RunMigrations creates or updates the catalog metadata tables. Entity
// tables themselves are managed at runtime through SchemaDDLRepository,
// not through migrations.
func RunMigrations(env string, pgConfig utils.PGConfig, logger *slog.Logger) error {
	db, err := setupDbConnection(env, pgConfig)
	if err != nil {
		return fmt.Errorf("setupDbConnection error: %w", err)
	}
	defer db.Close()

	logger.Info("Migrations starting to setup DB")
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("unable to run migrations: %w", err)
	}
	return nil
}
