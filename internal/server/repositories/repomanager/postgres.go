// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/guardkeeper/internal/dbx"
	"github.com/dmitrijs2005/guardkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/accountguardians"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/guardians"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/guardiansettings"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/nominations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Accounts(db dbx.DBTX) accounts.Repository {
	return accounts.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Guardians(db dbx.DBTX) guardians.Repository {
	return guardians.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Nominations(db dbx.DBTX) nominations.Repository {
	return nominations.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AccountGuardians(db dbx.DBTX) accountguardians.Repository {
	return accountguardians.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) GuardianSettings(db dbx.DBTX) guardiansettings.Repository {
	return guardiansettings.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return gooseUpContext(ctx, db, ".")
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}
