package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/guardkeeper/internal/dbx"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/accountguardians"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/guardians"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/guardiansettings"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/nominations"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// service code runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Accounts(db dbx.DBTX) accounts.Repository
	Guardians(db dbx.DBTX) guardians.Repository
	Nominations(db dbx.DBTX) nominations.Repository
	AccountGuardians(db dbx.DBTX) accountguardians.Repository
	GuardianSettings(db dbx.DBTX) guardiansettings.Repository
}
