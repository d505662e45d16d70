// Package accounts persists Account rows.
package accounts

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
)

// Filter selects accounts by a single key. WalletAddress takes precedence
// over EOAAddress, which takes precedence over Email. An empty Filter
// matches every account.
type Filter struct {
	WalletAddress string
	EOAAddress    string
	Email         string
}

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindAll(ctx context.Context, filter Filter) ([]*models.Account, error)
	// UpdateAddresses overwrites only the Valid addresses and always stamps
	// updatedAt. It reports whether a row was changed.
	UpdateAddresses(ctx context.Context, id string, walletAddress, eoaAddress sql.NullString, updatedAt int64) (bool, error)
}
