// Package guardiansettings persists the per-account signing policy.
package guardiansettings

import (
	"context"

	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
)

type Repository interface {
	FindByAccountID(ctx context.Context, accountID string) (*models.GuardianSettings, error)
	// Upsert creates the settings row on first write and replaces the
	// strategy afterwards.
	Upsert(ctx context.Context, accountID string, signers models.SigningStrategy) (*models.GuardianSettings, error)
	// LockAccount takes a transaction-scoped advisory lock on accountID.
	// It must run inside a transaction.
	LockAccount(ctx context.Context, accountID string) error
}
