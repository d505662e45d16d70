// Package accountguardians persists the AccountGuardian join between an
// account and the guardians that accepted its nominations.
package accountguardians

import (
	"context"

	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
)

// Filter narrows queries over account_guardians. Empty fields do not
// constrain; a non-nil IDs restricts to those row ids.
type Filter struct {
	AccountID  string
	GuardianID string
	Status     models.GuardianStatus
	IDs        []string
}

type Repository interface {
	// Create inserts the link, or returns the existing one for the same
	// account and guardian.
	Create(ctx context.Context, ag *models.AccountGuardian) (*models.AccountGuardian, error)
	FindByAccountAndGuardian(ctx context.Context, accountID, guardianID string) (*models.AccountGuardian, error)
	FindAll(ctx context.Context, filter Filter) ([]*models.AccountGuardian, error)
	// ListViews is FindAll joined to guardians for email and wallet address.
	ListViews(ctx context.Context, filter Filter) ([]models.AccountGuardianView, error)
	// ListAccountsForGuardian returns the accounts guardianID protects,
	// optionally only accountID.
	ListAccountsForGuardian(ctx context.Context, guardianID, accountID string) ([]models.GuardianAccountView, error)
	// DeleteAvailable removes row id of accountID only while it is AVAILABLE.
	DeleteAvailable(ctx context.Context, accountID, id string) (bool, error)
	SetStatusForAccount(ctx context.Context, accountID string, status models.GuardianStatus) (int64, error)
	SetStatusForIDs(ctx context.Context, accountID string, ids []string, status models.GuardianStatus) (int64, error)
}
