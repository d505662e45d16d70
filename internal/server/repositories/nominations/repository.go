// Package nominations persists Nomination rows.
package nominations

import (
	"context"

	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
)

// Filter narrows FindAll. Empty fields do not constrain the result.
type Filter struct {
	AccountID  string
	GuardianID string
	ID         string
	Email      string
	Status     models.NominationStatus
}

type Repository interface {
	Create(ctx context.Context, nomination *models.Nomination) (*models.Nomination, error)
	FindAll(ctx context.Context, filter Filter) ([]*models.Nomination, error)
	// FindForAccount returns nomination id issued by accountID.
	FindForAccount(ctx context.Context, accountID, id string) (*models.Nomination, error)
	// FindForGuardian returns nomination id addressed to guardianID and
	// locks it for the rest of the transaction.
	FindForGuardian(ctx context.Context, guardianID, id string) (*models.Nomination, error)
	// UpdateStatus moves the nomination to status if it is PENDING or
	// already at status. It reports whether the row matched.
	UpdateStatus(ctx context.Context, guardianID, id string, status models.NominationStatus) (bool, error)
	// DeletePending removes the nomination only while it is PENDING.
	DeletePending(ctx context.Context, accountID, id string) (bool, error)
}
