// Package guardians persists Guardian rows. Email is unique; creating a
// guardian for an email that already has one returns the existing row.
package guardians

import (
	"context"

	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, guardian *models.Guardian) (*models.Guardian, error)
	FindByID(ctx context.Context, id string) (*models.Guardian, error)
	FindByEmail(ctx context.Context, email string) (*models.Guardian, error)
	FindByAccountID(ctx context.Context, accountID string) (*models.Guardian, error)
	// LinkAccount back-fills account and wallet onto an unlinked guardian
	// row for email and returns the number of rows changed.
	LinkAccount(ctx context.Context, email, accountID, walletAddress string) (int64, error)
}
