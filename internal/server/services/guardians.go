package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"github.com/dmitrijs2005/guardkeeper/internal/dbx"
	"github.com/dmitrijs2005/guardkeeper/internal/server/config"
	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/accountguardians"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/repomanager"
)

// GuardianFilter narrows ListAccountGuardians. GuardianID is a guardian id,
// not an account_guardians row id.
type GuardianFilter struct {
	GuardianID string
	Status     string
}

// GuardianService manages the guardians attached to an account and the
// accounts a guardian protects.
type GuardianService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	queryTimeout time.Duration
}

func NewGuardianService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *GuardianService {
	return &GuardianService{db: db, repomanager: m, queryTimeout: cfg.QueryTimeout}
}

// ListAccountGuardians returns the guardians of accountID joined with their
// email and wallet address. Status is matched case-insensitively.
func (s *GuardianService) ListAccountGuardians(ctx context.Context, accountID string, f GuardianFilter) ([]models.AccountGuardianView, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	views, err := s.repomanager.AccountGuardians(s.db).ListViews(ctx, accountguardians.Filter{
		AccountID:  accountID,
		GuardianID: f.GuardianID,
		Status:     models.GuardianStatus(strings.ToUpper(f.Status)),
	})
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = []models.AccountGuardianView{}
	}
	return views, nil
}

// RemoveAccountGuardian detaches guardianID from accountID. ACTIVE guardians
// must first be demoted through a settings update.
func (s *GuardianService) RemoveAccountGuardian(ctx context.Context, accountID, guardianID string) error {
	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.GuardianSettings(tx).LockAccount(ctx, accountID); err != nil {
			return err
		}

		repo := s.repomanager.AccountGuardians(tx)
		ag, err := repo.FindByAccountAndGuardian(ctx, accountID, guardianID)
		if err != nil {
			return lookupErr(err, "guardian %s for account %s", guardianID, accountID)
		}
		if ag.Status == models.GuardianActive {
			return fmt.Errorf("%w: guardian must not be ACTIVE", common.ErrorInvalidState)
		}

		deleted, err := repo.DeleteAvailable(ctx, accountID, ag.ID)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("%w: guardian %s is no longer AVAILABLE", common.ErrorInvalidState, guardianID)
		}
		return nil
	})
}

// ListAccountsForGuardian returns the accounts protected by the guardian
// linked to accountID, optionally narrowed to filterAccountID. An account
// that is nobody's guardian gets an empty list.
func (s *GuardianService) ListAccountsForGuardian(ctx context.Context, accountID, filterAccountID string) ([]models.GuardianAccountView, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	guardian, err := s.repomanager.Guardians(s.db).FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return []models.GuardianAccountView{}, nil
		}
		return nil, err
	}

	views, err := s.repomanager.AccountGuardians(s.db).ListAccountsForGuardian(ctx, guardian.ID, filterAccountID)
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = []models.GuardianAccountView{}
	}
	return views, nil
}
