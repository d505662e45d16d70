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
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/nominations"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/repomanager"
)

// NominationFilter narrows nomination listings. Empty fields match all.
type NominationFilter struct {
	ID     string
	Status string
	Email  string
}

// NominationService issues nominations and applies guardian responses.
type NominationService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	queryTimeout time.Duration
}

func NewNominationService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *NominationService {
	return &NominationService{db: db, repomanager: m, queryTimeout: cfg.QueryTimeout}
}

// Create nominates email as a guardian of accountID. The guardian row for
// email is reused when present, otherwise created (linked to the account
// registered under email, if any). The nomination always starts PENDING.
func (s *NominationService) Create(ctx context.Context, accountID, email string) (*models.Nomination, error) {
	if !common.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: invalid email %q", common.ErrorInvalidInput, email)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.repomanager.Accounts(s.db).FindByID(ctx, accountID); err != nil {
		return nil, lookupErr(err, "account %s", accountID)
	}

	var nomination *models.Nomination
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		guardian, err := s.resolveGuardian(ctx, tx, email)
		if err != nil {
			return err
		}

		nomination, err = s.repomanager.Nominations(tx).Create(ctx, &models.Nomination{
			Email:      email,
			GuardianID: guardian.ID,
			AccountID:  accountID,
			Status:     models.NominationPending,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return nomination, nil
}

func (s *NominationService) resolveGuardian(ctx context.Context, tx dbx.DBTX, email string) (*models.Guardian, error) {
	guardians := s.repomanager.Guardians(tx)

	g, err := guardians.FindByEmail(ctx, email)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, err
	}

	candidate := &models.Guardian{Email: email}
	acc, err := s.repomanager.Accounts(tx).FindByEmail(ctx, email)
	switch {
	case err == nil:
		candidate.AccountID = sql.NullString{String: acc.ID, Valid: true}
		candidate.WalletAddress = sql.NullString{String: acc.WalletAddress, Valid: acc.WalletAddress != ""}
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	return guardians.Create(ctx, candidate)
}

// UpdateStatus records the response of the guardian linked to
// guardianAccountID. Accepting makes the guardian AVAILABLE to the
// nominating account in the same transaction.
func (s *NominationService) UpdateStatus(ctx context.Context, guardianAccountID, nominationID, requested string) (*models.Nomination, error) {
	status, ok := models.ParseNominationStatus(requested)
	if !ok || status == models.NominationPending {
		return nil, fmt.Errorf("%w: cannot set status %q", common.ErrorInvalidTransition, requested)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	guardian, err := s.repomanager.Guardians(s.db).FindByAccountID(ctx, guardianAccountID)
	if err != nil {
		return nil, lookupErr(err, "no guardian linked to account %s", guardianAccountID)
	}

	var nomination *models.Nomination
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Nominations(tx)

		n, err := repo.FindForGuardian(ctx, guardian.ID, nominationID)
		if err != nil {
			return lookupErr(err, "nomination %s", nominationID)
		}
		if !transitionAllowed(n.Status, status) {
			return fmt.Errorf("%w: nomination %s is %s", common.ErrorInvalidTransition, n.ID, n.Status)
		}

		if status == models.NominationAccepted {
			if err := s.repomanager.GuardianSettings(tx).LockAccount(ctx, n.AccountID); err != nil {
				return err
			}
			if _, err := s.repomanager.AccountGuardians(tx).Create(ctx, &models.AccountGuardian{
				GuardianID: guardian.ID,
				AccountID:  n.AccountID,
				Status:     models.GuardianAvailable,
			}); err != nil {
				return err
			}
		}

		updated, err := repo.UpdateStatus(ctx, guardian.ID, n.ID, status)
		if err != nil {
			return err
		}
		if !updated {
			return fmt.Errorf("%w: nomination %s changed concurrently", common.ErrorInvalidTransition, n.ID)
		}

		n.Status = status
		nomination = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nomination, nil
}

// transitionAllowed forbids only moving between the two terminal states.
func transitionAllowed(current, requested models.NominationStatus) bool {
	switch {
	case requested == models.NominationAccepted && current == models.NominationRejected:
		return false
	case requested == models.NominationRejected && current == models.NominationAccepted:
		return false
	}
	return true
}

// Delete withdraws a nomination issued by accountID while it is PENDING.
func (s *NominationService) Delete(ctx context.Context, accountID, nominationID string) error {
	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	repo := s.repomanager.Nominations(s.db)

	n, err := repo.FindForAccount(ctx, accountID, nominationID)
	if err != nil {
		return lookupErr(err, "nomination %s", nominationID)
	}
	if n.Status != models.NominationPending {
		return fmt.Errorf("%w: nomination %s is %s", common.ErrorInvalidState, n.ID, n.Status)
	}

	deleted, err := repo.DeletePending(ctx, accountID, n.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: nomination %s is no longer PENDING", common.ErrorInvalidState, n.ID)
	}
	return nil
}

// ListForAccount returns nominations issued by accountID.
func (s *NominationService) ListForAccount(ctx context.Context, accountID string, f NominationFilter) ([]*models.Nomination, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	return s.repomanager.Nominations(s.db).FindAll(ctx, nominations.Filter{
		AccountID: accountID,
		ID:        f.ID,
		Email:     f.Email,
		Status:    models.NominationStatus(strings.ToUpper(f.Status)),
	})
}

// ListForGuardian returns nominations addressed to the guardian linked to
// accountID, or none if accountID is nobody's guardian.
func (s *NominationService) ListForGuardian(ctx context.Context, accountID string, f NominationFilter) ([]*models.Nomination, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	guardian, err := s.repomanager.Guardians(s.db).FindByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return []*models.Nomination{}, nil
		}
		return nil, err
	}

	return s.repomanager.Nominations(s.db).FindAll(ctx, nominations.Filter{
		GuardianID: guardian.ID,
		ID:         f.ID,
		Status:     models.NominationStatus(strings.ToUpper(f.Status)),
	})
}
