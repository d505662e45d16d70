package services

import (
	"context"
	"database/sql"
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

// SettingsView is the signing policy of an account together with the
// guardians currently enforcing it.
type SettingsView struct {
	Strategy        models.SigningStrategy
	ActiveGuardians []models.AccountGuardianView
	AllStrategies   []models.SigningStrategy
}

// SettingsService reads and applies M-of-N signing policies.
type SettingsService struct {
	db           *sql.DB
	repomanager  repomanager.RepositoryManager
	queryTimeout time.Duration
}

func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *SettingsService {
	return &SettingsService{db: db, repomanager: m, queryTimeout: cfg.QueryTimeout}
}

func (s *SettingsService) Get(ctx context.Context, accountID string) (*SettingsView, error) {
	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	settings, err := s.repomanager.GuardianSettings(s.db).FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, lookupErr(err, "guardian settings for account %s", accountID)
	}

	active, err := s.activeGuardians(ctx, s.db, accountID)
	if err != nil {
		return nil, err
	}
	return newSettingsView(settings.Signers, active), nil
}

// Update applies strategy with exactly guardianIDs (account_guardians row
// ids) as the ACTIVE set. Every other guardian of the account becomes
// AVAILABLE. Validation happens before any write and the writes commit
// together under the account lock.
func (s *SettingsService) Update(ctx context.Context, accountID string, strategy models.SigningStrategy, guardianIDs []string) (*SettingsView, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: unknown signing strategy %q", common.ErrorInvalidPolicy, strategy)
	}
	if required := strategy.Threshold(); len(guardianIDs) != required {
		return nil, fmt.Errorf("%w: %s requires %d guardians, got %d",
			common.ErrorInvalidPolicy, strategy, required, len(guardianIDs))
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	if _, err := s.repomanager.Accounts(s.db).FindByID(ctx, accountID); err != nil {
		return nil, lookupErr(err, "account %s", accountID)
	}

	var view *SettingsView
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.GuardianSettings(tx).LockAccount(ctx, accountID); err != nil {
			return err
		}

		agRepo := s.repomanager.AccountGuardians(tx)

		proposed, err := agRepo.FindAll(ctx, accountguardians.Filter{AccountID: accountID, IDs: guardianIDs})
		if err != nil {
			return err
		}
		all, err := agRepo.FindAll(ctx, accountguardians.Filter{AccountID: accountID})
		if err != nil {
			return err
		}
		if len(proposed) != len(guardianIDs) {
			return fmt.Errorf("%w: guardians not available to account: %s",
				common.ErrorInvalidInput, strings.Join(offendingIDs(guardianIDs, all), ", "))
		}

		if _, err := s.repomanager.GuardianSettings(tx).Upsert(ctx, accountID, strategy); err != nil {
			return err
		}
		if _, err := agRepo.SetStatusForAccount(ctx, accountID, models.GuardianAvailable); err != nil {
			return err
		}
		n, err := agRepo.SetStatusForIDs(ctx, accountID, guardianIDs, models.GuardianActive)
		if err != nil {
			return err
		}
		if n != int64(len(guardianIDs)) {
			return fmt.Errorf("%w: %w: activated %d of %d guardians",
				common.ErrorStorage, common.ErrorRetryable, n, len(guardianIDs))
		}

		active, err := s.activeGuardians(ctx, tx, accountID)
		if err != nil {
			return err
		}
		view = newSettingsView(strategy, active)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *SettingsService) activeGuardians(ctx context.Context, db dbx.DBTX, accountID string) ([]models.AccountGuardianView, error) {
	active, err := s.repomanager.AccountGuardians(db).ListViews(ctx, accountguardians.Filter{
		AccountID: accountID,
		Status:    models.GuardianActive,
	})
	if err != nil {
		return nil, err
	}
	if active == nil {
		active = []models.AccountGuardianView{}
	}
	return active, nil
}

func newSettingsView(strategy models.SigningStrategy, active []models.AccountGuardianView) *SettingsView {
	return &SettingsView{
		Strategy:        strategy,
		ActiveGuardians: active,
		AllStrategies:   models.AllSigningStrategies(),
	}
}

// offendingIDs lists proposed ids that are not rows of the account, plus
// every repeat of an id already seen.
func offendingIDs(proposed []string, owned []*models.AccountGuardian) []string {
	known := make(map[string]bool, len(owned))
	for _, ag := range owned {
		known[ag.ID] = true
	}

	seen := make(map[string]bool, len(proposed))
	var bad []string
	for _, id := range proposed {
		if !known[id] || seen[id] {
			bad = append(bad, id)
		}
		seen[id] = true
	}
	return bad
}
