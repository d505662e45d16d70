package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"github.com/dmitrijs2005/guardkeeper/internal/cryptox"
	"github.com/dmitrijs2005/guardkeeper/internal/dbx"
	"github.com/dmitrijs2005/guardkeeper/internal/server/auth"
	"github.com/dmitrijs2005/guardkeeper/internal/server/config"
	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/guardkeeper/internal/server/wallet"
	"github.com/dmitrijs2005/guardkeeper/internal/timex"
)

// CreatedAccount is returned once, when an account is provisioned.
type CreatedAccount struct {
	AccountID     string
	AccessToken   string
	WalletAddress string
}

// AccountFilter selects accounts by one of its keys.
type AccountFilter struct {
	WalletAddress string
	EOAAddress    string
	Email         string
}

// AccountService provisions accounts and their contract wallets.
type AccountService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	wallets                     wallet.Creator
	sealer                      *cryptox.Sealer
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	queryTimeout                time.Duration
	now                         func() int64
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, wallets wallet.Creator, cfg *config.Config) *AccountService {
	return &AccountService{
		db:                          db,
		repomanager:                 m,
		wallets:                     wallets,
		sealer:                      cryptox.NewSealer(cfg.KeyEncryptionSecret),
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		queryTimeout:                cfg.QueryTimeout,
		now:                         timex.NowMillis,
	}
}

// Create provisions a wallet for email, stores the account with its owner
// key sealed, links any guardian row already invited under email and
// returns an access token for the new account.
func (s *AccountService) Create(ctx context.Context, email string, paymasterTokens []string) (*CreatedAccount, error) {
	if !common.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: invalid email %q", common.ErrorInvalidInput, email)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	_, err := s.repomanager.Accounts(s.db).FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: account already exists for %s", common.ErrorInvalidState, email)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, err
	}

	keys, err := s.wallets.CreateWallet(ctx, paymasterTokens)
	if err != nil {
		if errors.Is(err, common.ErrorInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create wallet: %w", common.ErrorInternal, err)
	}
	sealed, err := s.sealer.Seal(keys.EOAPrivateKey)
	common.WipeByteArray(keys.EOAPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: seal owner key: %w", common.ErrorInternal, err)
	}

	account := &models.Account{
		Email:         email,
		WalletAddress: keys.WalletAddress,
		EOAAddress:    keys.EOAAddress,
		EOAPrivateKey: sealed,
		UpdatedAt:     s.now(),
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		created, err := s.repomanager.Accounts(tx).Create(ctx, account)
		if err != nil {
			return err
		}
		_, err = s.repomanager.Guardians(tx).LinkAccount(ctx, email, created.ID, created.WalletAddress)
		return err
	})
	if err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(account.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, fmt.Errorf("%w: issue token: %w", common.ErrorInternal, err)
	}

	return &CreatedAccount{AccountID: account.ID, AccessToken: token, WalletAddress: account.WalletAddress}, nil
}

// GetByEmail returns the account registered under email without its key
// material.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if !common.ValidateEmail(email) {
		return nil, fmt.Errorf("%w: invalid email %q", common.ErrorInvalidInput, email)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	acc, err := s.repomanager.Accounts(s.db).FindByEmail(ctx, email)
	if err != nil {
		return nil, lookupErr(err, "account %s", email)
	}
	acc.EOAPrivateKey = nil
	return acc, nil
}

// Find looks accounts up by wallet address, EOA address or email, in that
// order of precedence. Key material is never returned and at least one
// lookup key is required.
func (s *AccountService) Find(ctx context.Context, f AccountFilter) ([]*models.Account, error) {
	if f.WalletAddress == "" && f.EOAAddress == "" && f.Email == "" {
		return nil, fmt.Errorf("%w: wallet_address, eoa_address or email is required", common.ErrorInvalidInput)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	found, err := s.repomanager.Accounts(s.db).FindAll(ctx, accounts.Filter(f))
	if err != nil {
		return nil, err
	}
	out := make([]*models.Account, 0, len(found))
	for _, a := range found {
		a.EOAPrivateKey = nil
		out = append(out, a)
	}
	return out, nil
}

// Update overwrites the wallet and/or EOA address of accountID. A nil
// address is left as is; at least one must be given.
func (s *AccountService) Update(ctx context.Context, accountID string, walletAddress, eoaAddress *string) error {
	if walletAddress == nil && eoaAddress == nil {
		return fmt.Errorf("%w: nothing to update", common.ErrorInvalidInput)
	}

	ctx, cancel := dbx.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	updated, err := s.repomanager.Accounts(s.db).UpdateAddresses(ctx, accountID, nullString(walletAddress), nullString(eoaAddress), s.now())
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("%w: account %s", common.ErrorNotFound, accountID)
	}
	return nil
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}
