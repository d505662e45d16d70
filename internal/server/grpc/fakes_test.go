package grpc

import (
	"context"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"github.com/dmitrijs2005/guardkeeper/internal/logging"
	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
	"github.com/dmitrijs2005/guardkeeper/internal/server/services"
)

// ---- fakes ----

type fakeResolver struct {
	tokens map[string]string
}

func (f fakeResolver) Resolve(_ context.Context, token string) (string, error) {
	if id, ok := f.tokens[token]; ok {
		return id, nil
	}
	return "", common.ErrorUnauthorized
}

type fakeAccounts struct {
	created   *services.CreatedAccount
	account   *models.Account
	err       error
	gotEmail  string
	gotTokens []string
	gotWallet *string
	gotEOA    *string
	gotID     string
	found     []*models.Account
	gotFilter services.AccountFilter
}

func (f *fakeAccounts) Create(_ context.Context, email string, tokens []string) (*services.CreatedAccount, error) {
	f.gotEmail, f.gotTokens = email, tokens
	return f.created, f.err
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	f.gotEmail = email
	return f.account, f.err
}

func (f *fakeAccounts) Find(_ context.Context, filter services.AccountFilter) ([]*models.Account, error) {
	f.gotFilter = filter
	return f.found, f.err
}

func (f *fakeAccounts) Update(_ context.Context, accountID string, wallet, eoa *string) error {
	f.gotID, f.gotWallet, f.gotEOA = accountID, wallet, eoa
	return f.err
}

type fakeNominations struct {
	nomination *models.Nomination
	list       []*models.Nomination
	err        error
	gotAccount string
	gotID      string
	gotStatus  string
	gotFilter  services.NominationFilter
}

func (f *fakeNominations) Create(_ context.Context, accountID, email string) (*models.Nomination, error) {
	f.gotAccount = accountID
	return f.nomination, f.err
}

func (f *fakeNominations) UpdateStatus(_ context.Context, accountID, id, status string) (*models.Nomination, error) {
	f.gotAccount, f.gotID, f.gotStatus = accountID, id, status
	return f.nomination, f.err
}

func (f *fakeNominations) Delete(_ context.Context, accountID, id string) error {
	f.gotAccount, f.gotID = accountID, id
	return f.err
}

func (f *fakeNominations) ListForAccount(_ context.Context, accountID string, filter services.NominationFilter) ([]*models.Nomination, error) {
	f.gotAccount, f.gotFilter = accountID, filter
	return f.list, f.err
}

func (f *fakeNominations) ListForGuardian(_ context.Context, accountID string, filter services.NominationFilter) ([]*models.Nomination, error) {
	f.gotAccount, f.gotFilter = accountID, filter
	return f.list, f.err
}

type fakeGuardians struct {
	views      []models.AccountGuardianView
	accounts   []models.GuardianAccountView
	err        error
	gotAccount string
	gotID      string
	gotFilter  services.GuardianFilter
}

func (f *fakeGuardians) ListAccountGuardians(_ context.Context, accountID string, filter services.GuardianFilter) ([]models.AccountGuardianView, error) {
	f.gotAccount, f.gotFilter = accountID, filter
	return f.views, f.err
}

func (f *fakeGuardians) RemoveAccountGuardian(_ context.Context, accountID, guardianID string) error {
	f.gotAccount, f.gotID = accountID, guardianID
	return f.err
}

func (f *fakeGuardians) ListAccountsForGuardian(_ context.Context, accountID, filterAccountID string) ([]models.GuardianAccountView, error) {
	f.gotAccount, f.gotID = accountID, filterAccountID
	return f.accounts, f.err
}

type fakeSettings struct {
	view        *services.SettingsView
	err         error
	gotAccount  string
	gotStrategy models.SigningStrategy
	gotIDs      []string
}

func (f *fakeSettings) Get(_ context.Context, accountID string) (*services.SettingsView, error) {
	f.gotAccount = accountID
	return f.view, f.err
}

func (f *fakeSettings) Update(_ context.Context, accountID string, strategy models.SigningStrategy, ids []string) (*services.SettingsView, error) {
	f.gotAccount, f.gotStrategy, f.gotIDs = accountID, strategy, ids
	return f.view, f.err
}

type fixture struct {
	srv         *GRPCServer
	accounts    *fakeAccounts
	nominations *fakeNominations
	guardians   *fakeGuardians
	settings    *fakeSettings
}

func newFixture() *fixture {
	f := &fixture{
		accounts:    &fakeAccounts{},
		nominations: &fakeNominations{},
		guardians:   &fakeGuardians{},
		settings:    &fakeSettings{},
	}
	f.srv = NewGRPCServer("127.0.0.1:0", logging.Nop{}, Services{
		Accounts:    f.accounts,
		Nominations: f.nominations,
		Guardians:   f.guardians,
		Settings:    f.settings,
	}, fakeResolver{tokens: map[string]string{"good": "acc-1"}}, 0, 0)
	return f
}

func asCaller(accountID string) context.Context {
	return context.WithValue(context.Background(), accountIDKey, accountID)
}
