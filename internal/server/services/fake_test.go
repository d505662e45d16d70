package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"github.com/dmitrijs2005/guardkeeper/internal/dbx"
	"github.com/dmitrijs2005/guardkeeper/internal/server/config"
	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/accountguardians"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/guardians"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/guardiansettings"
	"github.com/dmitrijs2005/guardkeeper/internal/server/repositories/nominations"
	_ "modernc.org/sqlite"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// newTxDB returns a real database handle whose transactions always work,
// for tests that exercise several service calls in a row.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
		QueryTimeout:                time.Second,
		KeyEncryptionSecret:         "kek",
	}
}

// memStore is an in-memory stand-in for the PostgreSQL schema with the same
// uniqueness rules. Transactions are not modelled.
type memStore struct {
	mu sync.Mutex

	accounts   map[string]*models.Account
	guardians  map[string]*models.Guardian
	noms       map[string]*models.Nomination
	links      map[string]*models.AccountGuardian
	settings   map[string]*models.GuardianSettings
	locks      map[string]int
	seq        int
	failOn     map[string]error
	onActivate func()
}

func newMemStore() *memStore {
	return &memStore{
		accounts:  map[string]*models.Account{},
		guardians: map[string]*models.Guardian{},
		noms:      map[string]*models.Nomination{},
		links:     map[string]*models.AccountGuardian{},
		settings:  map[string]*models.GuardianSettings{},
		locks:     map[string]int{},
		failOn:    map[string]error{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%d", prefix, m.seq)
}

func (m *memStore) fail(op string) error {
	return m.failOn[op]
}

func (m *memStore) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *memStore) Accounts(dbx.DBTX) accounts.Repository                 { return memAccounts{m} }
func (m *memStore) Guardians(dbx.DBTX) guardians.Repository               { return memGuardians{m} }
func (m *memStore) Nominations(dbx.DBTX) nominations.Repository           { return memNominations{m} }
func (m *memStore) AccountGuardians(dbx.DBTX) accountguardians.Repository { return memLinks{m} }
func (m *memStore) GuardianSettings(dbx.DBTX) guardiansettings.Repository { return memSettings{m} }

func (m *memStore) addAccount(email, wallet string) *models.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := &models.Account{ID: m.nextID("acc-"), Email: email, WalletAddress: wallet}
	m.accounts[a.ID] = a
	return a
}

func (m *memStore) addLink(accountID, guardianID string, status models.GuardianStatus) *models.AccountGuardian {
	m.mu.Lock()
	defer m.mu.Unlock()
	ag := &models.AccountGuardian{ID: m.nextID("ag-"), AccountID: accountID, GuardianID: guardianID, Status: status}
	m.links[ag.ID] = ag
	return ag
}

func (m *memStore) statusOf(linkID string) models.GuardianStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.links[linkID].Status
}

func (m *memStore) activeSet(accountID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for _, ag := range m.links {
		if ag.AccountID == accountID && ag.Status == models.GuardianActive {
			ids = append(ids, ag.ID)
		}
	}
	sort.Strings(ids)
	return ids
}

func accountGuardianFilter(accountID string) accountguardians.Filter {
	return accountguardians.Filter{AccountID: accountID}
}

// --- accounts ---

type memAccounts struct{ m *memStore }

func (r memAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("accounts.Create"); err != nil {
		return nil, err
	}
	for _, x := range r.m.accounts {
		if x.Email == a.Email {
			return nil, fmt.Errorf("%w: account already exists for %s", common.ErrorInvalidState, a.Email)
		}
	}
	if a.ID == "" {
		a.ID = r.m.nextID("acc-")
	}
	cp := *a
	r.m.accounts[a.ID] = &cp
	return a, nil
}

func (r memAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("accounts.FindByID"); err != nil {
		return nil, err
	}
	if a, ok := r.m.accounts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (r memAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("accounts.FindByEmail"); err != nil {
		return nil, err
	}
	for _, a := range r.m.accounts {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memAccounts) FindAll(_ context.Context, f accounts.Filter) ([]*models.Account, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("accounts.FindAll"); err != nil {
		return nil, err
	}
	match := func(a *models.Account) bool {
		switch {
		case f.WalletAddress != "":
			return a.WalletAddress == f.WalletAddress
		case f.EOAAddress != "":
			return a.EOAAddress == f.EOAAddress
		case f.Email != "":
			return a.Email == f.Email
		}
		return true
	}
	var out []*models.Account
	for _, a := range r.m.accounts {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memAccounts) UpdateAddresses(_ context.Context, id string, wallet, eoa sql.NullString, updatedAt int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.accounts[id]
	if !ok {
		return false, nil
	}
	if wallet.Valid {
		a.WalletAddress = wallet.String
	}
	if eoa.Valid {
		a.EOAAddress = eoa.String
	}
	a.UpdatedAt = updatedAt
	return true, nil
}

// --- guardians ---

type memGuardians struct{ m *memStore }

func (r memGuardians) Create(_ context.Context, g *models.Guardian) (*models.Guardian, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("guardians.Create"); err != nil {
		return nil, err
	}
	for _, x := range r.m.guardians {
		if x.Email == g.Email {
			cp := *x
			return &cp, nil
		}
	}
	cp := *g
	if cp.ID == "" {
		cp.ID = r.m.nextID("g-")
	}
	r.m.guardians[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r memGuardians) find(match func(*models.Guardian) bool) (*models.Guardian, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("guardians.Find"); err != nil {
		return nil, err
	}
	for _, g := range r.m.guardians {
		if match(g) {
			cp := *g
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memGuardians) FindByID(_ context.Context, id string) (*models.Guardian, error) {
	return r.find(func(g *models.Guardian) bool { return g.ID == id })
}

func (r memGuardians) FindByEmail(_ context.Context, email string) (*models.Guardian, error) {
	return r.find(func(g *models.Guardian) bool { return g.Email == email })
}

func (r memGuardians) FindByAccountID(_ context.Context, accountID string) (*models.Guardian, error) {
	return r.find(func(g *models.Guardian) bool { return g.AccountID.Valid && g.AccountID.String == accountID })
}

func (r memGuardians) LinkAccount(_ context.Context, email, accountID, wallet string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, g := range r.m.guardians {
		if g.Email == email && !g.AccountID.Valid {
			g.AccountID = sql.NullString{String: accountID, Valid: true}
			g.WalletAddress = sql.NullString{String: wallet, Valid: true}
			n++
		}
	}
	return n, nil
}

// --- nominations ---

type memNominations struct{ m *memStore }

func (r memNominations) Create(_ context.Context, n *models.Nomination) (*models.Nomination, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("nominations.Create"); err != nil {
		return nil, err
	}
	if n.ID == "" {
		n.ID = r.m.nextID("n-")
	}
	cp := *n
	r.m.noms[n.ID] = &cp
	return n, nil
}

func (r memNominations) FindAll(_ context.Context, f nominations.Filter) ([]*models.Nomination, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*models.Nomination
	for _, n := range r.m.noms {
		if (f.AccountID == "" || n.AccountID == f.AccountID) &&
			(f.GuardianID == "" || n.GuardianID == f.GuardianID) &&
			(f.ID == "" || n.ID == f.ID) &&
			(f.Email == "" || n.Email == f.Email) &&
			(f.Status == "" || n.Status == f.Status) {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memNominations) findOne(match func(*models.Nomination) bool) (*models.Nomination, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, n := range r.m.noms {
		if match(n) {
			cp := *n
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memNominations) FindForAccount(_ context.Context, accountID, id string) (*models.Nomination, error) {
	return r.findOne(func(n *models.Nomination) bool { return n.ID == id && n.AccountID == accountID })
}

func (r memNominations) FindForGuardian(_ context.Context, guardianID, id string) (*models.Nomination, error) {
	return r.findOne(func(n *models.Nomination) bool { return n.ID == id && n.GuardianID == guardianID })
}

func (r memNominations) UpdateStatus(_ context.Context, guardianID, id string, status models.NominationStatus) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("nominations.UpdateStatus"); err != nil {
		return false, err
	}
	n, ok := r.m.noms[id]
	if !ok || n.GuardianID != guardianID || (n.Status != models.NominationPending && n.Status != status) {
		return false, nil
	}
	n.Status = status
	return true, nil
}

func (r memNominations) DeletePending(_ context.Context, accountID, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.noms[id]
	if !ok || n.AccountID != accountID || n.Status != models.NominationPending {
		return false, nil
	}
	delete(r.m.noms, id)
	return true, nil
}

// --- account guardians ---

type memLinks struct{ m *memStore }

func (r memLinks) Create(_ context.Context, ag *models.AccountGuardian) (*models.AccountGuardian, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("accountguardians.Create"); err != nil {
		return nil, err
	}
	for _, x := range r.m.links {
		if x.AccountID == ag.AccountID && x.GuardianID == ag.GuardianID {
			cp := *x
			return &cp, nil
		}
	}
	cp := *ag
	cp.ID = r.m.nextID("ag-")
	r.m.links[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r memLinks) FindByAccountAndGuardian(_ context.Context, accountID, guardianID string) (*models.AccountGuardian, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, x := range r.m.links {
		if x.AccountID == accountID && x.GuardianID == guardianID {
			cp := *x
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r memLinks) match(f accountguardians.Filter, ag *models.AccountGuardian) bool {
	if f.AccountID != "" && ag.AccountID != f.AccountID {
		return false
	}
	if f.GuardianID != "" && ag.GuardianID != f.GuardianID {
		return false
	}
	if f.Status != "" && ag.Status != f.Status {
		return false
	}
	if f.IDs != nil {
		for _, id := range f.IDs {
			if id == ag.ID {
				return true
			}
		}
		return false
	}
	return true
}

func (r memLinks) FindAll(_ context.Context, f accountguardians.Filter) ([]*models.AccountGuardian, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("accountguardians.FindAll"); err != nil {
		return nil, err
	}
	var out []*models.AccountGuardian
	for _, ag := range r.m.links {
		if r.match(f, ag) {
			cp := *ag
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memLinks) ListViews(_ context.Context, f accountguardians.Filter) ([]models.AccountGuardianView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.AccountGuardianView
	for _, ag := range r.m.links {
		if !r.match(f, ag) {
			continue
		}
		v := models.AccountGuardianView{ID: ag.ID, Status: ag.Status}
		if g, ok := r.m.guardians[ag.GuardianID]; ok {
			v.Email = g.Email
			v.WalletAddress = g.WalletAddress.String
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memLinks) ListAccountsForGuardian(_ context.Context, guardianID, accountID string) ([]models.GuardianAccountView, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []models.GuardianAccountView
	for _, ag := range r.m.links {
		if ag.GuardianID != guardianID || (accountID != "" && ag.AccountID != accountID) {
			continue
		}
		if a, ok := r.m.accounts[ag.AccountID]; ok {
			out = append(out, models.GuardianAccountView{ID: a.ID, Email: a.Email, WalletAddress: a.WalletAddress})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memLinks) DeleteAvailable(_ context.Context, accountID, id string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ag, ok := r.m.links[id]
	if !ok || ag.AccountID != accountID || ag.Status != models.GuardianAvailable {
		return false, nil
	}
	delete(r.m.links, id)
	return true, nil
}

func (r memLinks) SetStatusForAccount(_ context.Context, accountID string, status models.GuardianStatus) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("accountguardians.SetStatusForAccount"); err != nil {
		return 0, err
	}
	var n int64
	for _, ag := range r.m.links {
		if ag.AccountID == accountID {
			ag.Status = status
			n++
		}
	}
	return n, nil
}

func (r memLinks) SetStatusForIDs(_ context.Context, accountID string, ids []string, status models.GuardianStatus) (int64, error) {
	if r.m.onActivate != nil {
		r.m.onActivate()
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if ag, ok := r.m.links[id]; ok && ag.AccountID == accountID {
			ag.Status = status
			n++
		}
	}
	return n, nil
}

// --- settings ---

type memSettings struct{ m *memStore }

func (r memSettings) FindByAccountID(_ context.Context, accountID string) (*models.GuardianSettings, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s, ok := r.m.settings[accountID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, common.ErrorNotFound
}

func (r memSettings) Upsert(_ context.Context, accountID string, signers models.SigningStrategy) (*models.GuardianSettings, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("guardiansettings.Upsert"); err != nil {
		return nil, err
	}
	s, ok := r.m.settings[accountID]
	if !ok {
		s = &models.GuardianSettings{ID: r.m.nextID("s-"), AccountID: accountID}
		r.m.settings[accountID] = s
	}
	s.Signers = signers
	cp := *s
	return &cp, nil
}

func (r memSettings) LockAccount(_ context.Context, accountID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fail("guardiansettings.LockAccount"); err != nil {
		return err
	}
	r.m.locks[accountID]++
	return nil
}
