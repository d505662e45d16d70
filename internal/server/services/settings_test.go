package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/guardkeeper/internal/common"
	"github.com/dmitrijs2005/guardkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingsFixture struct {
	svc   *SettingsService
	store *memStore
	owner *models.Account
	links []*models.AccountGuardian
}

// newSettingsFixture registers an account with n AVAILABLE guardians.
func newSettingsFixture(t *testing.T, n int) *settingsFixture {
	t.Helper()
	store := newMemStore()
	f := &settingsFixture{
		svc:   NewSettingsService(newTxDB(t), store, testConfig()),
		store: store,
		owner: store.addAccount("owner@x.io", "0xW"),
	}
	for i := 0; i < n; i++ {
		g := store.addGuardian(string(rune('a'+i))+"@x.io", "", "")
		f.links = append(f.links, store.addLink(f.owner.ID, g.ID, models.GuardianAvailable))
	}
	return f
}

func (f *settingsFixture) ids(idx ...int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, f.links[i].ID)
	}
	return out
}

func viewIDs(views []models.AccountGuardianView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func TestSettingsService_Update_ThresholdForEveryStrategy(t *testing.T) {
	for _, strategy := range models.AllSigningStrategies() {
		k := strategy.Threshold()
		for proposed := 0; proposed <= 3; proposed++ {
			f := newSettingsFixture(t, 3)
			idx := make([]int, proposed)
			for i := range idx {
				idx[i] = i
			}

			view, err := f.svc.Update(context.Background(), f.owner.ID, strategy, f.ids(idx...))
			if proposed != k {
				require.ErrorIs(t, err, common.ErrorInvalidPolicy, "%s with %d guardians", strategy, proposed)
				assert.Empty(t, f.store.activeSet(f.owner.ID))
				assert.Empty(t, f.store.settings)
				continue
			}
			require.NoError(t, err, "%s with %d guardians", strategy, proposed)
			assert.Equal(t, strategy, view.Strategy)
			assert.ElementsMatch(t, f.ids(idx...), f.store.activeSet(f.owner.ID))
			assert.ElementsMatch(t, f.ids(idx...), viewIDs(view.ActiveGuardians))
		}
	}
}

func TestSettingsService_Update_ReplacesActiveSet(t *testing.T) {
	f := newSettingsFixture(t, 4)

	_, err := f.svc.Update(context.Background(), f.owner.ID, models.TwoOfThree, f.ids(0, 1, 2))
	require.NoError(t, err)
	assert.ElementsMatch(t, f.ids(0, 1, 2), f.store.activeSet(f.owner.ID))

	_, err = f.svc.Update(context.Background(), f.owner.ID, models.OneOfOne, f.ids(3))
	require.NoError(t, err)

	assert.Equal(t, f.ids(3), f.store.activeSet(f.owner.ID))
	for _, i := range []int{0, 1, 2} {
		assert.Equal(t, models.GuardianAvailable, f.store.statusOf(f.links[i].ID))
	}
	assert.Len(t, f.store.settings, 1, "settings row is reused")
	assert.Equal(t, models.OneOfOne, f.store.settings[f.owner.ID].Signers)
	assert.Equal(t, 2, f.store.locks[f.owner.ID])
}

func TestSettingsService_Update_ReproposingActiveGuardian(t *testing.T) {
	f := newSettingsFixture(t, 2)

	_, err := f.svc.Update(context.Background(), f.owner.ID, models.OneOfOne, f.ids(0))
	require.NoError(t, err)
	_, err = f.svc.Update(context.Background(), f.owner.ID, models.TwoOfTwo, f.ids(0, 1))
	require.NoError(t, err)

	assert.ElementsMatch(t, f.ids(0, 1), f.store.activeSet(f.owner.ID))
}

func TestSettingsService_Update_UnknownGuardian(t *testing.T) {
	f := newSettingsFixture(t, 2)
	foreign := f.store.addLink("someone-else", f.links[0].GuardianID, models.GuardianAvailable).ID

	_, err := f.svc.Update(context.Background(), f.owner.ID, models.TwoOfTwo, []string{f.links[0].ID, foreign})
	require.ErrorIs(t, err, common.ErrorInvalidInput)
	assert.Contains(t, err.Error(), foreign)
	assert.Empty(t, f.store.activeSet(f.owner.ID))
	assert.Empty(t, f.store.settings)
}

func TestSettingsService_Update_DuplicateGuardian(t *testing.T) {
	f := newSettingsFixture(t, 2)

	_, err := f.svc.Update(context.Background(), f.owner.ID, models.TwoOfTwo, f.ids(0, 0))
	require.ErrorIs(t, err, common.ErrorInvalidInput)
	assert.Contains(t, err.Error(), f.links[0].ID)
	assert.Empty(t, f.store.activeSet(f.owner.ID))
}

func TestSettingsService_Update_Errors(t *testing.T) {
	f := newSettingsFixture(t, 1)

	_, err := f.svc.Update(context.Background(), f.owner.ID, models.SigningStrategy("FiveOfSix"), f.ids(0))
	require.ErrorIs(t, err, common.ErrorInvalidPolicy)

	_, err = f.svc.Update(context.Background(), "missing", models.OneOfOne, f.ids(0))
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSettingsService_Update_PartialActivationRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	f := newSettingsFixture(t, 2)
	f.svc = NewSettingsService(db, f.store, testConfig())
	f.store.onActivate = func() {
		f.store.mu.Lock()
		delete(f.store.links, f.links[1].ID)
		f.store.mu.Unlock()
	}

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.svc.Update(context.Background(), f.owner.ID, models.TwoOfTwo, f.ids(0, 1))
	require.ErrorIs(t, err, common.ErrorStorage)
	assert.True(t, common.IsRetryable(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsService_Update_StorageFailureRollsBack(t *testing.T) {
	db, mock := newSQLMockDB(t)
	f := newSettingsFixture(t, 1)
	f.svc = NewSettingsService(db, f.store, testConfig())
	boom := errors.New("boom")
	f.store.failOn["accountguardians.SetStatusForAccount"] = boom

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := f.svc.Update(context.Background(), f.owner.ID, models.OneOfOne, f.ids(0))
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsService_Get(t *testing.T) {
	f := newSettingsFixture(t, 2)

	_, err := f.svc.Get(context.Background(), f.owner.ID)
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = f.svc.Update(context.Background(), f.owner.ID, models.OneOfTwo, f.ids(0, 1))
	require.NoError(t, err)

	first, err := f.svc.Get(context.Background(), f.owner.ID)
	require.NoError(t, err)
	second, err := f.svc.Get(context.Background(), f.owner.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, models.OneOfTwo, first.Strategy)
	assert.Equal(t, models.AllSigningStrategies(), first.AllStrategies)
	assert.ElementsMatch(t, f.ids(0, 1), viewIDs(first.ActiveGuardians))
}

func TestOffendingIDs(t *testing.T) {
	owned := []*models.AccountGuardian{{ID: "a"}, {ID: "b"}}

	assert.Nil(t, offendingIDs([]string{"a", "b"}, owned))
	assert.Equal(t, []string{"x"}, offendingIDs([]string{"a", "x"}, owned))
	assert.Equal(t, []string{"a"}, offendingIDs([]string{"a", "a"}, owned))
	assert.Equal(t, []string{"x", "x"}, offendingIDs([]string{"x", "x"}, owned))
}
