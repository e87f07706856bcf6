package txn

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/txkv/lib/persist"
	"github.com/ValentinKolb/txkv/lib/store"
	"github.com/ValentinKolb/txkv/lib/store/lstore"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// failingPersistence fails every Save while fail is set
type failingPersistence struct {
	persist.IPersistence
	fail bool
}

func (f *failingPersistence) Save(mapping map[string][]byte) error {
	if f.fail {
		return store.NewError(store.RetCPersistenceFailure, "disk full")
	}
	return f.IPersistence.Save(mapping)
}

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(lstore.NewLocalStore(), persist.NewMemoryPersistence())
}

// commitValue writes and commits a single key
func commitValue(t *testing.T, m *Manager, key, value string) {
	t.Helper()
	id, err := m.Start()
	require.NoError(t, err)
	require.NoError(t, m.Set(key, []byte(value), id))
	require.NoError(t, m.Commit(id))
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestGetUnwrittenKey(t *testing.T) {
	m := newTestManager(t)

	for _, key := range []string{"a", "b", "never-written"} {
		val, ok, err := m.Get(key, "")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, val)
	}
}

func TestReadYourOwnWrites(t *testing.T) {
	m := newTestManager(t)
	commitValue(t, m, "k", "old")

	id, err := m.Start()
	require.NoError(t, err)
	require.NoError(t, m.Set("k", []byte("new"), id))

	// inside the transaction the pending value is visible
	val, ok, err := m.Get("k", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), val)

	// outside of it the committed value is still visible
	val, ok, err = m.Get("k", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("old"), val)

	// keys not written by the transaction fall through to the store
	commitValue(t, m, "other", "committed")
	val, ok, err = m.Get("other", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("committed"), val)
}

func TestSetOverwritesPendingValue(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Start()
	require.NoError(t, err)
	require.NoError(t, m.Set("k", []byte("1"), id))
	require.NoError(t, m.Set("k", []byte("2"), id))
	require.NoError(t, m.Commit(id))

	val, ok, err := m.Get("k", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("2"), val)
}

func TestCommitInvalidatesTransaction(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Start()
	require.NoError(t, err)
	require.NoError(t, m.Set("k", []byte("v"), id))
	require.NoError(t, m.Commit(id))

	val, ok, err := m.Get("k", "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	assert.ErrorIs(t, m.Set("k", []byte("x"), id), store.ErrUnknownTransaction)
	assert.ErrorIs(t, m.Commit(id), store.ErrUnknownTransaction)
	assert.ErrorIs(t, m.Rollback(id), store.ErrUnknownTransaction)
	_, _, err = m.Get("k", id)
	assert.ErrorIs(t, err, store.ErrUnknownTransaction)
	assert.Equal(t, 0, m.Active())
}

func TestRollbackKeepsCommittedData(t *testing.T) {
	m := newTestManager(t)
	commitValue(t, m, "unrelated", "1")

	id, err := m.Start()
	require.NoError(t, err)
	require.NoError(t, m.Set("k", []byte("pending"), id))

	// another transaction commits after id was started
	commitValue(t, m, "later", "2")

	require.NoError(t, m.Rollback(id))

	// the rolled back write is gone, all other committed data is untouched
	assert.Equal(t, map[string][]byte{
		"unrelated": []byte("1"),
		"later":     []byte("2"),
	}, m.Store().GetAll())

	assert.ErrorIs(t, m.Set("k", []byte("x"), id), store.ErrUnknownTransaction)
	assert.ErrorIs(t, m.Commit(id), store.ErrUnknownTransaction)
	assert.ErrorIs(t, m.Rollback(id), store.ErrUnknownTransaction)
}

func TestCommitUnknownTransaction(t *testing.T) {
	m := newTestManager(t)
	commitValue(t, m, "a", "1")
	before := m.Store().GetAll()

	err := m.Commit("does-not-exist")
	assert.ErrorIs(t, err, store.ErrUnknownTransaction)
	assert.Equal(t, before, m.Store().GetAll())
}

func TestSetInvalidKey(t *testing.T) {
	m := newTestManager(t)

	id, err := m.Start()
	require.NoError(t, err)
	require.NoError(t, m.Set("k", []byte("v"), id))

	err = m.Set("", []byte("v"), id)
	assert.ErrorIs(t, err, store.ErrInvalidKey)
	assert.Equal(t, store.RetCInvalidKey, store.CodeOf(err))

	// the change set is unchanged
	tx, ok := m.transactions.Load(id)
	require.True(t, ok)
	assert.Equal(t, map[string][]byte{"k": []byte("v")}, tx.changes)
}

func TestSetUnknownTransaction(t *testing.T) {
	m := newTestManager(t)
	assert.ErrorIs(t, m.Set("k", []byte("v"), "nope"), store.ErrUnknownTransaction)
}

func TestSnapshotIsIndependentOfStore(t *testing.T) {
	m := newTestManager(t)
	commitValue(t, m, "k", "before")

	id, err := m.Start()
	require.NoError(t, err)

	commitValue(t, m, "k", "after")

	// committed reads see the latest committed value
	val, ok, err := m.Get("k", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("after"), val)
}

func TestStaleKeys(t *testing.T) {
	m := newTestManager(t)
	commitValue(t, m, "same", "1")
	commitValue(t, m, "changed", "1")
	commitValue(t, m, "untouched", "1")

	id, err := m.Start()
	require.NoError(t, err)
	for _, key := range []string{"same", "changed", "added"} {
		require.NoError(t, m.Set(key, []byte("tx"), id))
	}

	// other transactions commit after the start
	commitValue(t, m, "changed", "2")
	commitValue(t, m, "added", "3")

	tx, ok := m.transactions.Load(id)
	require.True(t, ok)
	assert.Equal(t, []string{"added", "changed"}, tx.staleKeys(m.Store().GetAll()))

	// the last commit still wins
	require.NoError(t, m.Commit(id))
	for _, key := range []string{"same", "changed", "added"} {
		val, found, err := m.Get(key, "")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, []byte("tx"), val)
	}
}

func TestCommitPersistenceFailure(t *testing.T) {
	p := &failingPersistence{IPersistence: persist.NewMemoryPersistence()}
	m := NewManager(lstore.NewLocalStore(), p)
	commitValue(t, m, "a", "1")

	id, err := m.Start()
	require.NoError(t, err)
	require.NoError(t, m.Set("a", []byte("2"), id))
	require.NoError(t, m.Set("b", []byte("3"), id))

	p.fail = true
	err = m.Commit(id)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrPersistenceFailure)

	// neither the store nor the durable state changed, the transaction is gone
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, m.Store().GetAll())
	durable, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, durable)
	assert.ErrorIs(t, m.Commit(id), store.ErrUnknownTransaction)
	assert.Equal(t, 0, m.Active())
}

func TestAllocationFailure(t *testing.T) {
	m := newTestManager(t)
	m.newID = func() (string, error) { return "", errors.New("entropy exhausted") }

	_, err := m.Start()
	assert.ErrorIs(t, err, store.ErrAllocationFailure)
	assert.Equal(t, 0, m.Active())
}

func TestDuplicateIDIsRejected(t *testing.T) {
	m := newTestManager(t)
	m.newID = func() (string, error) { return "fixed", nil }

	_, err := m.Start()
	require.NoError(t, err)
	_, err = m.Start()
	assert.ErrorIs(t, err, store.ErrAllocationFailure)
	assert.Equal(t, 1, m.Active())
}

func TestIDsAreUnique(t *testing.T) {
	m := newTestManager(t)
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := m.Start()
		require.NoError(t, err)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	assert.Equal(t, 1000, m.Active())
}

func TestStartupLoadsDurableState(t *testing.T) {
	fs := afero.NewMemMapFs()
	p := persist.NewFsPersistence(fs, "state.snapshot")

	first := NewManager(lstore.NewLocalStore(), p)
	commitValue(t, first, "a", "1")
	commitValue(t, first, "b", "2")

	// a second manager (e.g. after a restart) sees the committed data
	second := NewManager(lstore.NewLocalStore(), persist.NewFsPersistence(fs, "state.snapshot"))
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, second.Store().GetAll())
}

func TestStartupWithCorruptState(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "state.snapshot", []byte("garbage"), 0o644))

	m := NewManager(lstore.NewLocalStore(), persist.NewFsPersistence(fs, "state.snapshot"))
	assert.Equal(t, 0, m.Store().Len())

	// the store is usable and the next commit replaces the corrupt state
	commitValue(t, m, "a", "1")
	loaded, err := persist.NewFsPersistence(fs, "state.snapshot").Load()
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, loaded)
}
