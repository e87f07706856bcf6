package txn

import (
	"fmt"
	"sync"
	"time"

	"github.com/ValentinKolb/txkv/lib/persist"
	"github.com/ValentinKolb/txkv/lib/store"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("txn")

var (
	startedTotal    = metrics.GetOrCreateCounter("txkv_transactions_started_total")
	committedTotal  = metrics.GetOrCreateCounter("txkv_transactions_committed_total")
	rolledBackTotal = metrics.GetOrCreateCounter("txkv_transactions_rolled_back_total")
	commitFailTotal = metrics.GetOrCreateCounter("txkv_transactions_commit_failures_total")
	commitDuration  = metrics.GetOrCreateHistogram("txkv_commit_duration_seconds")
)

// Manager creates, looks up, commits and discards transactions.
// It owns the store and is the only component that mutates it.
//
// All methods are safe for concurrent use. Operations on the same transaction are
// serialized through the transaction table, commits are serialized through commitMu.
type Manager struct {
	store        store.IStore
	persistence  persist.IPersistence
	transactions *xsync.MapOf[string, *Transaction]
	commitMu     sync.Mutex
	newID        func() (string, error)
}

// NewManager creates a new transaction manager for the given store.
// The durable state is loaded from persistence and installed into the store before
// the manager is returned. An unreadable or corrupt durable state is logged and the
// store starts empty.
func NewManager(s store.IStore, p persist.IPersistence) *Manager {
	m := &Manager{
		store:        s,
		persistence:  p,
		transactions: xsync.NewMapOf[string, *Transaction](),
		newID:        newUUID,
	}

	mapping, err := p.Load()
	if err != nil {
		Logger.Warningf("failed to load durable state, starting with an empty store: %v", err)
	}
	s.Replace(mapping)
	Logger.Infof("loaded %d committed keys", s.Len())

	return m
}

// newUUID generates a random (version 4) uuid
func newUUID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Start starts a new transaction and returns its id.
// The transaction captures a copy of the committed mapping as its snapshot.
func (m *Manager) Start() (string, error) {
	id, err := m.newID()
	if err != nil {
		return "", store.NewError(store.RetCAllocationFailure, fmt.Sprintf("failed to generate transaction id: %v", err))
	}

	tx := newTransaction(id, m.store.GetAll())
	if _, loaded := m.transactions.LoadOrStore(id, tx); loaded {
		return "", store.NewError(store.RetCAllocationFailure, fmt.Sprintf("transaction id %s already in use", id))
	}

	startedTotal.Inc()
	Logger.Debugf("started transaction %s", id)
	return id, nil
}

// Set records value for key in the change set of the transaction, overwriting
// any prior pending value for the same key.
func (m *Manager) Set(key string, value []byte, id string) error {
	if key == "" {
		return store.NewError(store.RetCInvalidKey, "invalid key: the key must not be empty")
	}

	found := false
	m.transactions.Compute(id, func(tx *Transaction, loaded bool) (*Transaction, bool) {
		if !loaded {
			return nil, true // nothing to store
		}
		tx.set(key, value)
		found = true
		return tx, false
	})

	if !found {
		return unknownTransaction(id)
	}
	return nil
}

// Get returns the value for key.
// If id is not empty and the transaction wrote key, the pending value is returned
// (read-your-own-writes). Otherwise the committed value is returned.
func (m *Manager) Get(key string, id string) ([]byte, bool, error) {
	if id == "" {
		val, ok := m.store.Get(key)
		return val, ok, nil
	}

	var (
		val     []byte
		pending bool
		found   bool
	)
	m.transactions.Compute(id, func(tx *Transaction, loaded bool) (*Transaction, bool) {
		if !loaded {
			return nil, true
		}
		found = true
		val, pending = tx.pending(key)
		return tx, false
	})

	if !found {
		return nil, false, unknownTransaction(id)
	}
	if pending {
		return val, true, nil
	}

	val, ok := m.store.Get(key)
	return val, ok, nil
}

// Commit applies the change set of the transaction to the store and discards the transaction.
//
// The new state is persisted before it is applied: if saving fails the store is left
// unchanged, the transaction is discarded (rolled back) and a RetCPersistenceFailure
// error is returned. A partially durable commit is therefore never observable.
func (m *Manager) Commit(id string) error {
	// claim the transaction, no other operation can reach it afterward
	tx, ok := m.transactions.LoadAndDelete(id)
	if !ok {
		return unknownTransaction(id)
	}

	start := time.Now()
	m.commitMu.Lock()
	defer m.commitMu.Unlock()

	keys := tx.changedKeys()

	// merge the change set into a copy of the committed state and persist it first
	merged := m.store.GetAll()
	if stale := tx.staleKeys(merged); len(stale) > 0 {
		Logger.Debugf("transaction %s overwrites keys changed by other commits since it started: %v", id, stale)
	}
	for _, key := range keys {
		merged[key] = tx.changes[key]
	}

	if err := m.persistence.Save(merged); err != nil {
		commitFailTotal.Inc()
		rolledBackTotal.Inc()
		Logger.Errorf("commit of transaction %s failed, transaction rolled back: %v", id, err)
		if store.CodeOf(err) == store.RetCPersistenceFailure {
			return err
		}
		return store.NewError(store.RetCPersistenceFailure, err.Error())
	}

	m.store.Apply(tx.changes)

	committedTotal.Inc()
	commitDuration.UpdateDuration(start)
	Logger.Debugf("committed transaction %s with %d changes (open for %s)", tx.ID(), len(keys), time.Since(tx.CreatedAt()))
	return nil
}

// Rollback discards the transaction and its pending changes.
// The store is not touched: committed data, including commits made by other transactions
// after this transaction was started, stays as it is.
func (m *Manager) Rollback(id string) error {
	tx, ok := m.transactions.LoadAndDelete(id)
	if !ok {
		return unknownTransaction(id)
	}
	rolledBackTotal.Inc()
	Logger.Debugf("rolled back transaction %s (open for %s)", tx.ID(), time.Since(tx.CreatedAt()))
	return nil
}

// Active returns the number of open transactions.
// Transactions that are never committed or rolled back stay open until the process exits.
func (m *Manager) Active() int {
	return m.transactions.Size()
}

// Store returns the store managed by this manager.
func (m *Manager) Store() store.IStore {
	return m.store
}

func unknownTransaction(id string) *store.Error {
	return store.NewError(store.RetCUnknownTransaction, fmt.Sprintf("transaction %q not found", id))
}
