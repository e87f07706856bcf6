package txn

import (
	"bytes"
	"maps"
	"slices"
	"time"
)

// Transaction is a unit of pending work: a snapshot of the committed mapping taken
// at creation time plus the set of uncommitted writes (the change set).
//
// A Transaction is owned by the Manager and never handed out, all access goes through
// the Manager using the transaction id.
type Transaction struct {
	id        string
	createdAt time.Time
	snapshot  map[string][]byte
	changes   map[string][]byte
}

// newTransaction creates a transaction with the given id and snapshot.
// The snapshot must already be a copy that is not shared with the store.
func newTransaction(id string, snapshot map[string][]byte) *Transaction {
	return &Transaction{
		id:        id,
		createdAt: time.Now(),
		snapshot:  snapshot,
		changes:   make(map[string][]byte),
	}
}

// ID returns the transaction id
func (t *Transaction) ID() string {
	return t.id
}

// CreatedAt returns the time the transaction was started
func (t *Transaction) CreatedAt() time.Time {
	return t.createdAt
}

// set records a pending value for key, overwriting any prior pending value.
func (t *Transaction) set(key string, value []byte) {
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	t.changes[key] = valueCopy
}

// pending returns the pending value for key if the transaction wrote it.
func (t *Transaction) pending(key string) ([]byte, bool) {
	val, ok := t.changes[key]
	if !ok {
		return nil, false
	}
	valueCopy := make([]byte, len(val))
	copy(valueCopy, val)
	return valueCopy, true
}

// staleKeys returns the changed keys whose committed value in current differs from
// the value they had when the transaction started. There is no conflict detection,
// a commit overwrites them anyway.
func (t *Transaction) staleKeys(current map[string][]byte) []string {
	var stale []string
	for _, key := range t.changedKeys() {
		before, hadBefore := t.snapshot[key]
		now, hasNow := current[key]
		if hadBefore != hasNow || !bytes.Equal(before, now) {
			stale = append(stale, key)
		}
	}
	return stale
}

// changedKeys returns the keys of the change set in sorted order.
func (t *Transaction) changedKeys() []string {
	return slices.Sorted(maps.Keys(t.changes))
}
