// Package txn implements transactions on top of a store.IStore.
//
// A transaction is created with Manager.Start, receives pending writes with
// Manager.Set and ends with exactly one of Manager.Commit or Manager.Rollback.
// Reads through Manager.Get see the transaction's own pending writes first and
// the committed state otherwise. Nothing written inside a transaction is visible
// to other readers before the commit.
//
// Commit:
//
//	The change set is merged into a copy of the committed mapping and that copy is
//	saved through persist.IPersistence before the store is touched. Only a successful
//	save is followed by store.IStore.Apply. If the save fails the transaction is
//	discarded and the store keeps its previous state.
//
// Rollback:
//
//	A rollback only discards the pending change set of the transaction. The store
//	is never restored from the transaction's snapshot, so commits made by other
//	transactions in the meantime survive.
//
// Known Limitations:
//
//   - Every Start copies the complete committed mapping (the transaction snapshot),
//     the cost grows linearly with the store size.
//   - There are no timeouts. A transaction whose client disappears stays in the
//     transaction table until the process exits (see Manager.Active).
//   - There is no conflict detection, the last commit for a key wins.
package txn
