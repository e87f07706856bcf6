// Package persist implements the durable save/load capability for the committed
// mapping of txKV. The transaction manager saves the full mapping on every commit
// and loads it once during startup.
//
// Implementations:
//
//   - NewFilePersistence / NewFsPersistence: A single snapshot file accessed through
//     an afero.Fs. A snapshot is written to "<path>.tmp", synced and then renamed over
//     the previous snapshot, so a crash during Save never corrupts the state a later
//     Load sees.
//
//   - NewMemoryPersistence: Keeps the last snapshot in memory (nothing survives a restart).
//
// Snapshot Format:
//
//	magic "TXKVSNAP" | version (1 byte) | count (uint64) |
//	count * (keyLen uint32 | key | valueLen uint32 | value) | xxhash64 (uint64)
//
//	All integers are big endian, entries are written in sorted key order.
//
// Corruption Handling:
//
//	Load never fails hard. A missing file yields an empty mapping, a corrupt file
//	(bad checksum, wrong magic number, truncated data) yields an empty mapping plus a
//	store.RetCPersistenceFailure error. Starting with an empty store in this case is a
//	deliberate availability-over-durability tradeoff: the data in the corrupt snapshot
//	is lost as soon as the next commit overwrites it.
package persist
