// Package store defines the committed key-value state of txKV together with the
// error kinds shared by all layers of the system.
//
// The package focuses on:
//   - The IStore interface describing the authoritative, committed mapping
//   - A structured error type (Error) carrying a RetCode
//
// Key Components:
//
//   - IStore Interface: Read access (Get, GetAll, Len) for everybody, write access
//     (Apply, Replace) for the transaction manager only. An IStore never sees
//     uncommitted data.
//
//   - Error System: Every failure that can cross the RPC boundary is an *Error with
//     one of the RetCodes RetCInvalidKey, RetCUnknownTransaction,
//     RetCPersistenceFailure or RetCAllocationFailure. The sentinel values
//     (ErrInvalidKey, ...) can be used with errors.Is, CodeOf extracts the code
//     from wrapped errors.
//
// Implementations:
//
//   - Local Store (lstore): An in-memory map guarded by a read-write mutex.
//     Available in the "github.com/ValentinKolb/txkv/lib/store/lstore" package.
package store
