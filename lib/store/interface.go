package store

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IStore holds the authoritative, committed key–value mapping.
// Only committed data is visible through an IStore. The transaction manager is
// the single component allowed to mutate it (via Apply and Replace).
//
// Values handed in and out of an IStore are always copies, callers never share
// memory with the committed state.
type IStore interface {
	// Get returns the committed value for a key. The boolean return value indicates
	// whether the key exists. An existing key may hold an empty value.
	Get(key string) (value []byte, found bool)
	// GetAll returns a full copy of the committed mapping.
	// The cost is proportional to the number of stored keys.
	GetAll() (mapping map[string][]byte)
	// Apply merges all changes into the committed mapping (overwrite semantics).
	// The changes are applied in sorted key order as a single step.
	Apply(changes map[string][]byte)
	// Replace discards the committed mapping and installs the given one.
	// This is used once during startup to install the durable snapshot.
	Replace(mapping map[string][]byte)
	// Len returns the number of committed keys.
	Len() int
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("txKV error (code %s): %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same return code.
// This allows errors.Is(err, store.ErrUnknownTransaction) regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Sentinel errors for the use with errors.Is
var (
	ErrInvalidKey         = NewError(RetCInvalidKey, "invalid key")
	ErrUnknownTransaction = NewError(RetCUnknownTransaction, "unknown transaction")
	ErrPersistenceFailure = NewError(RetCPersistenceFailure, "persistence failure")
	ErrAllocationFailure  = NewError(RetCAllocationFailure, "allocation failure")
)

// CodeOf returns the RetCode of err if it is (or wraps) an *Error.
// All other non-nil errors are reported as RetCInternalError.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Command executed successfully.
	RetCInternalError                     // 1: Command failed due to an internal error.
	RetCInvalidKey                        // 2: The key is the empty (absent) key.
	RetCUnknownTransaction                // 3: The transaction id is not registered.
	RetCPersistenceFailure                // 4: The durable state could not be saved or loaded.
	RetCAllocationFailure                 // 5: A transaction id could not be allocated.
)

// String returns the name of the return code.
func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCInvalidKey:
		return "InvalidKey"
	case RetCUnknownTransaction:
		return "UnknownTransaction"
	case RetCPersistenceFailure:
		return "PersistenceFailure"
	case RetCAllocationFailure:
		return "AllocationFailure"
	default:
		return "Unknown"
	}
}
