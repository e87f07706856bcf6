package persist

// IPersistence is the interface for the durable storage of the committed mapping.
type IPersistence interface {
	// Save durably writes the full mapping, replacing any prior durable state.
	// From the callers point of view the operation is atomic: if it fails (or the
	// process crashes while saving) the previously saved state is still intact.
	// All errors are of kind store.RetCPersistenceFailure.
	Save(mapping map[string][]byte) (err error)
	// Load returns the previously saved mapping.
	// If no state was saved yet an empty mapping and no error is returned.
	// If the saved state is unreadable or corrupt an empty mapping AND an error
	// (of kind store.RetCPersistenceFailure) is returned. The caller decides whether
	// to continue with the empty mapping.
	Load() (mapping map[string][]byte, err error)
}
