package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and the attestation service translates them into domain errors.
//
// These describe the state of a record, not validation failures:
// - ErrNotFound: key does not exist in the store
// - ErrConflict: a concurrent writer changed a key read by the transaction
// - ErrAlreadyUsed: unique key already taken
// - ErrUnavailable: substrate temporarily unavailable
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
