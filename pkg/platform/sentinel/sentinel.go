package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Row stores return these (optionally
// wrapped) so the mapping engine and services can translate them into domain errors.
//
// These describe the state of stored rows, not validation failures:
// - ErrNotFound: no row matched the lookup
// - ErrConflict: a write violated a unique column
// - ErrInvalidState: the store was used after Close or with a malformed request
// - ErrUnavailable: the backing database could not be reached
//
// For schema or input problems, use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
