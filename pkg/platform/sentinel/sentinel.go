package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) so services can translate them into domain errors.
//
// - ErrNotFound: record does not exist in the store
// - ErrConflict: a unique key (identity, taxonomy name) is already taken
// - ErrInvalidState: record is in the wrong state for the requested operation
// - ErrUnavailable: store or external service temporarily unreachable
// - ErrMisconfigured: credentials or addressing for an external service are wrong
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state")
	ErrUnavailable   = errors.New("unavailable")
	ErrMisconfigured = errors.New("misconfigured")
)
