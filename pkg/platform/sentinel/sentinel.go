package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and the connection registry
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: uniqueness or reference constraint violated
// - ErrClosed: connection or channel already closed
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrClosed      = errors.New("closed")
	ErrUnavailable = errors.New("unavailable")
)
