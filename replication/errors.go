package replication

import "errors"

var (
	// ErrInvalidParameter is returned when a hook receives an object or configuration of the wrong kind.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrInvalidData is returned for malformed or inconsistent packets.
	ErrInvalidData = errors.New("invalid data")
	// ErrUnauthorized is returned when a peer acts for an object it is not the authority of.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrAlreadyInUse is returned for duplicate net ids or double spawn tracking.
	ErrAlreadyInUse = errors.New("already in use")
	// ErrDoesNotExist is returned when a referenced spawner or object cannot be resolved.
	ErrDoesNotExist = errors.New("does not exist")
	// ErrUnconfigured is returned when a replication config, net id or session is missing.
	ErrUnconfigured = errors.New("unconfigured")
	// ErrUnavailable is returned for packets from a peer without a session.
	ErrUnavailable = errors.New("peer unavailable")
	// ErrBug is returned when internal bookkeeping is inconsistent.
	ErrBug = errors.New("replication bug")
)
