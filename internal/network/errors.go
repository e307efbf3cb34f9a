package network

import "errors"

var (
	// ErrSeedUnresolvable means the seed does not exist, has no text content,
	// or could not be queried at all. Fatal.
	ErrSeedUnresolvable = errors.New("seed unresolvable")

	// ErrConfiguration means the build configuration or request was rejected
	// before any querying began. Fatal.
	ErrConfiguration = errors.New("invalid network configuration")

	// ErrCanceled means the caller abandoned the build.
	ErrCanceled = errors.New("network build canceled")

	// ErrNotFound is returned by collaborators for objects that do not exist.
	ErrNotFound = errors.New("object not found")
)
