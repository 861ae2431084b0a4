package segsync

import "errors"

// Synchronization errors.
var (
	// ErrConfigInvalid indicates the configuration file is missing, malformed,
	// or fails validation. This is the only fatal error class: the process
	// exits non-zero when configuration cannot be loaded.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrSnapshotWrite indicates the membership snapshot could not be persisted.
	ErrSnapshotWrite = errors.New("snapshot write failed")
)
