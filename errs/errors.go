// Package errs defines the sentinel errors shared across the imstore packages.
//
// Callers match against these sentinels with errors.Is; the packages that raise
// them wrap additional context (frame number, scan number, parameter key) with
// fmt.Errorf("...: %w", ...) so the sentinel stays matchable.
package errs

import (
	"errors"
	"strings"
)

var (
	// ErrSchemaMissing indicates a required table is absent from the container.
	// The caller must create the schema first; the operation is not retried.
	ErrSchemaMissing = errors.New("required table does not exist in this container")

	// ErrUnknownKey indicates a parameter key that was never registered by any
	// version of the software. Keys in the shipped enumeration auto-register on
	// first use, so seeing this error is fatal, not recoverable.
	ErrUnknownKey = errors.New("unknown parameter key")

	// ErrValueOutOfRange indicates an input exceeds a declared capacity, such as
	// an intensity array longer than the container's bin count.
	ErrValueOutOfRange = errors.New("value out of range")

	// ErrInvalidOperation indicates the wrong entry point was used for the
	// container's configuration, such as inserting TOF-binned scans into a
	// ppm-bin-based container.
	ErrInvalidOperation = errors.New("operation not valid for this container")

	// ErrInvalidArgument indicates a malformed input, such as a sparse intensity
	// map containing an explicit zero entry.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrTransientStorage indicates a storage-layer corruption or lock signal.
	// It is logged distinctly but re-raised as-is; retry policy belongs to the
	// caller.
	ErrTransientStorage = errors.New("transient storage error")
)

// storagePatterns are the storage-layer message fragments that mark an error as
// transient rather than a logic error. SQLite reports corruption and lock
// contention only through its message text, so matching on substrings is the
// only classification available at this layer.
var storagePatterns = []string{
	"database disk image is malformed",
	"file is not a database",
	"database is locked",
	"database table is locked",
}

// IsTransientStorage reports whether err carries a storage-layer corruption or
// lock signal, either because it wraps ErrTransientStorage or because its
// message matches a known storage failure pattern.
func IsTransientStorage(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransientStorage) {
		return true
	}

	msg := err.Error()
	for _, pattern := range storagePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
