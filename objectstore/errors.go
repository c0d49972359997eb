package objectstore

import "errors"

// Sentinel errors, in the teacher's convention (massifs/storage/errors.go):
// one var block per package, wrapped with %w at the call site rather than
// carrying custom error structs.
var (
	// ErrStoreFull is returned when a backing store refuses a write for
	// capacity reasons. The in-memory store never returns it itself, but
	// implementations backed by bounded storage should use it.
	ErrStoreFull = errors.New("objectstore: store full")

	// ErrIo wraps an underlying I/O failure from a backing store.
	ErrIo = errors.New("objectstore: io error")

	// ErrCorruptedObject is returned by Read when the bytes retrieved for
	// an id re-hash to a different id than requested.
	ErrCorruptedObject = errors.New("objectstore: corrupted object")

	// ErrNotFound is returned by Read/Delete for an id with no stored
	// object.
	ErrNotFound = errors.New("objectstore: object not found")

	// ErrUnknownKind is returned by Write for a kind with no registered
	// domain tag.
	ErrUnknownKind = errors.New("objectstore: unknown object kind")

	// ErrNotUnreachable names the GC invariant that delete only ever
	// reclaims unreferenced objects. Delete itself does not return it: the
	// UnreachabilityProof argument Delete requires stands in for that check.
	ErrNotUnreachable = errors.New("objectstore: delete requires an unreachability proof")
)
