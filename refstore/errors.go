package refstore

import "errors"

var (
	// ErrNotFound is returned for a lookup against a ref that does not
	// exist.
	ErrNotFound = errors.New("refstore: ref not found")

	// ErrAlreadyExists is returned creating a branch or tag whose name is
	// already taken. CreateRemote never returns it; it overwrites instead.
	ErrAlreadyExists = errors.New("refstore: ref already exists")

	// ErrTagRetargeted is returned attempting to overwrite an existing tag
	// with a different target; tags are append-only per spec.md §3
	// invariant 7 (they may be deleted but never retargeted).
	ErrTagRetargeted = errors.New("refstore: tags are append-only, delete before recreating with a new target")
)
