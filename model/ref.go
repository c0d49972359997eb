package model

import (
	"errors"
	"strings"
)

// ErrInvalidRefName is returned when a branch, tag or remote name fails the
// validation rules in spec.md §3.
var ErrInvalidRefName = errors.New("model: invalid ref name")

// ValidateRefName enforces: non-empty, no control chars, no leading/trailing
// '/', no "..", no "@{".
func ValidateRefName(name string) error {
	if name == "" {
		return ErrInvalidRefName
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return ErrInvalidRefName
	}
	if strings.Contains(name, "..") || strings.Contains(name, "@{") {
		return ErrInvalidRefName
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return ErrInvalidRefName
		}
	}
	return nil
}

// RefKind distinguishes the three flavors of Ref.
type RefKind uint8

const (
	RefBranch RefKind = iota + 1
	RefTag
	RefRemote
)

// Ref is one of Branch{name, worldline, tip}, Tag{name, target, message?,
// signature?} (immutable after creation — refstore enforces append-only),
// or Remote{remote, branch, tip}.
type Ref struct {
	Kind RefKind

	Name      string
	Worldline WorldlineId // Branch only
	Tip       ObjectId    // Branch, Remote

	Target    ObjectId // Tag only
	Message   string   // Tag only, optional
	Signature []byte   // Tag only, optional detached Ed25519 signature

	Remote string // Remote only
	Branch string // Remote only
}

// CanonicalName renders the ref in its canonical on-wire form:
// refs/heads/<name>, refs/tags/<name>, refs/remotes/<remote>/<branch>.
func (r Ref) CanonicalName() string {
	switch r.Kind {
	case RefBranch:
		return "refs/heads/" + r.Name
	case RefTag:
		return "refs/tags/" + r.Name
	case RefRemote:
		return "refs/remotes/" + r.Remote + "/" + r.Branch
	default:
		return ""
	}
}

// HEADKind distinguishes a symbolic HEAD from a detached one.
type HEADKind uint8

const (
	HEADSymbolic HEADKind = iota + 1
	HEADDetached
)

// HEAD points either at a branch name (Symbolic) or directly at a receipt
// hash (Detached).
type HEAD struct {
	Kind       HEADKind
	BranchName string   // Symbolic only
	Receipt    ObjectId // Detached only
}
