// Package refstore implements branch, tag and remote-tracking ref storage
// plus HEAD, guarded by the single RefStore-level lock spec.md §5 calls
// for ("Refs are guarded by a RefStore-level lock taken only to swap a tip
// atomically"). The lock-scope discipline is grounded on
// massifs.MassifCommitter.CommitContext, which likewise takes its guard
// only across the single compare-and-swap write and never across the
// surrounding validation.
package refstore

import (
	"crypto/ed25519"
	"sync"

	wllcrypto "github.com/mapleaiorg/wll/crypto"
	"github.com/mapleaiorg/wll/model"
)

// RefStore holds every branch, tag and remote-tracking ref a worldline
// collection knows about, plus the current HEAD.
type RefStore struct {
	mu sync.Mutex

	branches map[string]model.Ref
	tags     map[string]model.Ref
	remotes  map[string]model.Ref

	head model.HEAD
}

// New returns an empty RefStore with HEAD symbolically pointing at
// defaultBranch (conventionally "main"), even though that branch may not
// exist yet.
func New(defaultBranch string) *RefStore {
	return &RefStore{
		branches: make(map[string]model.Ref),
		tags:     make(map[string]model.Ref),
		remotes:  make(map[string]model.Ref),
		head:     model.HEAD{Kind: model.HEADSymbolic, BranchName: defaultBranch},
	}
}

// CreateBranch creates a new branch ref. Returns ErrAlreadyExists if the
// name is taken.
func (rs *RefStore) CreateBranch(name string, worldline model.WorldlineId, tip model.ObjectId) (model.Ref, error) {
	if err := model.ValidateRefName(name); err != nil {
		return model.Ref{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if _, exists := rs.branches[name]; exists {
		return model.Ref{}, ErrAlreadyExists
	}
	ref := model.Ref{Kind: model.RefBranch, Name: name, Worldline: worldline, Tip: tip}
	rs.branches[name] = ref
	return ref, nil
}

// UpdateBranchTip swings an existing branch's tip, the only mutation a
// Ref ever undergoes; it is meant to be called only from the gate-approved
// path, following an accepted commit's outcome receipt.
func (rs *RefStore) UpdateBranchTip(name string, tip model.ObjectId) (model.Ref, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	ref, exists := rs.branches[name]
	if !exists {
		return model.Ref{}, ErrNotFound
	}
	ref.Tip = tip
	rs.branches[name] = ref
	return ref, nil
}

// GetBranch looks up a branch ref by name.
func (rs *RefStore) GetBranch(name string) (model.Ref, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	ref, ok := rs.branches[name]
	return ref, ok
}

// DeleteBranch removes a branch ref.
func (rs *RefStore) DeleteBranch(name string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, exists := rs.branches[name]; !exists {
		return ErrNotFound
	}
	delete(rs.branches, name)
	return nil
}

// ListBranches returns every branch ref, in no particular order.
func (rs *RefStore) ListBranches() []model.Ref {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	out := make([]model.Ref, 0, len(rs.branches))
	for _, ref := range rs.branches {
		out = append(out, ref)
	}
	return out
}

// CreateTag creates an immutable tag. Per spec.md §3 invariant 7, tags are
// append-only: recreating an existing name with a different target returns
// ErrTagRetargeted; recreating with the identical target is an idempotent
// no-op that returns ErrAlreadyExists alongside the existing ref.
func (rs *RefStore) CreateTag(name string, target model.ObjectId, message string, signature []byte) (model.Ref, error) {
	if err := model.ValidateRefName(name); err != nil {
		return model.Ref{}, err
	}
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if existing, exists := rs.tags[name]; exists {
		if existing.Target != target {
			return existing, ErrTagRetargeted
		}
		return existing, ErrAlreadyExists
	}
	ref := model.Ref{Kind: model.RefTag, Name: name, Target: target, Message: message, Signature: signature}
	rs.tags[name] = ref
	return ref, nil
}

// GetTag looks up a tag ref by name.
func (rs *RefStore) GetTag(name string) (model.Ref, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	ref, ok := rs.tags[name]
	return ref, ok
}

// DeleteTag removes a tag ref. Deletion is permitted (spec.md §3 invariant
// 7); only retargeting an existing name is forbidden.
func (rs *RefStore) DeleteTag(name string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, exists := rs.tags[name]; !exists {
		return ErrNotFound
	}
	delete(rs.tags, name)
	return nil
}

// VerifyTag checks a tag's detached Ed25519 signature over Target||Message.
// A tag with no signature is reported verified with ok=true per the open
// question in spec.md §9 (missing signatures are non-fatal by default);
// callers that require signed tags should reject ok=true, signed=false
// results themselves.
func (rs *RefStore) VerifyTag(ref model.Ref, pub ed25519.PublicKey) (ok bool, signed bool, err error) {
	if len(ref.Signature) == 0 {
		return true, false, nil
	}
	msg := append(append([]byte{}, ref.Target[:]...), []byte(ref.Message)...)
	valid, err := wllcrypto.Verify(pub, msg, ref.Signature)
	if err != nil {
		return false, true, err
	}
	return valid, true, nil
}

// CreateRemote creates or overwrites a remote-tracking ref; unlike
// branches and tags, remote-tracking refs are a local cache of another
// worldline's state and may be freely retargeted by fetch.
func (rs *RefStore) CreateRemote(remote, branch string, tip model.ObjectId) model.Ref {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	ref := model.Ref{Kind: model.RefRemote, Remote: remote, Branch: branch, Tip: tip}
	rs.remotes[remote+"/"+branch] = ref
	return ref
}

// GetRemote looks up a remote-tracking ref.
func (rs *RefStore) GetRemote(remote, branch string) (model.Ref, bool) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	ref, ok := rs.remotes[remote+"/"+branch]
	return ref, ok
}

// Head returns the current HEAD.
func (rs *RefStore) Head() model.HEAD {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.head
}

// SetHeadSymbolic points HEAD at branch, which must already exist.
func (rs *RefStore) SetHeadSymbolic(branch string) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if _, exists := rs.branches[branch]; !exists {
		return ErrNotFound
	}
	rs.head = model.HEAD{Kind: model.HEADSymbolic, BranchName: branch}
	return nil
}

// SetHeadDetached points HEAD directly at a receipt hash.
func (rs *RefStore) SetHeadDetached(receipt model.ObjectId) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.head = model.HEAD{Kind: model.HEADDetached, Receipt: receipt}
}
