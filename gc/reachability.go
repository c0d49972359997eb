// Package gc mints the objectstore.UnreachabilityProof a caller needs to
// reclaim storage: a Scan walks every worldline's receipt chain and every
// tree an accepted commitment points into, and reports the objects none of
// that walk ever touched. Nothing elsewhere in the core (ledger, gate,
// replay, provenance) imports this package — deletion is always a
// separate, explicit, out-of-band sweep, the same posture
// massifs.LogDirCache takes toward eviction: listing and reclaiming live
// behind their own lister/cache, never inline in the write path.
package gc

import (
	"fmt"

	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/ledger"
	"github.com/mapleaiorg/wll/model"
	"github.com/mapleaiorg/wll/objectstore"
)

// proof is the concrete objectstore.UnreachabilityProof a Scan mints.
// Unexported: the only way to get one is to run a Scan, so Delete can
// never be handed a proof that was not actually checked against a live
// chain.
type proof struct {
	id model.ObjectId
}

func (p proof) ProvenUnreachable() model.ObjectId { return p.id }

// Result is the outcome of a reachability sweep.
type Result struct {
	// Reachable is every object id the sweep found referenced by some
	// worldline's chain, directly or transitively through a tree.
	Reachable map[model.ObjectId]bool

	// Unreachable lists every object the store holds that Reachable does
	// not cover, each already wrapped in the proof Delete requires.
	Unreachable []objectstore.UnreachabilityProof
}

// Scan walks every worldline store.Worldlines() names, following each
// commitment receipt's optional Tree pointer recursively through the
// store, and returns the full reachable set plus a ready-to-use
// unreachability proof for everything else the object store holds.
//
// A store id that Read reports ErrCorruptedObject or ErrNotFound for
// while being walked is treated as reachable but unresolved: Scan does
// not mint proofs for ids it could not fully account for, since a proof
// asserts unreachability was checked, not merely that resolution failed.
func Scan(store *objectstore.Store, chain *ledger.Ledger) (Result, error) {
	reachable := make(map[model.ObjectId]bool)

	for _, worldline := range chain.Worldlines() {
		for _, receipt := range chain.ReadAll(worldline) {
			reachable[receipt.ReceiptHash] = true

			if receipt.Commitment == nil || receipt.Commitment.Tree == nil {
				continue
			}
			if err := walkTree(store, *receipt.Commitment.Tree, reachable); err != nil {
				return Result{}, fmt.Errorf("gc: walk tree for worldline %s seq %d: %w", worldline, receipt.Seq, err)
			}
		}
	}

	var unreachable []objectstore.UnreachabilityProof
	for _, id := range store.Ids() {
		if !reachable[id] {
			unreachable = append(unreachable, proof{id: id})
		}
	}

	return Result{Reachable: reachable, Unreachable: unreachable}, nil
}

// walkTree marks root and everything it transitively names (blobs and
// nested trees) as reachable, short-circuiting ids already visited so a
// tree shared across commits is only read from the store once.
func walkTree(store *objectstore.Store, root model.ObjectId, reachable map[model.ObjectId]bool) error {
	if reachable[root] {
		return nil
	}
	reachable[root] = true

	kind, data, err := store.Read(root)
	if err != nil {
		// Leave the id marked reachable (it was named by a live commit)
		// but do not fail the whole scan over a single missing blob: a
		// blob never recurses further, and a genuinely missing object is
		// a store-integrity concern the caller surfaces separately, not
		// a reason to abandon gc for every other worldline.
		return nil
	}
	if kind != objectstore.KindTree {
		return nil
	}

	entries, err := canon.DeserializeTree(data)
	if err != nil {
		return fmt.Errorf("deserialize tree %s: %w", root, err)
	}
	for _, e := range entries {
		if e.Mode == canon.ModeDirectory {
			if err := walkTree(store, e.Object, reachable); err != nil {
				return err
			}
			continue
		}
		reachable[e.Object] = true
	}
	return nil
}
