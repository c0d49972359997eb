// Package model defines the core data types shared by every wll component:
// object and worldline identities, temporal anchors, commitments, receipts
// and refs. Keeping these in one leaf package (no imports from ledger, gate,
// provenance, ...) avoids the import cycles the teacher's massifs package
// works hard to avoid between its own context and storage types.
package model

import (
	"encoding/hex"
	"fmt"

	"github.com/mapleaiorg/wll/crypto"
)

// ObjectId is the content address of a stored object: the BLAKE3 digest of
// a domain-prefixed payload. The zero value is the "no object" sentinel.
type ObjectId [crypto.Size]byte

// ZeroObjectId is the all-zero id used as the genesis prev_hash marker and
// as the "no object" sentinel for optional fields.
var ZeroObjectId ObjectId

// IsZero reports whether id is the all-zero sentinel.
func (id ObjectId) IsZero() bool { return id == ZeroObjectId }

// String renders id as 64 lowercase hex characters.
func (id ObjectId) String() string { return hex.EncodeToString(id[:]) }

// Compare gives ObjectId a total order: -1, 0, 1, matching bytes.Compare.
func (id ObjectId) Compare(other ObjectId) int {
	for i := range id {
		if id[i] != other[i] {
			if id[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ObjectIdFromDigest converts a crypto.Digest (as returned by
// crypto.HashWithDomain) into an ObjectId. They share the same 32-byte
// layout by construction.
func ObjectIdFromDigest(d crypto.Digest) ObjectId { return ObjectId(d) }

// ParseObjectId decodes 64 hex characters into an ObjectId.
func ParseObjectId(s string) (ObjectId, error) {
	var id ObjectId
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("model: invalid object id %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("model: invalid object id length %d, want %d", len(b), len(id))
	}
	copy(id[:], b)
	return id, nil
}

// WorldlineId is the 32-byte root identity of a ledger stream, derived via
// BLAKE3(public_key_bytes) from Ed25519 key material, or from a user
// supplied genesis seed. Immutable once chosen.
type WorldlineId [crypto.Size]byte

// String renders the id as 64 lowercase hex characters.
func (w WorldlineId) String() string { return hex.EncodeToString(w[:]) }

// WorldlineIdFromSeed derives a WorldlineId from arbitrary genesis material
// (an Ed25519 public key, or a user supplied seed) via
// BLAKE3(public_key_bytes) — the "COMMIT" domain is used since a worldline
// identity is the root of a commitment stream, distinct from any individual
// receipt or object hash.
func WorldlineIdFromSeed(seed []byte) WorldlineId {
	return WorldlineId(crypto.HashWithDomain(crypto.DomainCommit, seed))
}

// TemporalAnchor is a causally ordered timestamp: (physical_ms, logical,
// node_id), ordered lexicographically on that tuple. See package temporal
// for the HLC that produces these.
type TemporalAnchor struct {
	PhysicalMS uint64
	Logical    uint32
	NodeID     uint32
}

// Less reports whether a strictly precedes b in (physical_ms, logical,
// node_id) lexicographic order.
func (a TemporalAnchor) Less(b TemporalAnchor) bool {
	if a.PhysicalMS != b.PhysicalMS {
		return a.PhysicalMS < b.PhysicalMS
	}
	if a.Logical != b.Logical {
		return a.Logical < b.Logical
	}
	return a.NodeID < b.NodeID
}

// Compare gives TemporalAnchor a total order matching Less: -1, 0, 1.
func (a TemporalAnchor) Compare(b TemporalAnchor) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}
