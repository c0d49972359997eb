package accumulator

import (
	"bytes"
	"hash"
	"sync"

	"github.com/mapleaiorg/wll/crypto"
	"github.com/mapleaiorg/wll/mmr"
)

// Accumulator is a single worldline's Merkle Mountain Range over its
// receipt hashes. Each call to Add appends one receipt hash as a new leaf
// and returns the zero-based mmr node index it was stored at; Prove later
// reproduces the sibling path from that index up to the mountain peak that
// currently commits it, and Verify checks a path against a previously
// observed peak hash, all independent of the ledger's own hash-chain
// linkage.
//
// This is additive to the receipt chain, not a replacement for it: a
// stream validator run (replay.Validate) already proves chain integrity by
// walking prev_hash links, so an inclusion proof here is useful only when
// a party holds a peak root but not the full chain, e.g. a light client
// that archived an accumulator snapshot.
type Accumulator struct {
	mu        sync.Mutex
	store     *nodeStore
	leafCount uint64
	newHasher func() hash.Hash
}

// New returns an empty accumulator. Its newHasher factory is invoked
// once per Add, since mmr's hash.Hash arguments are stateful and reset
// internally between writes; a fresh hasher per call means concurrent
// callers never share one. Prove needs no hasher, and Verify builds its
// own.
func New() *Accumulator {
	return &Accumulator{
		store:     newNodeStore(),
		newHasher: func() hash.Hash { return crypto.NewDomainHasher(crypto.DomainAccumulator) },
	}
}

// Add appends hashedLeaf (already domain-hashed by the caller, typically a
// receipt_hash) as the next leaf and returns the zero-based mmr node index
// it occupies.
func (a *Accumulator) Add(hashedLeaf []byte) (uint64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	leafIndex := mmr.MMRIndex(a.leafCount)
	if _, err := mmr.AddHashedLeaf(a.store, a.newHasher(), hashedLeaf); err != nil {
		return 0, err
	}
	a.leafCount++
	return leafIndex, nil
}

// Size returns the current mmr size (total node count, leaves and
// interior nodes together).
func (a *Accumulator) Size() uint64 {
	return a.store.size()
}

// LeafCount returns the number of leaves (receipts) added so far.
func (a *Accumulator) LeafCount() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.leafCount
}

// InclusionProof is the sibling path from a leaf to the mountain peak that
// currently commits it, together with that peak's own hash so a verifier
// does not need access to the accumulator itself.
type InclusionProof struct {
	LeafIndex uint64
	Path      [][]byte
	PeakHash  []byte
}

// Prove builds an InclusionProof for the leaf stored at leafIndex (the
// value returned by a prior Add). It fails with ErrUnknownLeaf if
// leafIndex is not a valid node position in the current accumulator.
func (a *Accumulator) Prove(leafIndex uint64) (InclusionProof, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.proveLocked(leafIndex)
}

// proveLocked is Prove's body, split out so ProveConsistency can build one
// proof per old peak under a single lock acquisition instead of one per
// call. Caller must hold a.mu.
func (a *Accumulator) proveLocked(pos uint64) (InclusionProof, error) {
	size := a.store.size()
	if size == 0 || pos >= size {
		return InclusionProof{}, ErrUnknownLeaf
	}

	peakPos, err := enclosingPeak(pos, size)
	if err != nil {
		return InclusionProof{}, err
	}

	path, err := proofPath(a.store, pos, peakPos)
	if err != nil {
		return InclusionProof{}, err
	}

	peakHash, err := a.store.Get(peakPos)
	if err != nil {
		return InclusionProof{}, err
	}

	return InclusionProof{LeafIndex: pos, Path: path, PeakHash: peakHash}, nil
}

// Verify checks that leafHash, combined with proof.Path, reproduces
// proof.PeakHash. It is a pure function of its arguments: no accumulator
// instance is required, so a verifier holding only a previously recorded
// peak can check a receipt's inclusion without rebuilding the mountain.
func Verify(leafHash []byte, proof InclusionProof) bool {
	hasher := crypto.NewDomainHasher(crypto.DomainAccumulator)
	root := mmr.IncludedRoot(hasher, proof.LeafIndex, leafHash, proof.Path)
	return bytes.Equal(root, proof.PeakHash)
}

// ConsistencyProof proves that an earlier accumulator state of FromSize
// nodes is a genuine prefix of a later one: every peak the accumulator
// held at FromSize is still reachable, unchanged, from the later state's
// own peaks. FromPeaks holds the peak hashes at FromSize, one path per
// entry in Paths, in the same order as mmr.Peaks(FromSize).
type ConsistencyProof struct {
	FromSize  uint64
	FromPeaks [][]byte
	Paths     [][][]byte
}

// ProveConsistency builds a ConsistencyProof that the accumulator's state
// at fromSize — typically archived alongside a ledger snapshot, the way
// AnchoredStateRoot anchors replay state — is a prefix of its current
// state. fromSize must be a size the accumulator actually held at some
// earlier point (e.g. a.Size() read right after the snapshot's last Add).
func (a *Accumulator) ProveConsistency(fromSize uint64) (ConsistencyProof, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if fromSize == 0 || fromSize > a.store.size() {
		return ConsistencyProof{}, ErrInvalidSize
	}
	fromPeakPositions := mmr.Peaks(fromSize)
	if fromPeakPositions == nil {
		return ConsistencyProof{}, ErrInvalidSize
	}

	proof := ConsistencyProof{FromSize: fromSize}
	for _, p := range fromPeakPositions {
		pos := p - 1
		peakHash, err := a.store.Get(pos)
		if err != nil {
			return ConsistencyProof{}, err
		}
		incl, err := a.proveLocked(pos)
		if err != nil {
			return ConsistencyProof{}, err
		}
		proof.FromPeaks = append(proof.FromPeaks, peakHash)
		proof.Paths = append(proof.Paths, incl.Path)
	}
	return proof, nil
}

// VerifyConsistency checks proof against currentPeaks, the full ordered
// set of peak hashes the verifier independently holds for the later mmr
// state. It recovers, for each of proof.FromPeaks, the current peak that
// now commits it (mmr.ConsistentRoots) and reports consistency iff every
// recovered root is one of currentPeaks — i.e. the earlier state was
// never rewritten, only extended.
func VerifyConsistency(proof ConsistencyProof, currentPeaks [][]byte) (bool, error) {
	hasher := crypto.NewDomainHasher(crypto.DomainAccumulator)
	recovered, err := mmr.ConsistentRoots(hasher, proof.FromSize, proof.FromPeaks, proof.Paths)
	if err != nil {
		return false, err
	}
	for _, root := range recovered {
		found := false
		for _, p := range currentPeaks {
			if bytes.Equal(root, p) {
				found = true
				break
			}
		}
		if !found {
			return false, nil
		}
	}
	return true, nil
}

// PeakHashes returns the accumulator's current peak hashes, in the order
// mmr.Peaks reports them — the currentPeaks a later VerifyConsistency
// call needs, or the FromPeaks a future one will be checked against.
func (a *Accumulator) PeakHashes() ([][]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	size := a.store.size()
	positions := mmr.Peaks(size)
	peaks := make([][]byte, 0, len(positions))
	for _, p := range positions {
		h, err := a.store.Get(p - 1)
		if err != nil {
			return nil, err
		}
		peaks = append(peaks, h)
	}
	return peaks, nil
}

// enclosingPeak returns the zero-based node index of the peak whose
// mountain contains node i, for an mmr of the given size. mmr.Peaks
// returns one-based peak positions in ascending order; the first peak
// position whose one-based value is >= i+1 is the enclosing mountain's
// peak, since a mountain's node range ends exactly at its own peak.
func enclosingPeak(i uint64, size uint64) (uint64, error) {
	peaks := mmr.Peaks(size)
	target := i + 1
	for _, p := range peaks {
		if p >= target {
			return p - 1, nil
		}
	}
	return 0, ErrUnknownLeaf
}

// proofPath walks from node i up to peakPos, collecting the sibling hash
// at each level. It is the forward construction counterpart of
// mmr.IncludedRoot's consuming walk: both use the identical "is i the
// right or left child at this height" test and the identical index
// arithmetic, one gathering siblings and the other folding them.
func proofPath(store *nodeStore, i uint64, peakPos uint64) ([][]byte, error) {
	var path [][]byte
	g := mmr.IndexHeight(i)

	for i != peakPos {
		var sibPos uint64
		if mmr.IndexHeight(i+1) > g {
			// i is a right child; its parent is i+1 and the left
			// sibling sits at parent - (2<<g).
			sibPos = (i + 1) - (2 << g)
			i = i + 1
		} else {
			// i is a left child; its parent is i+(2<<g) and the
			// right sibling sits immediately before that parent.
			sibPos = i + (2 << g) - 1
			i = i + (2 << g)
		}

		sib, err := store.Get(sibPos)
		if err != nil {
			return nil, err
		}
		path = append(path, sib)
		g++
	}
	return path, nil
}
