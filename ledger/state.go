package ledger

import (
	"sort"
	"sync"

	"github.com/mapleaiorg/wll/accumulator"
	"github.com/mapleaiorg/wll/model"
)

// chainEntry is one line of a worldline's chain index: the append-only
// (seq, receipt_hash) ledger that step (2) of the write-ahead discipline
// commits to before the head pointer is advanced in step (3). Recovering
// head after a crash between (2) and (3) is just re-reading the last
// entry of this index; recordChainEntry and advanceHead below are called
// back to back under the same lock so that invariant never actually
// needs runtime recovery code here, but the two steps are kept distinct
// to mirror the discipline spec.md §4.5 describes.
type chainEntry struct {
	seq  uint64
	hash model.ObjectId
}

// worldlineState holds one worldline's in-memory chain and the S0/S1/S0'
// state machine from spec.md §4.5. All mutation goes through mu, held only
// across the validate-and-commit step of an append, never across the
// (store write, hash, serialize) work that precedes it — that work is
// pure and store writes are content-addressed, so doing it outside the
// lock is safe and is what lets independent worldlines, and even racing
// writers on the same worldline, make progress without serializing on
// anything but the final pointer swing.
type worldlineState struct {
	mu sync.RWMutex

	index  []chainEntry
	byHash map[model.ObjectId]model.Receipt
	bySeq  map[uint64]model.ObjectId

	head *model.Receipt

	// pendingCommitment holds the receipt hash of an Accepted commitment
	// awaiting its outcome (state S1). Nil in S0 or S0'.
	pendingCommitment *model.ObjectId

	// acc is a running Merkle Mountain Range over every receipt hash this
	// worldline has ever committed, so a light client holding only a peak
	// hash can later verify a receipt's inclusion without the full chain.
	// It advances in lockstep with the chain index, inside the same lock.
	acc        *accumulator.Accumulator
	leafByHash map[model.ObjectId]uint64
}

func newWorldlineState() *worldlineState {
	return &worldlineState{
		byHash:     make(map[model.ObjectId]model.Receipt),
		bySeq:      make(map[uint64]model.ObjectId),
		acc:        accumulator.New(),
		leafByHash: make(map[model.ObjectId]uint64),
	}
}

// headSnapshot returns a copy of the current head and pending commitment,
// for use outside the lock while building a candidate receipt.
func (st *worldlineState) headSnapshot() (head *model.Receipt, pending *model.ObjectId) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.head != nil {
		h := *st.head
		head = &h
	}
	if st.pendingCommitment != nil {
		p := *st.pendingCommitment
		pending = &p
	}
	return head, pending
}

// expectedPrevHash is the ReceiptHash a candidate receipt must chain from,
// or the zero id for a still-empty worldline.
func expectedPrevHash(head *model.Receipt) model.ObjectId {
	if head == nil {
		return model.ZeroObjectId
	}
	return head.ReceiptHash
}

// tryCommitCommitment validates expectedPrev against the live head and, if
// it still matches, records entering (seq, receipt) as the new head. If
// accepted it also enters S1 by recording the commitment's hash as
// pending. Returns ErrSequenceRace if expectedPrev is stale, or
// ErrPairingBroken if the worldline entered S1 for a different
// commitment since the caller's snapshot was taken.
func (st *worldlineState) tryCommitCommitment(expectedPrev model.ObjectId, receipt model.Receipt, accepted bool) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.pendingCommitment != nil {
		return ErrPairingBroken
	}
	if expectedPrevHash(st.head) != expectedPrev {
		return ErrSequenceRace
	}

	if err := st.commitLocked(receipt); err != nil {
		return err
	}
	if accepted {
		h := receipt.ReceiptHash
		st.pendingCommitment = &h
	}
	return nil
}

// tryCommitOutcome validates that the worldline is still in S1 awaiting
// exactly commitmentHash, and if so records receipt as the new head and
// clears the pending marker (returning the worldline to S0).
func (st *worldlineState) tryCommitOutcome(commitmentHash model.ObjectId, receipt model.Receipt) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.pendingCommitment == nil || *st.pendingCommitment != commitmentHash {
		return ErrPairingBroken
	}
	if expectedPrevHash(st.head) != commitmentHash {
		return ErrSequenceRace
	}

	if err := st.commitLocked(receipt); err != nil {
		return err
	}
	st.pendingCommitment = nil
	return nil
}

// tryCommitAdministrative is used by snapshot/branch/tag receipts, which
// are legal from S0 or S0' (pendingCommitment == nil) but not from S1.
func (st *worldlineState) tryCommitAdministrative(expectedPrev model.ObjectId, receipt model.Receipt) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.pendingCommitment != nil {
		return ErrPairingBroken
	}
	if expectedPrevHash(st.head) != expectedPrev {
		return ErrSequenceRace
	}

	return st.commitLocked(receipt)
}

// commitLocked performs steps (2)-(3) of the write-ahead discipline: append
// the chain index entry, then advance head, then extend the accumulator
// with the new receipt hash as its next leaf. Caller must hold mu.
func (st *worldlineState) commitLocked(receipt model.Receipt) error {
	st.index = append(st.index, chainEntry{seq: receipt.Seq, hash: receipt.ReceiptHash})
	st.byHash[receipt.ReceiptHash] = receipt
	st.bySeq[receipt.Seq] = receipt.ReceiptHash
	h := receipt
	st.head = &h

	leafIndex, err := st.acc.Add(receipt.ReceiptHash[:])
	if err != nil {
		return err
	}
	st.leafByHash[receipt.ReceiptHash] = leafIndex
	return nil
}

func (st *worldlineState) currentHead() *model.Receipt {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.head == nil {
		return nil
	}
	h := *st.head
	return &h
}

func (st *worldlineState) lookupByHash(id model.ObjectId) (model.Receipt, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	r, ok := st.byHash[id]
	return r, ok
}

func (st *worldlineState) lookupBySeq(seq uint64) (model.Receipt, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	id, ok := st.bySeq[seq]
	if !ok {
		return model.Receipt{}, false
	}
	return st.byHash[id], true
}

func (st *worldlineState) count() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return uint64(len(st.index))
}

// readAll returns every receipt in ascending seq order.
func (st *worldlineState) readAll() []model.Receipt {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]model.Receipt, len(st.index))
	for i, e := range st.index {
		out[i] = st.byHash[e.hash]
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// inclusionProof builds an accumulator.InclusionProof for hash, the way a
// light client that archived a peak hash would later verify it without
// replaying the whole chain.
func (st *worldlineState) inclusionProof(hash model.ObjectId) (accumulator.InclusionProof, error) {
	st.mu.RLock()
	leafIndex, ok := st.leafByHash[hash]
	st.mu.RUnlock()
	if !ok {
		return accumulator.InclusionProof{}, ErrNotFound
	}
	return st.acc.Prove(leafIndex)
}
