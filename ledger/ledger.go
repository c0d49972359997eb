// Package ledger implements the append-only receipt chain (C5): the
// hardest subsystem per spec.md's own module weighting. Its write-ahead
// discipline and per-worldline optimistic concurrency are modeled on
// massifs.MassifCommitter.CommitContext's etag-guarded append (read the
// current state, build the next blob against it, and let the backing
// store's compare-and-swap reject a write that raced), generalized from a
// single Azure blob's etag to a per-worldline head hash comparison, and
// from a bare error return to bounded retry via cenkalti/backoff/v4 so
// that transient SequenceRace contention is invisible to ordinary callers.
// Each worldline also feeds its receipt hashes into an accumulator, so a
// light client can later verify one receipt's inclusion from a peak hash
// alone.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mapleaiorg/wll/accumulator"
	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/internal/logging"
	"github.com/mapleaiorg/wll/model"
	"github.com/mapleaiorg/wll/objectstore"
	"go.uber.org/zap"
)

// Clock is the subset of *temporal.Clock the ledger needs; receipts are
// stamped through it so every append carries a causally ordered anchor.
type Clock interface {
	Now() (model.TemporalAnchor, error)
}

// Ledger is the receipt chain over every worldline a process knows about.
// One Ledger wraps one object store and one clock; worldlines are
// independent from each other but share both.
type Ledger struct {
	store *objectstore.Store
	clock Clock
	log   *zap.SugaredLogger

	mu         sync.Mutex // guards worldlines map only, not per-worldline state
	worldlines map[model.WorldlineId]*worldlineState

	maxElapsed time.Duration
}

// Option configures a Ledger at construction time.
type Option func(*Ledger)

// WithRetryBudget bounds how long Append* will retry under sustained
// SequenceRace or pairing contention before giving up with
// ErrRetriesExhausted.
// Default is one second.
func WithRetryBudget(d time.Duration) Option {
	return func(l *Ledger) { l.maxElapsed = d }
}

// New builds a Ledger over store, stamping receipts via clock.
func New(store *objectstore.Store, clock Clock, log *zap.SugaredLogger, opts ...Option) *Ledger {
	if log == nil {
		log = logging.WithService("ledger")
	}
	l := &Ledger{
		store:      store,
		clock:      clock,
		log:        log,
		worldlines: make(map[model.WorldlineId]*worldlineState),
		maxElapsed: time.Second,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) stateFor(w model.WorldlineId) *worldlineState {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, ok := l.worldlines[w]
	if !ok {
		st = newWorldlineState()
		l.worldlines[w] = st
	}
	return st
}

func (l *Ledger) retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 20 * time.Millisecond
	b.MaxElapsedTime = l.maxElapsed
	return backoff.WithContext(b, ctx)
}

// AppendCommitment assigns seq = head.seq+1, reads prev_hash = head's
// receipt hash, stamps a fresh TemporalAnchor, serializes and hashes the
// body, writes it to the store, and advances head — retrying transparently
// under bounded backoff if a concurrent writer raced ahead.
func (l *Ledger) AppendCommitment(ctx context.Context, worldline model.WorldlineId, payload model.CommitmentPayload) (model.Receipt, error) {
	st := l.stateFor(worldline)
	var result model.Receipt

	op := func() error {
		head, pending := st.headSnapshot()
		if pending != nil {
			// Some other writer is mid-pairing (S1), not a caller error:
			// the slot frees up as soon as its outcome lands, so wait and
			// retry rather than fail the whole proposal outright.
			return ErrPairingBroken
		}

		receipt, err := l.buildReceipt(worldline, head, model.KindCommitment)
		if err != nil {
			return backoff.Permanent(err)
		}
		receipt.Commitment = &payload

		if err := l.hashAndStore(&receipt); err != nil {
			return backoff.Permanent(err)
		}

		err = st.tryCommitCommitment(expectedPrevHash(head), receipt, payload.Decision.Accepted)
		switch err {
		case nil:
			result = receipt
			return nil
		case ErrSequenceRace, ErrPairingBroken:
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	if err := backoff.Retry(op, l.retryPolicy(ctx)); err != nil {
		if err == ErrSequenceRace || err == ErrPairingBroken {
			l.log.Warnw("append retries exhausted under sustained contention", "worldline", worldline.String())
			return model.Receipt{}, ErrRetriesExhausted
		}
		return model.Receipt{}, err
	}
	return result, nil
}

// AppendOutcome appends the outcome receipt for commitmentHash, which must
// be the worldline's current head (i.e. the worldline must be in S1
// awaiting exactly this commitment). Returns ErrPairingBroken otherwise.
func (l *Ledger) AppendOutcome(ctx context.Context, worldline model.WorldlineId, commitmentHash model.ObjectId, payload model.OutcomePayload) (model.Receipt, error) {
	st := l.stateFor(worldline)
	var result model.Receipt
	payload.CommitmentReceiptHash = commitmentHash

	op := func() error {
		head, pending := st.headSnapshot()
		if pending == nil || *pending != commitmentHash {
			return backoff.Permanent(ErrPairingBroken)
		}

		receipt, err := l.buildReceipt(worldline, head, model.KindOutcome)
		if err != nil {
			return backoff.Permanent(err)
		}
		receipt.Outcome = &payload

		if err := l.hashAndStore(&receipt); err != nil {
			return backoff.Permanent(err)
		}

		err = st.tryCommitOutcome(commitmentHash, receipt)
		switch err {
		case nil:
			result = receipt
			return nil
		case ErrSequenceRace:
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	if err := backoff.Retry(op, l.retryPolicy(ctx)); err != nil {
		if err == ErrSequenceRace {
			l.log.Warnw("append retries exhausted under sustained contention", "worldline", worldline.String())
			return model.Receipt{}, ErrRetriesExhausted
		}
		return model.Receipt{}, err
	}
	return result, nil
}

// AppendSnapshot appends an administrative snapshot receipt, legal from S0
// or S0' but not from S1 (an outcome must land first).
func (l *Ledger) AppendSnapshot(ctx context.Context, worldline model.WorldlineId, payload model.SnapshotPayload) (model.Receipt, error) {
	return l.appendAdministrative(ctx, worldline, model.KindSnapshot, func(r *model.Receipt) { r.Snapshot = &payload })
}

// AppendBranch appends an administrative branch-update receipt.
func (l *Ledger) AppendBranch(ctx context.Context, worldline model.WorldlineId, payload model.BranchPayload) (model.Receipt, error) {
	return l.appendAdministrative(ctx, worldline, model.KindBranch, func(r *model.Receipt) { r.Branch = &payload })
}

// AppendTag appends an administrative tag-creation receipt.
func (l *Ledger) AppendTag(ctx context.Context, worldline model.WorldlineId, payload model.TagPayload) (model.Receipt, error) {
	return l.appendAdministrative(ctx, worldline, model.KindTag, func(r *model.Receipt) { r.Tag = &payload })
}

func (l *Ledger) appendAdministrative(ctx context.Context, worldline model.WorldlineId, kind model.ReceiptKind, attach func(*model.Receipt)) (model.Receipt, error) {
	st := l.stateFor(worldline)
	var result model.Receipt

	op := func() error {
		head, pending := st.headSnapshot()
		if pending != nil {
			// Same transient contention as AppendCommitment: wait for S1
			// to clear rather than failing outright.
			return ErrPairingBroken
		}

		receipt, err := l.buildReceipt(worldline, head, kind)
		if err != nil {
			return backoff.Permanent(err)
		}
		attach(&receipt)

		if err := l.hashAndStore(&receipt); err != nil {
			return backoff.Permanent(err)
		}

		err = st.tryCommitAdministrative(expectedPrevHash(head), receipt)
		switch err {
		case nil:
			result = receipt
			return nil
		case ErrSequenceRace, ErrPairingBroken:
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	if err := backoff.Retry(op, l.retryPolicy(ctx)); err != nil {
		if err == ErrSequenceRace || err == ErrPairingBroken {
			l.log.Warnw("append retries exhausted under sustained contention", "worldline", worldline.String())
			return model.Receipt{}, ErrRetriesExhausted
		}
		return model.Receipt{}, err
	}
	return result, nil
}

func (l *Ledger) buildReceipt(worldline model.WorldlineId, head *model.Receipt, kind model.ReceiptKind) (model.Receipt, error) {
	anchor, err := l.clock.Now()
	if err != nil {
		return model.Receipt{}, fmt.Errorf("ledger: stamp temporal anchor: %w", err)
	}
	seq := uint64(1)
	prev := model.ZeroObjectId
	if head != nil {
		seq = head.Seq + 1
		prev = head.ReceiptHash
	}
	return model.Receipt{
		Seq:       seq,
		PrevHash:  prev,
		Worldline: worldline,
		Timestamp: anchor,
		Kind:      kind,
	}, nil
}

// hashAndStore computes receipt.ReceiptHash and persists the body,
// completing step (1) of the write-ahead discipline.
func (l *Ledger) hashAndStore(receipt *model.Receipt) error {
	hash, err := canon.HashReceiptBody(*receipt)
	if err != nil {
		return fmt.Errorf("ledger: hash receipt body: %w", err)
	}
	body, err := canon.SerializeReceiptBody(*receipt)
	if err != nil {
		return fmt.Errorf("ledger: serialize receipt body: %w", err)
	}
	storedID, err := l.store.Write(objectstore.KindReceipt, body)
	if err != nil {
		return fmt.Errorf("ledger: write receipt object: %w", err)
	}
	if storedID != hash {
		return fmt.Errorf("ledger: receipt hash mismatch: computed %s, store returned %s", hash, storedID)
	}
	receipt.ReceiptHash = hash
	return nil
}

// Head returns the current head receipt for worldline, or false if the
// worldline has never appended anything.
func (l *Ledger) Head(worldline model.WorldlineId) (model.Receipt, bool) {
	st := l.stateFor(worldline)
	head := st.currentHead()
	if head == nil {
		return model.Receipt{}, false
	}
	return *head, true
}

// GetByHash looks up a receipt in worldline's chain by its receipt hash.
// Receipts appended to other worldlines are not searched.
func (l *Ledger) GetByHash(worldline model.WorldlineId, hash model.ObjectId) (model.Receipt, bool) {
	return l.stateFor(worldline).lookupByHash(hash)
}

// GetBySeq looks up a receipt by its position in worldline's chain.
func (l *Ledger) GetBySeq(worldline model.WorldlineId, seq uint64) (model.Receipt, bool) {
	return l.stateFor(worldline).lookupBySeq(seq)
}

// ReadAll returns every receipt appended to worldline, in ascending seq.
func (l *Ledger) ReadAll(worldline model.WorldlineId) []model.Receipt {
	return l.stateFor(worldline).readAll()
}

// ReceiptCount returns how many receipts worldline has appended.
func (l *Ledger) ReceiptCount(worldline model.WorldlineId) uint64 {
	return l.stateFor(worldline).count()
}

// InclusionProof returns a proof that hash was appended to worldline's
// chain, checkable by accumulator.Verify against a previously recorded
// peak hash without needing the rest of the chain.
func (l *Ledger) InclusionProof(worldline model.WorldlineId, hash model.ObjectId) (accumulator.InclusionProof, error) {
	return l.stateFor(worldline).inclusionProof(hash)
}

// Worldlines returns every worldline this Ledger has ever appended to, in
// no particular order. Intended for scans that need to walk every chain
// the process knows about (the gc package's reachability sweep), not for
// any hot path.
func (l *Ledger) Worldlines() []model.WorldlineId {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.WorldlineId, 0, len(l.worldlines))
	for w := range l.worldlines {
		out = append(out, w)
	}
	return out
}
