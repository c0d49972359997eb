package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mapleaiorg/wll/accumulator"
	"github.com/mapleaiorg/wll/model"
	"github.com/mapleaiorg/wll/objectstore"
	"github.com/mapleaiorg/wll/temporal"
	"github.com/stretchr/testify/require"
)

func newTestLedger() *Ledger {
	return New(objectstore.New(), temporal.New(1), nil)
}

// newTestLedgerShortRetry caps the retry budget so tests that deliberately
// hold a worldline in S1 forever don't pay the default one-second budget
// waiting out a race that never clears.
func newTestLedgerShortRetry() *Ledger {
	return New(objectstore.New(), temporal.New(1), nil, WithRetryBudget(5*time.Millisecond))
}

func acceptedPayload(t *testing.T) model.CommitmentPayload {
	t.Helper()
	id, err := model.NewCommitmentId()
	require.NoError(t, err)
	return model.CommitmentPayload{
		CommitmentId: id,
		Intent:       "do a thing",
		Class:        model.ClassContentUpdate,
		Decision:     model.Accept(model.ObjectId{0xAA}),
	}
}

func rejectedPayload(t *testing.T) model.CommitmentPayload {
	t.Helper()
	id, err := model.NewCommitmentId()
	require.NoError(t, err)
	return model.CommitmentPayload{
		CommitmentId: id,
		Intent:       "do a thing",
		Class:        model.ClassContentUpdate,
		Decision:     model.Reject(model.ObjectId{0xAA}, "nope"),
	}
}

func TestGenesisAppendCommitmentAssignsSeqOne(t *testing.T) {
	l := newTestLedger()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	r, err := l.AppendCommitment(context.Background(), w, acceptedPayload(t))
	require.NoError(t, err)
	require.Equal(t, uint64(1), r.Seq)
	require.Equal(t, model.ZeroObjectId, r.PrevHash)
	require.False(t, r.ReceiptHash.IsZero())
}

func TestAcceptedCommitmentEntersS1AndOnlyOutcomeIsLegal(t *testing.T) {
	l := newTestLedgerShortRetry()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	commit, err := l.AppendCommitment(context.Background(), w, acceptedPayload(t))
	require.NoError(t, err)

	// S1 never clears in this test (no outcome lands), so the retry
	// budget is what eventually gives up, not an immediate rejection:
	// blocking on a pending pairing is contention, not a protocol error.
	_, err = l.AppendCommitment(context.Background(), w, acceptedPayload(t))
	require.ErrorIs(t, err, ErrRetriesExhausted)

	outcome, err := l.AppendOutcome(context.Background(), w, commit.ReceiptHash, model.OutcomePayload{Accepted: true})
	require.NoError(t, err)
	require.Equal(t, uint64(2), outcome.Seq)
	require.Equal(t, commit.ReceiptHash, outcome.PrevHash)
}

func TestOutcomeForWrongCommitmentIsPairingBroken(t *testing.T) {
	l := newTestLedger()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	_, err := l.AppendCommitment(context.Background(), w, acceptedPayload(t))
	require.NoError(t, err)

	_, err = l.AppendOutcome(context.Background(), w, model.ObjectId{0x99}, model.OutcomePayload{Accepted: true})
	require.ErrorIs(t, err, ErrPairingBroken)
}

func TestRejectedCommitmentReturnsToS0AndAllowsAnotherCommitment(t *testing.T) {
	l := newTestLedger()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	first, err := l.AppendCommitment(context.Background(), w, rejectedPayload(t))
	require.NoError(t, err)

	second, err := l.AppendCommitment(context.Background(), w, acceptedPayload(t))
	require.NoError(t, err)
	require.Equal(t, first.ReceiptHash, second.PrevHash)
	require.Equal(t, uint64(2), second.Seq)
}

func TestOutcomeIllegalBeforeAnyCommitment(t *testing.T) {
	l := newTestLedger()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	_, err := l.AppendOutcome(context.Background(), w, model.ObjectId{0x01}, model.OutcomePayload{})
	require.ErrorIs(t, err, ErrPairingBroken)
}

func TestAppendSnapshotLegalFromS0NotFromS1(t *testing.T) {
	l := newTestLedgerShortRetry()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	_, err := l.AppendSnapshot(context.Background(), w, model.SnapshotPayload{AnchorHash: model.ObjectId{1}})
	require.NoError(t, err)

	_, err = l.AppendCommitment(context.Background(), w, acceptedPayload(t))
	require.NoError(t, err)

	_, err = l.AppendSnapshot(context.Background(), w, model.SnapshotPayload{AnchorHash: model.ObjectId{2}})
	require.ErrorIs(t, err, ErrRetriesExhausted)
}

func TestReadAllReturnsAscendingSeq(t *testing.T) {
	l := newTestLedger()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	commit, err := l.AppendCommitment(context.Background(), w, acceptedPayload(t))
	require.NoError(t, err)
	_, err = l.AppendOutcome(context.Background(), w, commit.ReceiptHash, model.OutcomePayload{Accepted: true})
	require.NoError(t, err)

	all := l.ReadAll(w)
	require.Len(t, all, 2)
	require.Equal(t, uint64(1), all[0].Seq)
	require.Equal(t, uint64(2), all[1].Seq)
	require.Equal(t, uint64(2), l.ReceiptCount(w))
}

func TestHeadAndLookupsReflectLatestAppend(t *testing.T) {
	l := newTestLedger()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	commit, err := l.AppendCommitment(context.Background(), w, acceptedPayload(t))
	require.NoError(t, err)

	head, ok := l.Head(w)
	require.True(t, ok)
	require.Equal(t, commit.ReceiptHash, head.ReceiptHash)

	bySeq, ok := l.GetBySeq(w, 1)
	require.True(t, ok)
	require.Equal(t, commit.ReceiptHash, bySeq.ReceiptHash)

	byHash, ok := l.GetByHash(w, commit.ReceiptHash)
	require.True(t, ok)
	require.Equal(t, uint64(1), byHash.Seq)
}

func TestConcurrentCommitmentsOnSameWorldlineAllSucceedSerialized(t *testing.T) {
	l := newTestLedger()
	w := model.WorldlineIdFromSeed([]byte("w1"))

	const writers = 32
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := l.AppendCommitment(context.Background(), w, rejectedPayload(t))
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, uint64(writers), l.ReceiptCount(w))

	all := l.ReadAll(w)
	for i, r := range all {
		require.Equal(t, uint64(i+1), r.Seq)
		if i == 0 {
			require.Equal(t, model.ZeroObjectId, r.PrevHash)
		} else {
			require.Equal(t, all[i-1].ReceiptHash, r.PrevHash)
		}
	}
}

func TestInclusionProofVerifiesAgainstEveryCommittedReceipt(t *testing.T) {
	l := newTestLedger()
	w := model.WorldlineIdFromSeed([]byte("w1"))
	ctx := context.Background()

	var receipts []model.Receipt
	commit, err := l.AppendCommitment(ctx, w, acceptedPayload(t))
	require.NoError(t, err)
	receipts = append(receipts, commit)
	outcome, err := l.AppendOutcome(ctx, w, commit.ReceiptHash, model.OutcomePayload{Accepted: true})
	require.NoError(t, err)
	receipts = append(receipts, outcome)
	snapshot, err := l.AppendSnapshot(ctx, w, model.SnapshotPayload{AnchorHash: outcome.ReceiptHash})
	require.NoError(t, err)
	receipts = append(receipts, snapshot)

	for _, r := range receipts {
		proof, err := l.InclusionProof(w, r.ReceiptHash)
		require.NoError(t, err)
		require.True(t, accumulator.Verify(r.ReceiptHash[:], proof))
	}

	_, err = l.InclusionProof(w, model.ObjectId{0xFF})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIndependentWorldlinesDoNotInterfere(t *testing.T) {
	l := newTestLedger()
	w1 := model.WorldlineIdFromSeed([]byte("w1"))
	w2 := model.WorldlineIdFromSeed([]byte("w2"))

	_, err := l.AppendCommitment(context.Background(), w1, acceptedPayload(t))
	require.NoError(t, err)

	require.Equal(t, uint64(1), l.ReceiptCount(w1))
	require.Equal(t, uint64(0), l.ReceiptCount(w2))
}
