// Package replay implements the deterministic replay engine and stream
// validator (C7). Replay folds accepted outcome receipts into a
// last-write-wins state map, the same reduction shape as
// OutcomePayload.StateUpdates itself (canon/receipt.go's putOutcomePayload
// already sorts those keys for the identical determinism reason). The
// validator is a single linear scan of independent checks, grounded on the
// same "collect violations, never abort early" posture
// the teacher's mmr.VerifyConsistency (not part of this repository's mmr
// package) uses when checking a sequence of peak hashes: it
// keeps checking every peak and reports all mismatches rather than
// stopping at the first.
package replay

import "github.com/mapleaiorg/wll/model"

// Result is the outcome of replaying a worldline's chain (or a suffix of
// it, for a ProjectionBuilder short-circuit).
type Result struct {
	State             map[string][]byte
	AppliedOutcomes   uint64
	EvaluatedReceipts uint64
}

// Replay applies receipts in order, starting from an empty state map. Per
// spec.md §4.7: rejected commitments and their absent outcomes are not
// applied but do count toward EvaluatedReceipts; accepted outcomes merge
// StateUpdates last-write-wins per key and count toward AppliedOutcomes.
// Replay is pure: it only reads receipts and never touches the ledger or
// object store, so it is safe against a read-only snapshot.
func Replay(receipts []model.Receipt) Result {
	return replayFrom(receipts, make(map[string][]byte))
}

func replayFrom(receipts []model.Receipt, state map[string][]byte) Result {
	result := Result{State: state}
	for _, r := range receipts {
		switch r.Kind {
		case model.KindCommitment:
			result.EvaluatedReceipts++
		case model.KindOutcome:
			if r.Outcome == nil || !r.Outcome.Accepted {
				continue
			}
			for k, v := range r.Outcome.StateUpdates {
				result.State[k] = v
			}
			result.AppliedOutcomes++
		}
	}
	return result
}
