package replay

import (
	"fmt"

	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/model"
)

// ViolationKind names the specific way a receipt failed a check, per the
// fixed vocabulary in spec.md §4.7.
type ViolationKind string

const (
	SequenceGap         ViolationKind = "SequenceGap"
	HashChainBreak      ViolationKind = "HashChainBreak"
	HashMismatch        ViolationKind = "HashMismatch"
	UnattributedOutcome ViolationKind = "UnattributedOutcome"
	UnanchoredSnapshot  ViolationKind = "UnanchoredSnapshot"
	TemporalRegression  ViolationKind = "TemporalRegression"
	PairingViolation    ViolationKind = "PairingViolation"
)

// Violation names the offending seq and the check it failed.
type Violation struct {
	Seq    uint64
	Kind   ViolationKind
	Detail string
}

// ValidationReport is the result of one linear scan of a worldline's
// chain, per spec.md §4.7.
type ValidationReport struct {
	Worldline          model.WorldlineId
	ReceiptCount       uint64
	HashChainValid     bool
	SequenceMonotonic  bool
	OutcomesAttributed bool
	SnapshotsAnchored  bool
	TemporalMonotonic  bool
	Violations         []Violation
}

// IsValid reports whether every independent check passed: the chain
// carries no violations of any kind. An empty chain is valid vacuously.
func (r ValidationReport) IsValid() bool {
	return r.HashChainValid && r.SequenceMonotonic && r.OutcomesAttributed &&
		r.SnapshotsAnchored && r.TemporalMonotonic
}

// Validate scans receipts (already in ascending seq order, as produced by
// ledger.ReadAll) once and checks the five independent properties in
// spec.md §4.7. It never stops at the first violation: every check
// continues across the whole chain so the report names every offending
// seq, not just the first.
func Validate(worldline model.WorldlineId, receipts []model.Receipt) ValidationReport {
	report := ValidationReport{
		Worldline:          worldline,
		ReceiptCount:       uint64(len(receipts)),
		HashChainValid:     true,
		SequenceMonotonic:  true,
		OutcomesAttributed: true,
		SnapshotsAnchored:  true,
		TemporalMonotonic:  true,
	}

	byHash := make(map[model.ObjectId]model.Receipt, len(receipts))
	for _, r := range receipts {
		byHash[r.ReceiptHash] = r
	}

	pendingCommitment := model.ObjectId{}
	inS1 := false

	for i, r := range receipts {
		// 1. Hash chain.
		recomputed, err := canon.HashReceiptBody(r)
		if err != nil || recomputed != r.ReceiptHash {
			report.HashChainValid = false
			report.Violations = append(report.Violations, Violation{
				Seq: r.Seq, Kind: HashMismatch,
				Detail: fmt.Sprintf("receipt body does not hash to its claimed receipt_hash: %v", err),
			})
		}
		if i > 0 && r.PrevHash != receipts[i-1].ReceiptHash {
			report.HashChainValid = false
			report.Violations = append(report.Violations, Violation{
				Seq: r.Seq, Kind: HashChainBreak,
				Detail: "prev_hash does not match the preceding receipt's receipt_hash",
			})
		}

		// 2. Sequence monotonicity.
		if r.Seq != uint64(i+1) {
			report.SequenceMonotonic = false
			report.Violations = append(report.Violations, Violation{
				Seq: r.Seq, Kind: SequenceGap,
				Detail: fmt.Sprintf("expected seq %d at position %d", i+1, i),
			})
		}

		// 3 + state machine. Outcome attribution and S0/S1/S0' pairing.
		switch r.Kind {
		case model.KindCommitment:
			if inS1 {
				report.OutcomesAttributed = false
				report.Violations = append(report.Violations, Violation{
					Seq: r.Seq, Kind: PairingViolation,
					Detail: "commitment appended while awaiting an outcome",
				})
			}
			if r.Commitment != nil && r.Commitment.Decision.Accepted {
				pendingCommitment = r.ReceiptHash
				inS1 = true
			}
		case model.KindOutcome:
			if r.Outcome == nil {
				report.OutcomesAttributed = false
				report.Violations = append(report.Violations, Violation{
					Seq: r.Seq, Kind: UnattributedOutcome,
					Detail: "outcome receipt carries no outcome payload",
				})
				break
			}
			attributed, exists := byHash[r.Outcome.CommitmentReceiptHash]
			if !exists || attributed.Kind != model.KindCommitment {
				report.OutcomesAttributed = false
				report.Violations = append(report.Violations, Violation{
					Seq: r.Seq, Kind: UnattributedOutcome,
					Detail: "commitment_receipt_hash does not resolve to an earlier commitment",
				})
			}
			if !inS1 || r.Outcome.CommitmentReceiptHash != pendingCommitment {
				report.OutcomesAttributed = false
				report.Violations = append(report.Violations, Violation{
					Seq: r.Seq, Kind: PairingViolation,
					Detail: "outcome does not pair with the immediately preceding accepted commitment",
				})
			}
			inS1 = false
		case model.KindSnapshot:
			if r.Snapshot == nil {
				report.SnapshotsAnchored = false
				report.Violations = append(report.Violations, Violation{
					Seq: r.Seq, Kind: UnanchoredSnapshot,
					Detail: "snapshot receipt carries no snapshot payload",
				})
				break
			}
			predecessorRoot := canon.HashState(replayFrom(receipts[:i], make(map[string][]byte)).State)
			if model.ObjectIdFromDigest(predecessorRoot) != r.Snapshot.AnchoredStateRoot {
				report.SnapshotsAnchored = false
				report.Violations = append(report.Violations, Violation{
					Seq: r.Seq, Kind: UnanchoredSnapshot,
					Detail: "anchored_state_root does not match the state replayed through the predecessor",
				})
			}
		}

		// 5. Temporal monotonicity.
		if i > 0 && !receipts[i-1].Timestamp.Less(r.Timestamp) {
			report.TemporalMonotonic = false
			report.Violations = append(report.Violations, Violation{
				Seq: r.Seq, Kind: TemporalRegression,
				Detail: "temporal anchor did not strictly increase over the preceding receipt",
			})
		}
	}

	return report
}
