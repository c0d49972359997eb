package model

// ReceiptKind is the explicit tag byte distinguishing receipt variants in
// the canonical wire form. Per design note in spec.md §9, receipts are
// modeled as a tagged union with this kind byte, not as an inheritance
// hierarchy; the validator and replay engine dispatch on it directly.
type ReceiptKind uint8

const (
	KindCommitment ReceiptKind = iota + 1
	KindOutcome
	KindSnapshot
	KindBranch
	KindTag
)

func (k ReceiptKind) String() string {
	switch k {
	case KindCommitment:
		return "Commitment"
	case KindOutcome:
		return "Outcome"
	case KindSnapshot:
		return "Snapshot"
	case KindBranch:
		return "Branch"
	case KindTag:
		return "Tag"
	default:
		return "Unknown"
	}
}

// Receipt is the base record shared by all variants. Exactly one of the
// payload fields is populated, selected by Kind.
type Receipt struct {
	Seq         uint64
	ReceiptHash ObjectId
	PrevHash    ObjectId
	Worldline   WorldlineId
	Timestamp   TemporalAnchor
	Kind        ReceiptKind

	Commitment *CommitmentPayload `json:",omitempty"`
	Outcome    *OutcomePayload    `json:",omitempty"`
	Snapshot   *SnapshotPayload   `json:",omitempty"`
	Branch     *BranchPayload     `json:",omitempty"`
	Tag        *TagPayload        `json:",omitempty"`
}

// CommitmentPayload carries a proposal and the gate's decision about it.
type CommitmentPayload struct {
	CommitmentId   CommitmentId
	Intent         string
	Class          CommitmentClass
	Decision       Decision
	EvidenceDigest ObjectId
	Tree           *ObjectId
}

// OutcomePayload carries the effects of an accepted commitment.
//
// Effects is kept as an opaque blob per the open question in spec.md §9:
// its schema is not yet stabilized, so the core only audit-logs it and
// never interprets its contents. StateUpdates is the one part of an
// outcome the replay engine actually applies, last-write-wins per key.
type OutcomePayload struct {
	CommitmentReceiptHash ObjectId
	Effects               []byte
	StateUpdates          map[string][]byte
	Accepted              bool
}

// SnapshotPayload anchors materialized state at a point in the chain to
// bound replay cost.
type SnapshotPayload struct {
	AnchorHash        ObjectId
	AnchoredStateRoot ObjectId
}

// BranchPayload is an administrative receipt recording a branch ref update.
type BranchPayload struct {
	Name string
	Tip  ObjectId
}

// TagPayload is an administrative receipt recording tag creation. Signature
// is an optional detached Ed25519 signature over Target||Message, per the
// open question in spec.md §9: a missing signature is non-fatal unless a
// policy rule explicitly demands one.
type TagPayload struct {
	Name      string
	Target    ObjectId
	Message   string
	Signature []byte
}
