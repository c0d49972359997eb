package canon

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mapleaiorg/wll/crypto"
	"github.com/mapleaiorg/wll/model"
)

const objectIdSize = crypto.Size

// SerializeReceiptBody encodes a receipt's body, excluding ReceiptHash
// itself, in the field order mandated by spec.md §6:
//
//	worldline(32B) || seq(u64 LE) || prev_hash(32B) ||
//	timestamp(16B: physical_ms u64 LE, logical u32 LE, node_id u32 LE) ||
//	kind_tag(u8) || payload
func SerializeReceiptBody(r model.Receipt) ([]byte, error) {
	w := &Writer{}
	w.PutFixed(r.Worldline[:])
	w.PutU64LE(r.Seq)
	w.PutFixed(r.PrevHash[:])
	w.PutU64LE(r.Timestamp.PhysicalMS)
	w.PutU32LE(r.Timestamp.Logical)
	w.PutU32LE(r.Timestamp.NodeID)
	w.PutU8(uint8(r.Kind))

	switch r.Kind {
	case model.KindCommitment:
		if r.Commitment == nil {
			return nil, fmt.Errorf("canon: commitment receipt missing payload")
		}
		putCommitmentPayload(w, *r.Commitment)
	case model.KindOutcome:
		if r.Outcome == nil {
			return nil, fmt.Errorf("canon: outcome receipt missing payload")
		}
		putOutcomePayload(w, *r.Outcome)
	case model.KindSnapshot:
		if r.Snapshot == nil {
			return nil, fmt.Errorf("canon: snapshot receipt missing payload")
		}
		w.PutFixed(r.Snapshot.AnchorHash[:])
		w.PutFixed(r.Snapshot.AnchoredStateRoot[:])
	case model.KindBranch:
		if r.Branch == nil {
			return nil, fmt.Errorf("canon: branch receipt missing payload")
		}
		w.PutString(r.Branch.Name)
		w.PutFixed(r.Branch.Tip[:])
	case model.KindTag:
		if r.Tag == nil {
			return nil, fmt.Errorf("canon: tag receipt missing payload")
		}
		w.PutString(r.Tag.Name)
		w.PutFixed(r.Tag.Target[:])
		w.PutString(r.Tag.Message)
		w.PutBytes(r.Tag.Signature)
	default:
		return nil, fmt.Errorf("canon: unknown receipt kind %d", r.Kind)
	}
	return w.Bytes(), nil
}

// HashReceiptBody computes receipt_hash = BLAKE3("RECEIPT" ||
// canonical_serialize(body)), i.e. invariant 2 from spec.md §3.
func HashReceiptBody(r model.Receipt) (model.ObjectId, error) {
	body, err := SerializeReceiptBody(r)
	if err != nil {
		return model.ObjectId{}, err
	}
	return model.ObjectIdFromDigest(crypto.HashWithDomain(crypto.DomainReceipt, body)), nil
}

func putClass(w *Writer, c model.CommitmentClass) {
	w.PutString(c.String())
}

func readClass(r *Reader) (model.CommitmentClass, error) {
	s, err := r.String()
	if err != nil {
		return model.CommitmentClass{}, err
	}
	switch s {
	case "ReadOnly":
		return model.ClassReadOnly, nil
	case "ContentUpdate":
		return model.ClassContentUpdate, nil
	case "StructuralChange":
		return model.ClassStructuralChange, nil
	case "PolicyChange":
		return model.ClassPolicyChange, nil
	case "IdentityOperation":
		return model.ClassIdentityOperation, nil
	default:
		if len(s) > len("Custom(") && s[:7] == "Custom(" && s[len(s)-1] == ')' {
			return model.CustomClass(s[7 : len(s)-1]), nil
		}
		return model.CommitmentClass{}, fmt.Errorf("canon: unknown commitment class %q", s)
	}
}

func putCommitmentPayload(w *Writer, p model.CommitmentPayload) {
	idBytes, _ := uuid.UUID(p.CommitmentId).MarshalBinary()
	w.PutFixed(idBytes)
	w.PutString(p.Intent)
	putClass(w, p.Class)
	w.PutU8(boolByte(p.Decision.Accepted))
	w.PutFixed(p.Decision.PolicyHash[:])
	w.PutVarint(uint64(len(p.Decision.Reasons)))
	for _, reason := range p.Decision.Reasons {
		w.PutString(reason)
	}
	w.PutFixed(p.EvidenceDigest[:])
	if p.Tree != nil {
		w.PutU8(1)
		w.PutFixed(p.Tree[:])
	} else {
		w.PutU8(0)
	}
}

func putOutcomePayload(w *Writer, p model.OutcomePayload) {
	w.PutFixed(p.CommitmentReceiptHash[:])
	w.PutBytes(p.Effects)
	keys := make([]string, 0, len(p.StateUpdates))
	for k := range p.StateUpdates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	w.PutVarint(uint64(len(keys)))
	for _, k := range keys {
		w.PutString(k)
		w.PutBytes(p.StateUpdates[k])
	}
	w.PutU8(boolByte(p.Accepted))
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
