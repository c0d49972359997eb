package canon

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mapleaiorg/wll/model"
)

// DeserializeReceiptBody decodes bytes produced by SerializeReceiptBody back
// into a model.Receipt. The ReceiptHash field is left zero; callers that
// need it should recompute via HashReceiptBody and compare against the
// store's object id (which is exactly how the validator detects
// corruption).
func DeserializeReceiptBody(data []byte) (model.Receipt, error) {
	r := NewReader(data)
	var rec model.Receipt

	worldline, err := r.Fixed(objectIdSize)
	if err != nil {
		return rec, err
	}
	copy(rec.Worldline[:], worldline)

	rec.Seq, err = r.U64LE()
	if err != nil {
		return rec, err
	}

	prev, err := r.Fixed(objectIdSize)
	if err != nil {
		return rec, err
	}
	copy(rec.PrevHash[:], prev)

	rec.Timestamp.PhysicalMS, err = r.U64LE()
	if err != nil {
		return rec, err
	}
	rec.Timestamp.Logical, err = r.U32LE()
	if err != nil {
		return rec, err
	}
	rec.Timestamp.NodeID, err = r.U32LE()
	if err != nil {
		return rec, err
	}

	kind, err := r.U8()
	if err != nil {
		return rec, err
	}
	rec.Kind = model.ReceiptKind(kind)

	switch rec.Kind {
	case model.KindCommitment:
		p, err := readCommitmentPayload(r)
		if err != nil {
			return rec, err
		}
		rec.Commitment = &p
	case model.KindOutcome:
		p, err := readOutcomePayload(r)
		if err != nil {
			return rec, err
		}
		rec.Outcome = &p
	case model.KindSnapshot:
		anchor, err := r.Fixed(objectIdSize)
		if err != nil {
			return rec, err
		}
		root, err := r.Fixed(objectIdSize)
		if err != nil {
			return rec, err
		}
		var p model.SnapshotPayload
		copy(p.AnchorHash[:], anchor)
		copy(p.AnchoredStateRoot[:], root)
		rec.Snapshot = &p
	case model.KindBranch:
		name, err := r.String()
		if err != nil {
			return rec, err
		}
		tip, err := r.Fixed(objectIdSize)
		if err != nil {
			return rec, err
		}
		p := model.BranchPayload{Name: name}
		copy(p.Tip[:], tip)
		rec.Branch = &p
	case model.KindTag:
		name, err := r.String()
		if err != nil {
			return rec, err
		}
		target, err := r.Fixed(objectIdSize)
		if err != nil {
			return rec, err
		}
		message, err := r.String()
		if err != nil {
			return rec, err
		}
		sig, err := r.Bytes()
		if err != nil {
			return rec, err
		}
		p := model.TagPayload{Name: name, Message: message, Signature: sig}
		copy(p.Target[:], target)
		rec.Tag = &p
	default:
		return rec, fmt.Errorf("canon: unknown receipt kind %d", kind)
	}
	return rec, nil
}

func readCommitmentPayload(r *Reader) (model.CommitmentPayload, error) {
	var p model.CommitmentPayload
	idBytes, err := r.Fixed(16)
	if err != nil {
		return p, err
	}
	id, err := uuid.FromBytes(idBytes)
	if err != nil {
		return p, fmt.Errorf("canon: commitment id: %w", err)
	}
	p.CommitmentId = model.CommitmentId(id)

	p.Intent, err = r.String()
	if err != nil {
		return p, err
	}
	p.Class, err = readClass(r)
	if err != nil {
		return p, err
	}
	accepted, err := r.U8()
	if err != nil {
		return p, err
	}
	policyHash, err := r.Fixed(objectIdSize)
	if err != nil {
		return p, err
	}
	var decision model.Decision
	decision.Accepted = accepted != 0
	copy(decision.PolicyHash[:], policyHash)
	reasonCount, err := r.Varint()
	if err != nil {
		return p, err
	}
	for i := uint64(0); i < reasonCount; i++ {
		reason, err := r.String()
		if err != nil {
			return p, err
		}
		decision.Reasons = append(decision.Reasons, reason)
	}
	p.Decision = decision

	evidence, err := r.Fixed(objectIdSize)
	if err != nil {
		return p, err
	}
	copy(p.EvidenceDigest[:], evidence)

	hasTree, err := r.U8()
	if err != nil {
		return p, err
	}
	if hasTree != 0 {
		treeBytes, err := r.Fixed(objectIdSize)
		if err != nil {
			return p, err
		}
		var tree model.ObjectId
		copy(tree[:], treeBytes)
		p.Tree = &tree
	}
	return p, nil
}

func readOutcomePayload(r *Reader) (model.OutcomePayload, error) {
	var p model.OutcomePayload
	hashBytes, err := r.Fixed(objectIdSize)
	if err != nil {
		return p, err
	}
	copy(p.CommitmentReceiptHash[:], hashBytes)

	p.Effects, err = r.Bytes()
	if err != nil {
		return p, err
	}

	count, err := r.Varint()
	if err != nil {
		return p, err
	}
	if count > 0 {
		p.StateUpdates = make(map[string][]byte, count)
	}
	for i := uint64(0); i < count; i++ {
		key, err := r.String()
		if err != nil {
			return p, err
		}
		value, err := r.Bytes()
		if err != nil {
			return p, err
		}
		p.StateUpdates[key] = value
	}

	acceptedByte, err := r.U8()
	if err != nil {
		return p, err
	}
	p.Accepted = acceptedByte != 0
	return p, nil
}
