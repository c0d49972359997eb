package model

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mapleaiorg/wll/crypto"
)

// CommitmentId is a time-sortable 128-bit identifier assigned to every
// proposal: a UUID v7 (first 48 bits millisecond timestamp, remainder
// random), via google/uuid's NewV7.
type CommitmentId uuid.UUID

// NewCommitmentId mints a fresh time-sortable commitment id.
func NewCommitmentId() (CommitmentId, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return CommitmentId{}, fmt.Errorf("model: generate commitment id: %w", err)
	}
	return CommitmentId(id), nil
}

func (c CommitmentId) String() string { return uuid.UUID(c).String() }

// CommitmentClass is a tagged union of the risk classes a proposal can
// carry. The zero value is the invalid class; ClassContentUpdate
// is the default applied by NewProposal.
type CommitmentClass struct {
	kind  commitmentClassKind
	label string // only meaningful when kind == classKindCustom
}

type commitmentClassKind uint8

const (
	classKindInvalid commitmentClassKind = iota
	classKindReadOnly
	classKindContentUpdate
	classKindStructuralChange
	classKindPolicyChange
	classKindIdentityOperation
	classKindCustom
)

var (
	// ClassReadOnly carries risk 0.
	ClassReadOnly = CommitmentClass{kind: classKindReadOnly}
	// ClassContentUpdate is the default class, risk 1.
	ClassContentUpdate = CommitmentClass{kind: classKindContentUpdate}
	// ClassStructuralChange carries risk 2.
	ClassStructuralChange = CommitmentClass{kind: classKindStructuralChange}
	// ClassPolicyChange carries risk 3.
	ClassPolicyChange = CommitmentClass{kind: classKindPolicyChange}
	// ClassIdentityOperation carries risk 4.
	ClassIdentityOperation = CommitmentClass{kind: classKindIdentityOperation}
)

// CustomClass builds a Custom(label) commitment class, risk 2 (medium).
func CustomClass(label string) CommitmentClass {
	return CommitmentClass{kind: classKindCustom, label: label}
}

// Risk returns the numeric risk level associated with the class.
func (c CommitmentClass) Risk() int {
	switch c.kind {
	case classKindReadOnly:
		return 0
	case classKindContentUpdate:
		return 1
	case classKindStructuralChange:
		return 2
	case classKindPolicyChange:
		return 3
	case classKindIdentityOperation:
		return 4
	case classKindCustom:
		return 2
	default:
		return -1
	}
}

// String renders the class the way it appears in canonical serialization
// and in gate rejection reasons.
func (c CommitmentClass) String() string {
	switch c.kind {
	case classKindReadOnly:
		return "ReadOnly"
	case classKindContentUpdate:
		return "ContentUpdate"
	case classKindStructuralChange:
		return "StructuralChange"
	case classKindPolicyChange:
		return "PolicyChange"
	case classKindIdentityOperation:
		return "IdentityOperation"
	case classKindCustom:
		return "Custom(" + c.label + ")"
	default:
		return "Invalid"
	}
}

// Valid reports whether c is one of the well-formed classes (the zero value
// is not).
func (c CommitmentClass) Valid() bool { return c.kind != classKindInvalid }

// Equal reports class equality, including custom labels.
func (c CommitmentClass) Equal(other CommitmentClass) bool {
	return c.kind == other.kind && c.label == other.label
}

// EvidenceBundle is an ordered list of URI strings plus a BLAKE3 digest over
// their canonical concatenation, so tampering with the bundle after
// commitment is detectable.
type EvidenceBundle struct {
	URIs   []string
	Digest ObjectId
}

// NewEvidenceBundle computes Digest over uris joined by a NUL separator and
// returns the populated bundle. An empty uris slice yields a bundle whose
// Digest is the hash of the empty payload (still non-zero) but whose URIs
// is empty, which RequireEvidence treats as "no evidence".
func NewEvidenceBundle(uris []string) EvidenceBundle {
	buf := make([]byte, 0, 64)
	for i, u := range uris {
		if i > 0 {
			buf = append(buf, 0x00)
		}
		buf = append(buf, []byte(u)...)
	}
	return EvidenceBundle{
		URIs:   append([]string(nil), uris...),
		Digest: ObjectIdFromDigest(crypto.HashWithDomain(crypto.DomainEvidence, buf)),
	}
}

// Empty reports whether the bundle carries no evidence URIs.
func (e EvidenceBundle) Empty() bool { return len(e.URIs) == 0 }

// Verify recomputes the digest over URIs and reports whether it still
// matches Digest, detecting post-commitment tampering.
func (e EvidenceBundle) Verify() bool {
	return NewEvidenceBundle(e.URIs).Digest == e.Digest
}

// CommitmentProposal is the input to the gate.
type CommitmentProposal struct {
	Message      string
	Intent       string // defaults to Message when empty
	Class        CommitmentClass
	Evidence     EvidenceBundle
	Tree         *ObjectId // optional
	Author       WorldlineId
	CommitmentId CommitmentId
}

// EffectiveIntent returns Intent, defaulting to Message per spec.
func (p CommitmentProposal) EffectiveIntent() string {
	if p.Intent != "" {
		return p.Intent
	}
	return p.Message
}

// NewProposal builds a proposal with CommitmentId freshly minted and Class
// set to ClassContentUpdate.
func NewProposal(message string, author WorldlineId) (CommitmentProposal, error) {
	id, err := NewCommitmentId()
	if err != nil {
		return CommitmentProposal{}, err
	}
	return CommitmentProposal{
		Message:      message,
		Class:        ClassContentUpdate,
		Author:       author,
		CommitmentId: id,
	}, nil
}

// Decision is the gate's verdict on a proposal.
type Decision struct {
	Accepted   bool
	PolicyHash ObjectId
	Reasons    []string // only meaningful when !Accepted
}

// Accept builds an Accepted decision.
func Accept(policyHash ObjectId) Decision {
	return Decision{Accepted: true, PolicyHash: policyHash}
}

// Reject builds a Rejected decision carrying reasons.
func Reject(policyHash ObjectId, reasons ...string) Decision {
	return Decision{Accepted: false, PolicyHash: policyHash, Reasons: reasons}
}
