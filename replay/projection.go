package replay

import (
	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/model"
)

// SnapshotCache is a previously computed, caller-held replay state paired
// with the seq of the SnapshotReceipt it was computed through. A
// ProjectionBuilder treats it as trustworthy only after re-hashing it and
// checking the result against that receipt's anchored_state_root.
type SnapshotCache struct {
	Seq   uint64
	State map[string][]byte
}

// ProjectionBuilder produces the same final state Replay would, but can
// skip straight to a cached snapshot's state instead of replaying from
// seq=1, per spec.md §4.7.
type ProjectionBuilder struct{}

// NewProjectionBuilder returns a ready-to-use builder. It holds no state
// of its own; receipts and any cache are supplied per call.
func NewProjectionBuilder() ProjectionBuilder { return ProjectionBuilder{} }

// Build replays receipts to their final state. If cache is non-nil and its
// State re-hashes to the AnchoredStateRoot of the SnapshotReceipt at
// cache.Seq within receipts, replay resumes at cache.Seq+1 from a copy of
// cache.State instead of seq=1. Any cache mismatch falls back to a full
// replay and returns ErrSnapshotMismatch alongside the (still correct)
// result, so callers can decide whether to warn or silently recompute.
func (ProjectionBuilder) Build(receipts []model.Receipt, cache *SnapshotCache) (Result, error) {
	if cache == nil {
		return Replay(receipts), nil
	}

	var snapshot *model.Receipt
	for i := range receipts {
		if receipts[i].Seq == cache.Seq && receipts[i].Kind == model.KindSnapshot {
			snapshot = &receipts[i]
			break
		}
	}
	if snapshot == nil || snapshot.Snapshot == nil {
		return Replay(receipts), ErrSnapshotMismatch
	}

	root := model.ObjectIdFromDigest(canon.HashState(cache.State))
	if root != snapshot.Snapshot.AnchoredStateRoot {
		return Replay(receipts), ErrSnapshotMismatch
	}

	resumeState := make(map[string][]byte, len(cache.State))
	for k, v := range cache.State {
		resumeState[k] = v
	}

	var suffix []model.Receipt
	for _, r := range receipts {
		if r.Seq > cache.Seq {
			suffix = append(suffix, r)
		}
	}
	return replayFrom(suffix, resumeState), nil
}
