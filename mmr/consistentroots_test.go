package mmr

import (
	"crypto/sha256"
	"reflect"
	"testing"
)

// buildProofPath is a test-only mirror of the accumulator package's
// proofPath: the forward construction counterpart of IncludedRoot's
// consuming walk, used here to build the inclusion proofs ConsistentRoots
// expects without pulling in the accumulator package.
func buildProofPath(t *testing.T, db *testDb, i uint64, peakPos uint64) [][]byte {
	t.Helper()
	var path [][]byte
	g := IndexHeight(i)
	for i != peakPos {
		var sibPos uint64
		if IndexHeight(i+1) > g {
			sibPos = (i + 1) - (2 << g)
			i = i + 1
		} else {
			sibPos = i + (2 << g) - 1
			i = i + (2 << g)
		}
		sib, err := db.Get(sibPos)
		if err != nil {
			t.Fatalf("buildProofPath: %v", err)
		}
		path = append(path, sib)
		g++
	}
	return path
}

func TestConsistentRootsRecoversCurrentPeaksFromOlderOnes(t *testing.T) {
	db := NewTestDb(t)
	hasher := sha256.New()

	for _, b := range [][]byte{{1}, {2}, {3}} {
		if _, err := AddHashedLeaf(db, hasher, b); err != nil {
			t.Fatalf("AddHashedLeaf: %v", err)
		}
	}
	fromSize := db.next
	fromPeakPositions := Peaks(fromSize)
	if fromPeakPositions == nil {
		t.Fatalf("Peaks(%d) returned nil, fixture assumes a valid mmr size", fromSize)
	}

	var fromPeaks [][]byte
	for _, p := range fromPeakPositions {
		v, err := db.Get(p - 1)
		if err != nil {
			t.Fatalf("Get(%d): %v", p-1, err)
		}
		fromPeaks = append(fromPeaks, v)
	}

	for _, b := range [][]byte{{4}} {
		if _, err := AddHashedLeaf(db, hasher, b); err != nil {
			t.Fatalf("AddHashedLeaf: %v", err)
		}
	}
	currentSize := db.next
	currentPeakPositions := Peaks(currentSize)
	if currentPeakPositions == nil {
		t.Fatalf("Peaks(%d) returned nil, fixture assumes a valid mmr size", currentSize)
	}
	var currentPeaks [][]byte
	for _, p := range currentPeakPositions {
		v, err := db.Get(p - 1)
		if err != nil {
			t.Fatalf("Get(%d): %v", p-1, err)
		}
		currentPeaks = append(currentPeaks, v)
	}

	var proofs [][][]byte
	for _, p := range fromPeakPositions {
		pos := p - 1
		peakPos, err := enclosingPeakForTest(pos, currentSize)
		if err != nil {
			t.Fatalf("enclosingPeakForTest: %v", err)
		}
		proofs = append(proofs, buildProofPath(t, db, pos, peakPos))
	}

	got, err := ConsistentRoots(hasher, fromSize, fromPeaks, proofs)
	if err != nil {
		t.Fatalf("ConsistentRoots: %v", err)
	}

	for _, root := range got {
		found := false
		for _, p := range currentPeaks {
			if reflect.DeepEqual(root, p) {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("recovered root %x not among current peaks %x", root, currentPeaks)
		}
	}
}

// enclosingPeakForTest mirrors the accumulator package's enclosingPeak,
// duplicated here to keep this package's tests free of a dependency on
// accumulator.
func enclosingPeakForTest(i uint64, size uint64) (uint64, error) {
	peaks := Peaks(size)
	target := i + 1
	for _, p := range peaks {
		if p >= target {
			return p - 1, nil
		}
	}
	return 0, ErrNotFound
}

func TestConsistentRootsRejectsMismatchedProofCount(t *testing.T) {
	_, err := ConsistentRoots(sha256.New(), 4, [][]byte{{1}, {2}}, [][][]byte{{}})
	if err != ErrAccumulatorProofLen {
		t.Fatalf("got %v, want ErrAccumulatorProofLen", err)
	}
}
