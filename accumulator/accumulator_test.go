package accumulator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func leafHash(b byte) []byte {
	h := make([]byte, 32)
	for i := range h {
		h[i] = b
	}
	return h
}

func TestAddAssignsDenseMMRIndicesSkippingInteriorNodes(t *testing.T) {
	a := New()
	var indices []uint64
	for b := byte(1); b <= 4; b++ {
		i, err := a.Add(leafHash(b))
		require.NoError(t, err)
		indices = append(indices, i)
	}
	require.Equal(t, []uint64{0, 1, 3, 4}, indices)
	require.Equal(t, uint64(7), a.Size())
	require.Equal(t, uint64(4), a.LeafCount())
}

func TestProveAndVerifySingleMountain(t *testing.T) {
	a := New()
	var indices []uint64
	for b := byte(1); b <= 4; b++ {
		i, err := a.Add(leafHash(b))
		require.NoError(t, err)
		indices = append(indices, i)
	}

	root, err := a.store.Get(6)
	require.NoError(t, err)

	for leaf, idx := range indices {
		proof, err := a.Prove(idx)
		require.NoError(t, err)
		require.Equal(t, root, proof.PeakHash)
		require.True(t, Verify(leafHash(byte(leaf+1)), proof))
	}
}

func TestVerifyFailsOnTamperedLeaf(t *testing.T) {
	a := New()
	idx, err := a.Add(leafHash(1))
	require.NoError(t, err)
	a.Add(leafHash(2))
	a.Add(leafHash(3))
	a.Add(leafHash(4))

	proof, err := a.Prove(idx)
	require.NoError(t, err)
	require.False(t, Verify(leafHash(9), proof))
}

func TestProveRespectsDistinctMountains(t *testing.T) {
	a := New()
	i0, err := a.Add(leafHash(1))
	require.NoError(t, err)
	a.Add(leafHash(2))
	i2, err := a.Add(leafHash(3))
	require.NoError(t, err)

	require.Equal(t, uint64(4), a.Size())

	proof0, err := a.Prove(i0)
	require.NoError(t, err)
	require.Len(t, proof0.Path, 1)

	proof2, err := a.Prove(i2)
	require.NoError(t, err)
	require.Empty(t, proof2.Path)
	require.Equal(t, leafHash(3), proof2.PeakHash)
	require.True(t, Verify(leafHash(3), proof2))

	require.NotEqual(t, proof0.PeakHash, proof2.PeakHash)
}

func TestProveUnknownLeafIsError(t *testing.T) {
	a := New()
	_, err := a.Add(leafHash(1))
	require.NoError(t, err)

	_, err = a.Prove(99)
	require.ErrorIs(t, err, ErrUnknownLeaf)
}

func TestProveConsistencyAndVerify(t *testing.T) {
	a := New()
	for b := byte(1); b <= 4; b++ {
		_, err := a.Add(leafHash(b))
		require.NoError(t, err)
	}
	fromSize := a.Size()
	fromPeaks, err := a.PeakHashes()
	require.NoError(t, err)

	for b := byte(5); b <= 11; b++ {
		_, err := a.Add(leafHash(b))
		require.NoError(t, err)
	}

	proof, err := a.ProveConsistency(fromSize)
	require.NoError(t, err)
	require.Equal(t, fromSize, proof.FromSize)
	require.Equal(t, fromPeaks, proof.FromPeaks)

	currentPeaks, err := a.PeakHashes()
	require.NoError(t, err)

	ok, err := VerifyConsistency(proof, currentPeaks)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyConsistencyFailsAgainstWrongPeaks(t *testing.T) {
	a := New()
	for b := byte(1); b <= 4; b++ {
		_, err := a.Add(leafHash(b))
		require.NoError(t, err)
	}
	fromSize := a.Size()

	for b := byte(5); b <= 11; b++ {
		_, err := a.Add(leafHash(b))
		require.NoError(t, err)
	}

	proof, err := a.ProveConsistency(fromSize)
	require.NoError(t, err)

	ok, err := VerifyConsistency(proof, [][]byte{leafHash(99)})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestProveConsistencyRejectsUnknownSize(t *testing.T) {
	a := New()
	for b := byte(1); b <= 4; b++ {
		_, err := a.Add(leafHash(b))
		require.NoError(t, err)
	}

	_, err := a.ProveConsistency(0)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = a.ProveConsistency(a.Size() + 1)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = a.ProveConsistency(13)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestConcurrentAddIsSafe(t *testing.T) {
	a := New()
	done := make(chan struct{})
	for i := 0; i < 16; i++ {
		go func(n byte) {
			_, err := a.Add(leafHash(n))
			require.NoError(t, err)
			done <- struct{}{}
		}(byte(i))
	}
	for i := 0; i < 16; i++ {
		<-done
	}
	require.Equal(t, uint64(16), a.LeafCount())
}
