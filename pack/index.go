package pack

import (
	"bytes"
	"sort"

	"github.com/mapleaiorg/wll/canon"
	"github.com/mapleaiorg/wll/crypto"
	"github.com/mapleaiorg/wll/model"
)

// IndexEntry pairs an object id with its byte offset into a packfile's
// entry region (the offset of its type(u8) field, immediately after the
// magic/version/count header).
type IndexEntry struct {
	ID     model.ObjectId
	Offset uint64
}

// BuildIndex serializes entries into the 256-entry fanout layout of
// spec.md §6: a fanout table of cumulative counts keyed by an id's first
// byte, followed by the sorted ids and their matching offsets. Entries
// are sorted by ID as a side effect of building the index, matching the
// sorted-ids invariant the fanout table depends on for binary search.
func BuildIndex(entries []IndexEntry) []byte {
	sorted := make([]IndexEntry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ID.Compare(sorted[j].ID) < 0
	})

	var fanout [256]uint32
	for _, e := range sorted {
		fanout[e.ID[0]]++
	}
	for i := 1; i < 256; i++ {
		fanout[i] += fanout[i-1]
	}

	var w canon.Writer
	for _, count := range fanout {
		w.PutU32LE(count)
	}
	for _, e := range sorted {
		w.PutFixed(e.ID[:])
	}
	for _, e := range sorted {
		w.PutU64LE(e.Offset)
	}
	return w.Bytes()
}

// ParseIndex is the inverse of BuildIndex.
func ParseIndex(raw []byte) ([]IndexEntry, error) {
	r := canon.NewReader(raw)

	var fanout [256]uint32
	for i := range fanout {
		v, err := r.U32LE()
		if err != nil {
			return nil, err
		}
		fanout[i] = v
	}

	n := int(fanout[255])
	ids := make([]model.ObjectId, n)
	for i := 0; i < n; i++ {
		b, err := r.Fixed(crypto.Size)
		if err != nil {
			return nil, err
		}
		copy(ids[i][:], b)
	}

	entries := make([]IndexEntry, n)
	for i := 0; i < n; i++ {
		off, err := r.U64LE()
		if err != nil {
			return nil, err
		}
		entries[i] = IndexEntry{ID: ids[i], Offset: off}
	}
	return entries, nil
}

// Lookup binary-searches a parsed, sorted index (as produced by
// BuildIndex/ParseIndex) for id's offset.
func Lookup(entries []IndexEntry, id model.ObjectId) (uint64, error) {
	if len(entries) == 0 {
		return 0, ErrEmptyIndex
	}
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].ID.Compare(id) >= 0
	})
	if i < len(entries) && bytes.Equal(entries[i].ID[:], id[:]) {
		return entries[i].Offset, nil
	}
	return 0, ErrNotFound
}
