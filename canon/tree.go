package canon

import (
	"errors"
	"sort"

	"github.com/mapleaiorg/wll/crypto"
	"github.com/mapleaiorg/wll/model"
)

// Mode codes for tree entries, per spec.md §6.
const (
	ModeRegular    uint16 = 0o100644
	ModeExecutable uint16 = 0o100755
	ModeSymlink    uint16 = 0o120000
	ModeDirectory  uint16 = 0o040000
)

// TreeEntry is one record in a Tree object: a mode, a name and the object it
// names.
type TreeEntry struct {
	Mode   uint16
	Name   string
	Object model.ObjectId
}

// ErrTreeNotSorted is returned by DeserializeTree and by VerifyTreeSorted
// when entries are not in strict byte-lexicographic order by name.
var ErrTreeNotSorted = errors.New("canon: tree entries not sorted by name")

// SerializeTree encodes entries per spec.md §6:
// [count varint][for each: mode(u16 LE) || name_len(varint) || name_bytes || object_id(32B)].
// Entries MUST already be sorted by name; SerializeTree sorts a copy
// defensively so callers never accidentally hash an unsorted tree.
func SerializeTree(entries []TreeEntry) []byte {
	sorted := append([]TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	w := &Writer{}
	w.PutVarint(uint64(len(sorted)))
	for _, e := range sorted {
		w.PutU16LE(e.Mode)
		w.PutVarint(uint64(len(e.Name)))
		w.buf.WriteString(e.Name)
		w.PutFixed(e.Object[:])
	}
	return w.Bytes()
}

// DeserializeTree decodes a tree body produced by SerializeTree, rejecting
// input whose entries are not in sorted order (invariant: a tree object
// must be reproducible byte-for-byte from its own entries).
func DeserializeTree(data []byte) ([]TreeEntry, error) {
	r := NewReader(data)
	count, err := r.Varint()
	if err != nil {
		return nil, err
	}
	entries := make([]TreeEntry, 0, count)
	for i := uint64(0); i < count; i++ {
		mode, err := r.U16LE()
		if err != nil {
			return nil, err
		}
		nameLen, err := r.Varint()
		if err != nil {
			return nil, err
		}
		nameBytes, err := r.Fixed(int(nameLen))
		if err != nil {
			return nil, err
		}
		name := string(nameBytes)
		objBytes, err := r.Fixed(len(model.ObjectId{}))
		if err != nil {
			return nil, err
		}
		var obj model.ObjectId
		copy(obj[:], objBytes)
		entries = append(entries, TreeEntry{Mode: mode, Name: name, Object: obj})
	}
	if err := VerifyTreeSorted(entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// VerifyTreeSorted reports whether entries are in strict byte-lexicographic
// order by name, with no duplicate names.
func VerifyTreeSorted(entries []TreeEntry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Name >= entries[i].Name {
			return ErrTreeNotSorted
		}
	}
	return nil
}

// HashTree computes the TREE-domain object id for a (sorted) entry list.
func HashTree(entries []TreeEntry) model.ObjectId {
	body := SerializeTree(entries)
	return model.ObjectIdFromDigest(crypto.HashWithDomain(crypto.DomainTree, body))
}
