package canon

import (
	"sort"

	"github.com/mapleaiorg/wll/crypto"
)

// SerializeState encodes a replay state map deterministically:
// [count varint][for each sorted key: key(string) || value(bytes)]. The
// replay engine's state is exactly this map, so two implementations that
// apply the same outcomes in the same order serialize to the same bytes
// and therefore hash to the same anchored_state_root.
func SerializeState(state map[string][]byte) []byte {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := &Writer{}
	w.PutVarint(uint64(len(keys)))
	for _, k := range keys {
		w.PutString(k)
		w.PutBytes(state[k])
	}
	return w.Bytes()
}

// HashState computes anchored_state_root = BLAKE3("SNAPSHOT" ||
// canonical_serialize(state)), per spec.md §4.7's snapshot-anchoring check.
func HashState(state map[string][]byte) crypto.Digest {
	return crypto.HashWithDomain(crypto.DomainSnapshot, SerializeState(state))
}
