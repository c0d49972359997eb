package mmr

import "testing"

// testDb is a minimal map-backed NodeAppender used by this package's own
// tests; the accumulator package wires a concurrency-safe equivalent
// against a real worldline.
type testDb struct {
	t     *testing.T
	store map[uint64][]byte
	next  uint64
}

func NewTestDb(t *testing.T) *testDb {
	return &testDb{t: t, store: make(map[uint64][]byte)}
}

func (db *testDb) Append(value []byte) (uint64, error) {
	db.store[db.next] = value
	db.next += 1
	return db.next, nil
}

func (db *testDb) Get(i uint64) ([]byte, error) {
	if value, ok := db.store[i]; ok {
		return value, nil
	}
	return nil, ErrNotFound
}
