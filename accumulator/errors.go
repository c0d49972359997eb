package accumulator

import "errors"

// ErrNodeNotFound is returned by the backing node store when asked for a
// position that has never been appended.
var ErrNodeNotFound = errors.New("accumulator: node position not found")

// ErrUnknownLeaf is returned when a caller asks for a proof at a node
// index that is not a position in the current accumulator.
var ErrUnknownLeaf = errors.New("accumulator: leaf hash not present")

// ErrInvalidSize is returned when a ProveConsistency fromSize is not a
// size the accumulator ever actually held (i.e. not a value Size would
// have reported right after some Add).
var ErrInvalidSize = errors.New("accumulator: not a valid prior mmr size")
