package replay

import "errors"

// ErrSnapshotMismatch is returned by ProjectionBuilder when a caller's
// cached snapshot state does not re-hash to the chain's recorded
// anchored_state_root at that seq; the builder falls back to a full
// replay rather than trusting the stale cache.
var ErrSnapshotMismatch = errors.New("replay: cached snapshot state does not match anchored_state_root")
