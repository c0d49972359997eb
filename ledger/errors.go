package ledger

import "errors"

// Sentinel errors, one var block per package per the teacher's convention
// (objectstore/errors.go).
var (
	// ErrSequenceRace is returned when another writer advanced a
	// worldline's head between this writer reading it and committing its
	// own receipt. Callers (and Append* internally, via cenkalti/backoff)
	// should retry against the new head.
	ErrSequenceRace = errors.New("ledger: sequence race, head advanced concurrently")

	// ErrPairingBroken is returned when an outcome does not match the
	// commitment it claims to pair with. AppendCommitment and the
	// administrative appends also surface it transiently when another
	// writer is already mid-pairing on the same worldline; callers see
	// that case folded into ErrRetriesExhausted once the retry budget
	// runs out, since it is contention rather than a protocol violation.
	ErrPairingBroken = errors.New("ledger: outcome does not pair with current head commitment")

	// ErrNotFound is returned by the read-path lookups for a worldline,
	// hash or seq with no matching receipt.
	ErrNotFound = errors.New("ledger: receipt not found")

	// ErrRetriesExhausted is returned when bounded retries (after a
	// SequenceRace, or while another writer is mid-pairing on the same
	// worldline) are exhausted without a successful append.
	ErrRetriesExhausted = errors.New("ledger: exhausted retries under sustained sequence race")
)
