package replay

import "errors"

// The integrity/patch error taxonomy
var (
	// ErrMissingCheckpoint is returned when replay needs a pre-conversation
	// checkpoint that was never written (the conversation's earliest
	// relevant entry is not a create, yet no checkpoint exists).
	ErrMissingCheckpoint = errors.New("missing checkpoint")

	// ErrHashMismatchExternal is returned when the file's current on-disk
	// hash disagrees with the most recently recorded hash_after anywhere
	// in the history store: something outside the engine altered it.
	ErrHashMismatchExternal = errors.New("hash mismatch: external modification")

	// ErrInternalHashDrift is returned when the replay loop's own
	// bookkeeping disagrees with the hash it expects to see -- a
	// self-consistency check that should never fire in correct code.
	ErrInternalHashDrift = errors.New("internal hash drift")
)
