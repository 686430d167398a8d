package layer

import "errors"

// Error kinds surfaced to callers. The sentinel itself is what callers
// should errors.Is-compare against (the wrapped message carries the
// offending name/value for diagnostics).
var (
	// ErrBadIndxValu: an index byte string longer than 256 bytes was
	// supplied to PropSet.
	ErrBadIndxValu = errors.New("layer: index bytes exceed 256-byte limit")

	// ErrNoSuchStorOp: an unrecognized tag appeared in a Stor batch.
	ErrNoSuchStorOp = errors.New("layer: no such storage operation")

	// ErrNoSuchName: an unknown sub-database name or index-operator name
	// was used in a lift.
	ErrNoSuchName = errors.New("layer: no such name")

	// ErrBadThread: commit/abort/mutation was invoked from a goroutine
	// other than the one that created the Xact.
	ErrBadThread = errors.New("layer: transaction used from wrong goroutine")

	// ErrXactClosed: an operation was attempted on an Xact that already
	// committed or aborted.
	ErrXactClosed = errors.New("layer: transaction already closed")
)
