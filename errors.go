// Package meshpart implements a distributed mesh-partitioning and
// mesh-generation subsystem: a tiled mesh generator, a point-merge utility,
// and a collective parallel partitioner that redistributes mesh elements
// across ranks.
package meshpart

import "errors"

// Sentinel errors for the meshpart library.
//
// These provide type-safe error checking via errors.Is(). Call sites wrap
// them with context using fmt.Errorf("%s: %w", msg, err) rather than
// constructing new error values, so a caller can always recover the kind.

var (
	// ErrInvalidPattern is returned when a tile pattern violates its
	// indexing invariants (mismatched point/edge lengths, out-of-range
	// quad or edge indices).
	ErrInvalidPattern = errors.New("invalid tile pattern")

	// ErrOptionsTypeMismatch is returned when an option is present but has
	// the wrong arity or type.
	ErrOptionsTypeMismatch = errors.New("option has wrong type or arity")

	// ErrMixedDestinationSpecification is returned by map_chunks when some
	// chunks are pinned to a destination domain and others are free to
	// move; partial pinning is not supported.
	ErrMixedDestinationSpecification = errors.New("mixed chunk destination specification")

	// ErrTargetMismatch indicates the unique pinned-domain count differed
	// from the requested target domain count. Non-fatal: surfaced as a
	// Diagnostic, never returned as an error.
	ErrTargetMismatch = errors.New("pinned domain count does not match target")

	// ErrUnknownCoordinateSystem indicates a coordinate set lacked any
	// recognized axis field names. Non-fatal: the coordinate set is
	// skipped and surfaced as a Diagnostic, never returned as an error.
	ErrUnknownCoordinateSystem = errors.New("unrecognized coordinate system")

	// ErrCommunicationFailure indicates the underlying Communicator
	// reported an error during a collective or point-to-point operation.
	ErrCommunicationFailure = errors.New("communication failure")
)

// Diagnostic is a non-fatal condition surfaced to the caller as a value
// rather than logged, per the library's no-logging-dependency ambient
// stack (see SPEC_FULL.md).
type Diagnostic struct {
	Err  error // one of ErrTargetMismatch, ErrUnknownCoordinateSystem
	Rank int   // -1 if not rank-specific
	Msg  string
}

func (d Diagnostic) String() string {
	return d.Msg
}
