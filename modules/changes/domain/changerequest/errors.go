package changerequest

import "errors"

var (
	// ErrNotFound is returned when no change request exists for the given ID.
	ErrNotFound = errors.New("change request not found")

	// ErrInvalidInput reports a create/update payload the caller must fix
	// before retrying.
	ErrInvalidInput = errors.New("invalid change request input")

	// ErrForbidden reports a permission denial. It deliberately carries no
	// hint about whether the record exists.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidTransition reports a (phase, action) pair outside the
	// transition table.
	ErrInvalidTransition = errors.New("invalid phase transition")

	// ErrPhaseRegression reports a direct phase assignment that would move
	// the request backwards in the forward order.
	ErrPhaseRegression = errors.New("illegal phase regression")

	// ErrStaleState reports that the caller acted on an outdated view of the
	// request; the stored phase differs from the expected one.
	ErrStaleState = errors.New("stale request state")

	// ErrVersionConflict is the store-level signal that another write landed
	// between load and compare-and-swap. Services retry it internally.
	ErrVersionConflict = errors.New("version conflict")

	// ErrConflict is surfaced after the internal retry budget for version
	// conflicts is exhausted; callers should reload and retry.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrEmptyComment reports a comment body that is empty after trimming.
	ErrEmptyComment = errors.New("empty comment")

	// ErrDependencyUnavailable reports a failed role or identity lookup; the
	// mutation is aborted with no partial write.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
)
