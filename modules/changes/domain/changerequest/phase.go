package changerequest

// Phase is the workflow stage of a change request. The vocabulary splits
// into two sequential sub-workflows: validation (Draft through Validation
// Approved/Rejected) and approval (Planned through Approved/Rejected).
type Phase string

const (
	PhaseDraft              Phase = "Draft"
	PhaseValidationPending  Phase = "Validation Pending"
	PhaseValidationApproved Phase = "Validation Approved"
	PhaseValidationRejected Phase = "Validation Rejected"
	PhasePlanned            Phase = "Planned"
	PhaseInProgress         Phase = "In-Progress"
	PhaseInDiscussion       Phase = "In-Discussion"
	PhaseApproved           Phase = "Approved"
	PhaseRejected           Phase = "Rejected"
)

// Status is the outcome of one sub-workflow. validationStatus and
// approvalStatus each take one of these values independently.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Track identifies which status field a transition sets.
type Track string

const (
	TrackValidation Track = "validationStatus"
	TrackApproval   Track = "approvalStatus"
)

// TransitionResult is the outcome of applying an action to a phase: the new
// phase plus the status field it sets and the value it sets it to.
type TransitionResult struct {
	Phase  Phase
	Track  Track
	Status Status
}

// Transition computes the phase transition for (current, action). It is pure
// logic with no I/O; callers persist the result. Any pair outside the
// transition table fails with ErrInvalidTransition, which includes every
// terminal phase as input.
func Transition(current Phase, action Action) (TransitionResult, error) {
	switch current {
	case PhaseValidationPending:
		switch action {
		case ActionApprove:
			return TransitionResult{Phase: PhaseValidationApproved, Track: TrackValidation, Status: StatusApproved}, nil
		case ActionReject:
			return TransitionResult{Phase: PhaseValidationRejected, Track: TrackValidation, Status: StatusRejected}, nil
		}
	case PhaseInProgress, PhaseInDiscussion:
		switch action {
		case ActionApprove:
			return TransitionResult{Phase: PhaseApproved, Track: TrackApproval, Status: StatusApproved}, nil
		case ActionReject:
			return TransitionResult{Phase: PhaseRejected, Track: TrackApproval, Status: StatusRejected}, nil
		}
	}
	return TransitionResult{}, ErrInvalidTransition
}

// phaseRank fixes the total order phases may advance through on the board.
// Draft carries no rank: a draft leaves via Submit, never a board move.
// Rejection phases carry no rank either: once a request is rejected on
// either track it cannot be moved at all.
var phaseRank = map[Phase]int{
	PhaseValidationPending:  1,
	PhaseValidationApproved: 2,
	PhasePlanned:            3,
	PhaseInProgress:         4,
	PhaseInDiscussion:       5,
	PhaseApproved:           6,
}

// Rank returns the position of p in the forward order and whether p is
// orderable at all.
func Rank(p Phase) (int, bool) {
	r, ok := phaseRank[p]
	return r, ok
}

// ValidatePhaseMove enforces the forward-only rule for direct phase
// assignment. Moves involving an unordered (rejected) phase fail with
// ErrInvalidTransition; backward or in-place moves fail with
// ErrPhaseRegression. Stale board state replayed by a client therefore can
// never drag a request backwards.
func ValidatePhaseMove(current, target Phase) error {
	from, ok := Rank(current)
	if !ok {
		return ErrInvalidTransition
	}
	to, ok := Rank(target)
	if !ok {
		return ErrInvalidTransition
	}
	if to <= from {
		return ErrPhaseRegression
	}
	return nil
}

// KnownPhase reports whether p belongs to the closed phase enumeration.
func KnownPhase(p Phase) bool {
	switch p {
	case PhaseDraft, PhaseValidationPending, PhaseValidationApproved, PhaseValidationRejected,
		PhasePlanned, PhaseInProgress, PhaseInDiscussion, PhaseApproved, PhaseRejected:
		return true
	}
	return false
}

// Terminal reports whether the request can no longer transition: the
// approval track has an outcome, or validation was rejected.
func Terminal(p Phase) bool {
	switch p {
	case PhaseApproved, PhaseRejected, PhaseValidationRejected:
		return true
	}
	return false
}
