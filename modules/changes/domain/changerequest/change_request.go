package changerequest

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChangeRequest is the aggregate root of the approval workflow. It is a
// value type: mutators return an updated copy and the repository persists it
// with compare-and-swap, so a stale copy can never silently overwrite a
// newer one.
type ChangeRequest struct {
	id                uuid.UUID
	title             string
	description       string
	reason            string
	impact            string
	additionalInfo    string
	projectID         string
	requesterID       string
	requiredApprovers []string
	issueIDs          []string
	changeWindowStart *time.Time
	changeWindowEnd   *time.Time
	validationStatus  Status
	approvalStatus    Status
	phase             Phase
	comments          []Comment
	version           int64
	createdAt         time.Time
	updatedAt         time.Time
}

type Option func(*ChangeRequest)

func WithDescription(v string) Option {
	return func(cr *ChangeRequest) { cr.description = strings.TrimSpace(v) }
}

func WithReason(v string) Option {
	return func(cr *ChangeRequest) { cr.reason = strings.TrimSpace(v) }
}

func WithImpact(v string) Option {
	return func(cr *ChangeRequest) { cr.impact = strings.TrimSpace(v) }
}

func WithAdditionalInfo(v string) Option {
	return func(cr *ChangeRequest) { cr.additionalInfo = strings.TrimSpace(v) }
}

func WithRequiredApprovers(ids []string) Option {
	return func(cr *ChangeRequest) { cr.requiredApprovers = dedupe(ids) }
}

func WithIssueIDs(ids []string) Option {
	return func(cr *ChangeRequest) { cr.issueIDs = dedupe(ids) }
}

func WithChangeWindow(start, end time.Time) Option {
	return func(cr *ChangeRequest) {
		s, e := start.UTC(), end.UTC()
		cr.changeWindowStart = &s
		cr.changeWindowEnd = &e
	}
}

// AsDraft creates the request in the Draft phase instead of submitting it
// straight into Validation Pending.
func AsDraft() Option {
	return func(cr *ChangeRequest) { cr.phase = PhaseDraft }
}

// New builds a freshly submitted change request. Both status tracks start
// Pending; the phase is Validation Pending unless AsDraft is given.
func New(title, projectID, requesterID string, now time.Time, opts ...Option) ChangeRequest {
	cr := ChangeRequest{
		id:               uuid.New(),
		title:            strings.TrimSpace(title),
		projectID:        strings.TrimSpace(projectID),
		requesterID:      strings.TrimSpace(requesterID),
		validationStatus: StatusPending,
		approvalStatus:   StatusPending,
		phase:            PhaseValidationPending,
		createdAt:        now.UTC(),
		updatedAt:        now.UTC(),
	}
	for _, opt := range opts {
		opt(&cr)
	}
	return cr
}

// Hydrate rebuilds an aggregate from stored state.
func Hydrate(
	id uuid.UUID,
	title, description, reason, impact, additionalInfo string,
	projectID, requesterID string,
	requiredApprovers, issueIDs []string,
	changeWindowStart, changeWindowEnd *time.Time,
	validationStatus, approvalStatus Status,
	phase Phase,
	comments []Comment,
	version int64,
	createdAt, updatedAt time.Time,
) ChangeRequest {
	return ChangeRequest{
		id:                id,
		title:             title,
		description:       description,
		reason:            reason,
		impact:            impact,
		additionalInfo:    additionalInfo,
		projectID:         projectID,
		requesterID:       requesterID,
		requiredApprovers: requiredApprovers,
		issueIDs:          issueIDs,
		changeWindowStart: changeWindowStart,
		changeWindowEnd:   changeWindowEnd,
		validationStatus:  validationStatus,
		approvalStatus:    approvalStatus,
		phase:             phase,
		comments:          comments,
		version:           version,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (cr ChangeRequest) ID() uuid.UUID                { return cr.id }
func (cr ChangeRequest) Title() string                { return cr.title }
func (cr ChangeRequest) Description() string          { return cr.description }
func (cr ChangeRequest) Reason() string               { return cr.reason }
func (cr ChangeRequest) Impact() string               { return cr.impact }
func (cr ChangeRequest) AdditionalInfo() string       { return cr.additionalInfo }
func (cr ChangeRequest) ProjectID() string            { return cr.projectID }
func (cr ChangeRequest) RequesterID() string          { return cr.requesterID }
func (cr ChangeRequest) RequiredApprovers() []string  { return cr.requiredApprovers }
func (cr ChangeRequest) IssueIDs() []string           { return cr.issueIDs }
func (cr ChangeRequest) ChangeWindowStart() *time.Time { return cr.changeWindowStart }
func (cr ChangeRequest) ChangeWindowEnd() *time.Time  { return cr.changeWindowEnd }
func (cr ChangeRequest) ValidationStatus() Status     { return cr.validationStatus }
func (cr ChangeRequest) ApprovalStatus() Status       { return cr.approvalStatus }
func (cr ChangeRequest) Phase() Phase                 { return cr.phase }
func (cr ChangeRequest) Comments() []Comment          { return cr.comments }
func (cr ChangeRequest) Version() int64               { return cr.version }
func (cr ChangeRequest) CreatedAt() time.Time         { return cr.createdAt }
func (cr ChangeRequest) UpdatedAt() time.Time         { return cr.updatedAt }
func (cr ChangeRequest) IsZero() bool                 { return cr.id == uuid.Nil }

// IsRequiredApprover reports whether the user is on the required sign-off
// list. The transition rule itself only needs a single authorized actor;
// the list gates comment access and is tracked for display.
func (cr ChangeRequest) IsRequiredApprover(userID string) bool {
	for _, id := range cr.requiredApprovers {
		if id == userID {
			return true
		}
	}
	return false
}

// IsParticipant reports whether the user is the requester or a required
// approver.
func (cr ChangeRequest) IsParticipant(userID string) bool {
	return cr.requesterID == userID || cr.IsRequiredApprover(userID)
}

// WithTransition applies a computed transition result, setting the status
// field the transition's track names.
func (cr ChangeRequest) WithTransition(res TransitionResult, now time.Time) ChangeRequest {
	cr.phase = res.Phase
	switch res.Track {
	case TrackValidation:
		cr.validationStatus = res.Status
	case TrackApproval:
		cr.approvalStatus = res.Status
	}
	cr.updatedAt = now.UTC()
	return cr
}

// MovedTo places the request in the target phase. Callers validate the move
// first. A board move leaves the status tracks alone, with one exception:
// dropping into Approved is the final approval, so the approval track records
// it. Without that the record would sit in a terminal phase with a Pending
// approval status, a pair no transition can produce.
func (cr ChangeRequest) MovedTo(target Phase, now time.Time) ChangeRequest {
	cr.phase = target
	if target == PhaseApproved {
		cr.approvalStatus = StatusApproved
	}
	cr.updatedAt = now.UTC()
	return cr
}

// Submitted moves a draft into the validation queue.
func (cr ChangeRequest) Submitted(now time.Time) ChangeRequest {
	cr.phase = PhaseValidationPending
	cr.updatedAt = now.UTC()
	return cr
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
