package changerequest

import (
	"time"

	"github.com/google/uuid"
)

const (
	TopicRequestApprovedV1 = "changes.request.approved.v1"
	EventVersionV1         = 1
)

// RequestApprovedEvent is published when a request transitions into the
// terminal Approved phase. Downstream consumers (meeting scheduling) receive
// it fire-and-forget; their failure never fails the approval itself.
type RequestApprovedEvent struct {
	EventID           uuid.UUID `json:"event_id"`
	EventVersion      int       `json:"event_version"`
	RequestID         uuid.UUID `json:"request_id"`
	Title             string    `json:"title"`
	ProjectID         string    `json:"project_id"`
	RequesterID       string    `json:"requester_id"`
	RequiredApprovers []string  `json:"required_approvers"`
	ApprovedBy        string    `json:"approved_by"`
	ApprovedAt        time.Time `json:"approved_at"`
}

// NewRequestApprovedEvent captures the approved request's participant set
// for the scheduling consumer.
func NewRequestApprovedEvent(cr ChangeRequest, actorID string, at time.Time) *RequestApprovedEvent {
	return &RequestApprovedEvent{
		EventID:           uuid.New(),
		EventVersion:      EventVersionV1,
		RequestID:         cr.ID(),
		Title:             cr.Title(),
		ProjectID:         cr.ProjectID(),
		RequesterID:       cr.RequesterID(),
		RequiredApprovers: cr.RequiredApprovers(),
		ApprovedBy:        actorID,
		ApprovedAt:        at.UTC(),
	}
}
