package scheduling

import (
	"context"

	"github.com/google/uuid"
)

// MeetingRequest asks the calendar collaborator to plan a review session
// for an approved change request. Attendees are opaque account IDs; the
// collaborator resolves them against its own directory.
type MeetingRequest struct {
	ChangeRequestID uuid.UUID
	Title           string
	ProjectID       string
	Attendees       []string
}

// Scheduler is the external meeting-creation collaborator. Calls are
// fire-and-forget from the engine's perspective: a scheduling failure is
// logged, never propagated into the approval path.
type Scheduler interface {
	ScheduleReview(ctx context.Context, req MeetingRequest) error
}
