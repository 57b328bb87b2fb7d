package changerequest

import (
	"context"

	"github.com/google/uuid"
)

// FindParams filters list reads. Zero values mean "no filter".
type FindParams struct {
	ProjectID string
	Phase     Phase
	// ParticipantID matches the requester or any required approver.
	ParticipantID string
	Limit         int
	Offset        int
}

// Repository is the narrow contract the engine needs over a keyed record
// store. Mutations go through compare-and-swap so concurrent writers are
// detected instead of silently lost; comment appends must be atomic even if
// the backing store only supports whole-record replace.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (ChangeRequest, error)
	Create(ctx context.Context, cr ChangeRequest) (ChangeRequest, error)
	// CompareAndSwap persists cr only if the stored version still equals
	// expectedVersion. Returns ErrVersionConflict when another write landed
	// in between, ErrNotFound when the record is gone.
	CompareAndSwap(ctx context.Context, id uuid.UUID, expectedVersion int64, cr ChangeRequest) (ChangeRequest, error)
	AppendComment(ctx context.Context, id uuid.UUID, comment Comment) (Comment, error)
	List(ctx context.Context, params *FindParams) ([]ChangeRequest, error)
}
