package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
)

// MemoryChangeRequestRepository keeps records in process memory behind a
// mutex. It honors the same compare-and-swap contract as the Postgres
// repository, so the lifecycle service behaves identically against both;
// unit tests and dev mode run on it.
type MemoryChangeRequestRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]changerequest.ChangeRequest
}

func NewMemoryChangeRequestRepository() changerequest.Repository {
	return &MemoryChangeRequestRepository{
		records: map[uuid.UUID]changerequest.ChangeRequest{},
	}
}

func (r *MemoryChangeRequestRepository) GetByID(_ context.Context, id uuid.UUID) (changerequest.ChangeRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cr, ok := r.records[id]
	if !ok {
		return changerequest.ChangeRequest{}, changerequest.ErrNotFound
	}
	return cr, nil
}

func (r *MemoryChangeRequestRepository) Create(_ context.Context, cr changerequest.ChangeRequest) (changerequest.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := withVersion(cr, 1)
	r.records[cr.ID()] = stored
	return stored, nil
}

func (r *MemoryChangeRequestRepository) CompareAndSwap(_ context.Context, id uuid.UUID, expectedVersion int64, cr changerequest.ChangeRequest) (changerequest.ChangeRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[id]
	if !ok {
		return changerequest.ChangeRequest{}, changerequest.ErrNotFound
	}
	if current.Version() != expectedVersion {
		return changerequest.ChangeRequest{}, changerequest.ErrVersionConflict
	}
	stored := withVersion(cr, expectedVersion+1)
	r.records[id] = stored
	return stored, nil
}

// AppendComment appends under the repository lock, so concurrent commenters
// never lose each other's entries even though the record is replaced whole.
// Comments live outside the CAS'd fields, so the version stays put and a
// concurrent decision does not get retried by a comment.
func (r *MemoryChangeRequestRepository) AppendComment(_ context.Context, id uuid.UUID, comment changerequest.Comment) (changerequest.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[id]
	if !ok {
		return changerequest.Comment{}, changerequest.ErrNotFound
	}
	comments := append(append([]changerequest.Comment{}, current.Comments()...), comment)
	r.records[id] = changerequest.Hydrate(
		current.ID(),
		current.Title(), current.Description(), current.Reason(), current.Impact(), current.AdditionalInfo(),
		current.ProjectID(), current.RequesterID(),
		current.RequiredApprovers(), current.IssueIDs(),
		current.ChangeWindowStart(), current.ChangeWindowEnd(),
		current.ValidationStatus(), current.ApprovalStatus(),
		current.Phase(),
		comments,
		current.Version(),
		current.CreatedAt(), comment.CreatedAt(),
	)
	return comment, nil
}

func (r *MemoryChangeRequestRepository) List(_ context.Context, params *changerequest.FindParams) ([]changerequest.ChangeRequest, error) {
	if params == nil {
		params = &changerequest.FindParams{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]changerequest.ChangeRequest, 0, len(r.records))
	for _, cr := range r.records {
		if params.ProjectID != "" && cr.ProjectID() != params.ProjectID {
			continue
		}
		if params.Phase != "" && cr.Phase() != params.Phase {
			continue
		}
		if params.ParticipantID != "" && !cr.IsParticipant(params.ParticipantID) {
			continue
		}
		out = append(out, cr)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt().Equal(out[j].CreatedAt()) {
			return out[i].ID().String() < out[j].ID().String()
		}
		return out[i].CreatedAt().Before(out[j].CreatedAt())
	})

	if params.Offset > 0 {
		if params.Offset >= len(out) {
			return []changerequest.ChangeRequest{}, nil
		}
		out = out[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(out) {
		out = out[:params.Limit]
	}
	return out, nil
}

func withVersion(cr changerequest.ChangeRequest, version int64) changerequest.ChangeRequest {
	return changerequest.Hydrate(
		cr.ID(),
		cr.Title(), cr.Description(), cr.Reason(), cr.Impact(), cr.AdditionalInfo(),
		cr.ProjectID(), cr.RequesterID(),
		cr.RequiredApprovers(), cr.IssueIDs(),
		cr.ChangeWindowStart(), cr.ChangeWindowEnd(),
		cr.ValidationStatus(), cr.ApprovalStatus(),
		cr.Phase(),
		cr.Comments(),
		version,
		cr.CreatedAt(), cr.UpdatedAt(),
	)
}
