package services

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/pkg/composables"
	"github.com/cabflow/cabflow/pkg/eventbus"
)

// ChangeRequestService drives the request lifecycle: creation, the two
// approval decisions, board moves and the comment log. Every mutation is a
// load-check-swap cycle against the repository's compare-and-swap contract,
// retried a bounded number of times before surfacing ErrConflict.
type ChangeRequestService struct {
	repo      changerequest.Repository
	gate      *ApprovalGate
	publisher eventbus.EventBus
	retries   int
	now       func() time.Time
}

func NewChangeRequestService(
	repo changerequest.Repository,
	gate *ApprovalGate,
	publisher eventbus.EventBus,
	retries int,
) *ChangeRequestService {
	return &ChangeRequestService{
		repo:      repo,
		gate:      gate,
		publisher: publisher,
		retries:   retries,
		now:       time.Now,
	}
}

type CreateChangeRequestParams struct {
	Title             string
	Description       string
	Reason            string
	Impact            string
	AdditionalInfo    string
	ProjectID         string
	RequiredApprovers []string
	IssueIDs          []string
	ChangeWindowStart *time.Time
	ChangeWindowEnd   *time.Time
	Draft             bool
}

// Create validates and stores a new request. The requester is the acting
// user; server-assigned fields (ID, timestamps, version, statuses) ignore
// anything the caller sent.
func (s *ChangeRequestService) Create(ctx context.Context, params CreateChangeRequestParams) (changerequest.ChangeRequest, error) {
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}
	if strings.TrimSpace(params.Title) == "" {
		return changerequest.ChangeRequest{}, errors.Wrap(changerequest.ErrInvalidInput, "title is required")
	}
	if strings.TrimSpace(params.ProjectID) == "" {
		return changerequest.ChangeRequest{}, errors.Wrap(changerequest.ErrInvalidInput, "project_id is required")
	}
	if len(params.RequiredApprovers) == 0 {
		return changerequest.ChangeRequest{}, errors.Wrap(changerequest.ErrInvalidInput, "required_approvers must not be empty")
	}
	if params.ChangeWindowStart != nil && params.ChangeWindowEnd != nil &&
		params.ChangeWindowEnd.Before(*params.ChangeWindowStart) {
		return changerequest.ChangeRequest{}, errors.Wrap(changerequest.ErrInvalidInput, "change window ends before it starts")
	}

	opts := []changerequest.Option{
		changerequest.WithDescription(params.Description),
		changerequest.WithReason(params.Reason),
		changerequest.WithImpact(params.Impact),
		changerequest.WithAdditionalInfo(params.AdditionalInfo),
		changerequest.WithRequiredApprovers(params.RequiredApprovers),
		changerequest.WithIssueIDs(params.IssueIDs),
	}
	if params.ChangeWindowStart != nil && params.ChangeWindowEnd != nil {
		opts = append(opts, changerequest.WithChangeWindow(*params.ChangeWindowStart, *params.ChangeWindowEnd))
	}
	if params.Draft {
		opts = append(opts, changerequest.AsDraft())
	}

	cr := changerequest.New(params.Title, params.ProjectID, actorID, s.now(), opts...)
	return s.repo.Create(ctx, cr)
}

func (s *ChangeRequestService) GetByID(ctx context.Context, id uuid.UUID) (changerequest.ChangeRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ChangeRequestService) List(ctx context.Context, params *changerequest.FindParams) ([]changerequest.ChangeRequest, error) {
	return s.repo.List(ctx, params)
}

// Approve applies the approve action to the request's current sub-workflow.
// expectedPhase guards against deciding on a stale view: if the stored phase
// differs the call fails with ErrStaleState and nothing is written. An empty
// expectedPhase asserts no view and skips the guard.
func (s *ChangeRequestService) Approve(ctx context.Context, id uuid.UUID, expectedPhase changerequest.Phase) (changerequest.ChangeRequest, error) {
	return s.decide(ctx, id, expectedPhase, changerequest.ActionApprove)
}

// Reject applies the reject action. Same stale-view guard as Approve.
func (s *ChangeRequestService) Reject(ctx context.Context, id uuid.UUID, expectedPhase changerequest.Phase) (changerequest.ChangeRequest, error) {
	return s.decide(ctx, id, expectedPhase, changerequest.ActionReject)
}

func (s *ChangeRequestService) decide(ctx context.Context, id uuid.UUID, expectedPhase changerequest.Phase, action changerequest.Action) (changerequest.ChangeRequest, error) {
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}

	var updated changerequest.ChangeRequest
	err = s.withVersionRetry(ctx, func() error {
		return s.inTx(ctx, func(ctx context.Context) error {
			cr, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if err := s.gate.CanTransition(ctx, actorID, cr); err != nil {
				return err
			}
			if expectedPhase != "" && cr.Phase() != expectedPhase {
				return changerequest.ErrStaleState
			}
			res, err := changerequest.Transition(cr.Phase(), action)
			if err != nil {
				return err
			}
			updated, err = s.repo.CompareAndSwap(ctx, id, cr.Version(), cr.WithTransition(res, s.now()))
			return err
		})
	})
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}

	if updated.Phase() == changerequest.PhaseApproved {
		s.publisher.Publish(changerequest.NewRequestApprovedEvent(updated, actorID, updated.UpdatedAt()))
	}
	return updated, nil
}

// SetPhase moves the request directly to a target phase, forward only. Used
// by the board; status tracks are left alone except for a drop into Approved,
// which counts as the final approval.
func (s *ChangeRequestService) SetPhase(ctx context.Context, id uuid.UUID, target changerequest.Phase) (changerequest.ChangeRequest, error) {
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}
	if !changerequest.KnownPhase(target) {
		return changerequest.ChangeRequest{}, errors.Wrap(changerequest.ErrInvalidInput, "unknown phase "+string(target))
	}

	var updated changerequest.ChangeRequest
	err = s.withVersionRetry(ctx, func() error {
		return s.inTx(ctx, func(ctx context.Context) error {
			cr, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if err := s.gate.CanTransition(ctx, actorID, cr); err != nil {
				return err
			}
			if changerequest.Terminal(cr.Phase()) {
				return changerequest.ErrInvalidTransition
			}
			if err := changerequest.ValidatePhaseMove(cr.Phase(), target); err != nil {
				return err
			}
			updated, err = s.repo.CompareAndSwap(ctx, id, cr.Version(), cr.MovedTo(target, s.now()))
			return err
		})
	})
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}

	if updated.Phase() == changerequest.PhaseApproved {
		s.publisher.Publish(changerequest.NewRequestApprovedEvent(updated, actorID, updated.UpdatedAt()))
	}
	return updated, nil
}

// Submit moves the requester's own draft into the validation queue. Only
// the requester may submit, and only from Draft.
func (s *ChangeRequestService) Submit(ctx context.Context, id uuid.UUID) (changerequest.ChangeRequest, error) {
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}

	var updated changerequest.ChangeRequest
	err = s.withVersionRetry(ctx, func() error {
		return s.inTx(ctx, func(ctx context.Context) error {
			cr, err := s.repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if cr.RequesterID() != actorID {
				return changerequest.ErrForbidden
			}
			if cr.Phase() != changerequest.PhaseDraft {
				return changerequest.ErrInvalidTransition
			}
			updated, err = s.repo.CompareAndSwap(ctx, id, cr.Version(), cr.Submitted(s.now()))
			return err
		})
	})
	if err != nil {
		return changerequest.ChangeRequest{}, err
	}
	return updated, nil
}

// AddComment appends to the request's discussion log. Comments are allowed
// in every phase, terminal ones included.
func (s *ChangeRequestService) AddComment(ctx context.Context, id uuid.UUID, body string) (changerequest.Comment, error) {
	actorID, err := composables.UseActorID(ctx)
	if err != nil {
		return changerequest.Comment{}, err
	}
	var comment changerequest.Comment
	err = s.inTx(ctx, func(ctx context.Context) error {
		cr, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := s.gate.CanComment(ctx, actorID, cr); err != nil {
			return err
		}
		c, err := changerequest.NewComment(actorID, body, s.now())
		if err != nil {
			return err
		}
		comment, err = s.repo.AppendComment(ctx, id, c)
		return err
	})
	if err != nil {
		return changerequest.Comment{}, err
	}
	return comment, nil
}

// inTx gives each load-check-swap cycle a single database snapshot. Runs
// without a pool on the context (the in-memory store) execute fn directly.
func (s *ChangeRequestService) inTx(ctx context.Context, fn func(context.Context) error) error {
	if _, err := composables.UsePool(ctx); err != nil {
		return fn(ctx)
	}
	return composables.InTx(ctx, fn)
}

// withVersionRetry reruns the load-check-swap cycle while the store reports
// version conflicts, up to the configured budget. The reload inside fn picks
// up the winning writer's state, so a conflicting but still-legal mutation
// converges instead of failing.
func (s *ChangeRequestService) withVersionRetry(ctx context.Context, fn func() error) error {
	attempts := s.retries + 1
	for i := 0; i < attempts; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, changerequest.ErrVersionConflict) {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return changerequest.ErrConflict
}
