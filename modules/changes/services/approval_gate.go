package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
	"github.com/cabflow/cabflow/modules/changes/domain/directory"
)

// ApprovalGate decides who may act on a change request. All decisions run
// against the live role lookup so revoked roles take effect immediately; a
// failed lookup aborts the action instead of guessing.
type ApprovalGate struct {
	roles directory.RoleLookup
}

func NewApprovalGate(roles directory.RoleLookup) *ApprovalGate {
	return &ApprovalGate{roles: roles}
}

// CanTransition allows approve, reject and direct phase moves for project
// admins and approvers only.
func (g *ApprovalGate) CanTransition(ctx context.Context, userID string, cr changerequest.ChangeRequest) error {
	role, err := g.roles.RoleOf(ctx, userID, cr.ProjectID())
	if err != nil {
		return errors.Wrap(changerequest.ErrDependencyUnavailable, err.Error())
	}
	if !role.CanApprove() {
		return changerequest.ErrForbidden
	}
	return nil
}

// CanComment allows the requester, any required approver, and anyone holding
// a role in the project.
func (g *ApprovalGate) CanComment(ctx context.Context, userID string, cr changerequest.ChangeRequest) error {
	if cr.IsParticipant(userID) {
		return nil
	}
	role, err := g.roles.RoleOf(ctx, userID, cr.ProjectID())
	if err != nil {
		return errors.Wrap(changerequest.ErrDependencyUnavailable, err.Error())
	}
	if role == directory.RoleNone {
		return changerequest.ErrForbidden
	}
	return nil
}
