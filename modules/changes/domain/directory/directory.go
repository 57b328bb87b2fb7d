package directory

import "context"

// Role is a user's standing within one project. Projects and users live in
// an external directory; the engine only consumes the lookup.
type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleApprover Role = "Approver"
	RoleUser     Role = "User"
	RoleNone     Role = ""
)

// CanApprove reports whether the role authorizes approve/reject/phase-move
// actions.
func (r Role) CanApprove() bool {
	return r == RoleAdmin || r == RoleApprover
}

// RoleLookup resolves a user's role for a project. Implementations carry
// their own timeouts; errors are surfaced by the engine as a dependency
// failure, never a silent deny.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID, projectID string) (Role, error)
}

// DisplayInfo is the denormalized identity shown next to requesters,
// approvers and comment authors. Read path only.
type DisplayInfo struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// DisplayLookup resolves account IDs to display identities in batch.
type DisplayLookup interface {
	DisplayInfo(ctx context.Context, userIDs []string) (map[string]DisplayInfo, error)
}
