package changerequest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cabflow/cabflow/modules/changes/domain/changerequest"
)

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.FixedZone("UZT", 5*3600))
	cr := changerequest.New("  Rotate secrets  ", " PAY ", " alice ", now)

	assert.NotEqual(t, "", cr.ID().String())
	assert.Equal(t, "Rotate secrets", cr.Title())
	assert.Equal(t, "PAY", cr.ProjectID())
	assert.Equal(t, "alice", cr.RequesterID())
	assert.Equal(t, changerequest.PhaseValidationPending, cr.Phase())
	assert.Equal(t, changerequest.StatusPending, cr.ValidationStatus())
	assert.Equal(t, changerequest.StatusPending, cr.ApprovalStatus())
	assert.Equal(t, time.UTC, cr.CreatedAt().Location())
	assert.False(t, cr.IsZero())
}

func TestNew_Options(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 5, 1, 22, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	cr := changerequest.New("title", "PAY", "alice", time.Now(),
		changerequest.WithDescription(" desc "),
		changerequest.WithReason("reason"),
		changerequest.WithImpact("impact"),
		changerequest.WithAdditionalInfo("extra"),
		changerequest.WithRequiredApprovers([]string{"bob", " bob ", "carol", ""}),
		changerequest.WithIssueIDs([]string{"CAB-1", "CAB-1", "CAB-2"}),
		changerequest.WithChangeWindow(start, end),
		changerequest.AsDraft(),
	)

	assert.Equal(t, "desc", cr.Description())
	assert.Equal(t, []string{"bob", "carol"}, cr.RequiredApprovers())
	assert.Equal(t, []string{"CAB-1", "CAB-2"}, cr.IssueIDs())
	require.NotNil(t, cr.ChangeWindowStart())
	assert.Equal(t, start, *cr.ChangeWindowStart())
	assert.Equal(t, changerequest.PhaseDraft, cr.Phase())
}

func TestIsParticipant(t *testing.T) {
	t.Parallel()

	cr := changerequest.New("title", "PAY", "alice", time.Now(),
		changerequest.WithRequiredApprovers([]string{"bob"}))

	assert.True(t, cr.IsParticipant("alice"))
	assert.True(t, cr.IsParticipant("bob"))
	assert.True(t, cr.IsRequiredApprover("bob"))
	assert.False(t, cr.IsRequiredApprover("alice"))
	assert.False(t, cr.IsParticipant("mallory"))
}

func TestWithTransition_SetsOnlyNamedTrack(t *testing.T) {
	t.Parallel()

	cr := changerequest.New("title", "PAY", "alice", time.Now())

	res, err := changerequest.Transition(cr.Phase(), changerequest.ActionApprove)
	require.NoError(t, err)
	next := cr.WithTransition(res, time.Now())

	assert.Equal(t, changerequest.PhaseValidationApproved, next.Phase())
	assert.Equal(t, changerequest.StatusApproved, next.ValidationStatus())
	assert.Equal(t, changerequest.StatusPending, next.ApprovalStatus())

	// The original copy is untouched.
	assert.Equal(t, changerequest.PhaseValidationPending, cr.Phase())
	assert.Equal(t, changerequest.StatusPending, cr.ValidationStatus())
}

func TestMovedTo(t *testing.T) {
	t.Parallel()

	cr := changerequest.New("title", "PAY", "alice", time.Now())
	res, err := changerequest.Transition(cr.Phase(), changerequest.ActionApprove)
	require.NoError(t, err)
	cr = cr.WithTransition(res, time.Now())

	t.Run("ordinary_move_keeps_both_tracks", func(t *testing.T) {
		t.Parallel()
		next := cr.MovedTo(changerequest.PhaseInProgress, time.Now())
		assert.Equal(t, changerequest.PhaseInProgress, next.Phase())
		assert.Equal(t, changerequest.StatusApproved, next.ValidationStatus())
		assert.Equal(t, changerequest.StatusPending, next.ApprovalStatus())
	})

	t.Run("move_into_approved_records_final_approval", func(t *testing.T) {
		t.Parallel()
		next := cr.MovedTo(changerequest.PhaseApproved, time.Now())
		assert.Equal(t, changerequest.PhaseApproved, next.Phase())
		assert.Equal(t, changerequest.StatusApproved, next.ApprovalStatus())
		assert.Equal(t, changerequest.StatusApproved, next.ValidationStatus())
	})
}

func TestNewComment(t *testing.T) {
	t.Parallel()

	t.Run("trims_and_stamps", func(t *testing.T) {
		t.Parallel()
		now := time.Date(2026, 4, 2, 9, 30, 0, 0, time.FixedZone("UZT", 5*3600))
		c, err := changerequest.NewComment("alice", "  ship it  ", now)
		require.NoError(t, err)
		assert.Equal(t, "ship it", c.Body())
		assert.Equal(t, "alice", c.AuthorID())
		assert.Equal(t, time.UTC, c.CreatedAt().Location())
	})

	t.Run("rejects_blank_body", func(t *testing.T) {
		t.Parallel()
		_, err := changerequest.NewComment("alice", " \t\n ", time.Now())
		require.ErrorIs(t, err, changerequest.ErrEmptyComment)
	})
}
