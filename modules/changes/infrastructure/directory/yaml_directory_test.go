package directory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/cabflow/cabflow/modules/changes/domain/directory"
	"github.com/cabflow/cabflow/modules/changes/infrastructure/directory"
)

const fixture = `
projects:
  PAY:
    roles:
      alice: Admin
      bob: Approver
      carol: User
users:
  alice:
    name: Alice Example
    avatar_url: https://avatars.example.com/alice.png
  bob:
    name: Bob Example
`

func TestYAMLDirectory_RoleOf(t *testing.T) {
	t.Parallel()

	d, err := directory.ParseYAMLDirectory([]byte(fixture))
	require.NoError(t, err)

	ctx := context.Background()

	role, err := d.RoleOf(ctx, "alice", "PAY")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, role)

	role, err = d.RoleOf(ctx, "carol", "PAY")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, role)

	role, err = d.RoleOf(ctx, "mallory", "PAY")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNone, role)

	role, err = d.RoleOf(ctx, "alice", "UNKNOWN")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleNone, role)
}

func TestYAMLDirectory_DisplayInfo_SkipsUnknownIDs(t *testing.T) {
	t.Parallel()

	d, err := directory.ParseYAMLDirectory([]byte(fixture))
	require.NoError(t, err)

	got, err := d.DisplayInfo(context.Background(), []string{"alice", "mallory"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice Example", got["alice"].Name)
}

func TestParseYAMLDirectory_RejectsUnknownRole(t *testing.T) {
	t.Parallel()

	_, err := directory.ParseYAMLDirectory([]byte("projects:\n  PAY:\n    roles:\n      alice: Owner\n"))
	require.Error(t, err)
}
