package directory

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cabflow/cabflow/pkg/serrors"

	domain "github.com/cabflow/cabflow/modules/changes/domain/directory"
)

type yamlFile struct {
	Projects map[string]yamlProject `yaml:"projects"`
	Users    map[string]yamlUser    `yaml:"users"`
}

type yamlProject struct {
	Roles map[string]string `yaml:"roles"`
}

type yamlUser struct {
	Name      string `yaml:"name"`
	AvatarURL string `yaml:"avatar_url"`
}

// YAMLDirectory serves role and identity lookups from a static YAML file.
// It stands in for the platform user directory in dev and test
// environments; the file is read once at startup.
type YAMLDirectory struct {
	projects map[string]map[string]domain.Role
	users    map[string]domain.DisplayInfo
}

var _ domain.RoleLookup = (*YAMLDirectory)(nil)
var _ domain.DisplayLookup = (*YAMLDirectory)(nil)

func LoadYAMLDirectory(path string) (*YAMLDirectory, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serrors.NewError("DIRECTORY_FILE_UNREADABLE", err.Error())
	}
	return ParseYAMLDirectory(raw)
}

func ParseYAMLDirectory(raw []byte) (*YAMLDirectory, error) {
	var f yamlFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, serrors.NewError("DIRECTORY_FILE_INVALID", err.Error())
	}

	projects := make(map[string]map[string]domain.Role, len(f.Projects))
	for projectID, p := range f.Projects {
		roles := make(map[string]domain.Role, len(p.Roles))
		for userID, role := range p.Roles {
			switch domain.Role(role) {
			case domain.RoleAdmin, domain.RoleApprover, domain.RoleUser:
				roles[userID] = domain.Role(role)
			default:
				return nil, serrors.NewError("DIRECTORY_ROLE_UNKNOWN", "unknown role "+role+" for user "+userID)
			}
		}
		projects[projectID] = roles
	}

	users := make(map[string]domain.DisplayInfo, len(f.Users))
	for userID, u := range f.Users {
		users[userID] = domain.DisplayInfo{Name: u.Name, AvatarURL: u.AvatarURL}
	}

	return &YAMLDirectory{projects: projects, users: users}, nil
}

// RoleOf returns RoleNone for users absent from the project. Only a missing
// project is still a valid lookup; the directory never errors on unknowns.
func (d *YAMLDirectory) RoleOf(_ context.Context, userID, projectID string) (domain.Role, error) {
	roles, ok := d.projects[projectID]
	if !ok {
		return domain.RoleNone, nil
	}
	return roles[userID], nil
}

// DisplayInfo resolves the given IDs. IDs without a directory entry are
// simply absent from the result; callers degrade to showing the raw ID.
func (d *YAMLDirectory) DisplayInfo(_ context.Context, userIDs []string) (map[string]domain.DisplayInfo, error) {
	out := make(map[string]domain.DisplayInfo, len(userIDs))
	for _, id := range userIDs {
		if info, ok := d.users[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}
