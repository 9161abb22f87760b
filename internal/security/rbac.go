package security

import (
	"fmt"
	"strings"
)

// Action is something a dashboard user can ask the service to do.
type Action string

const (
	ActionGenerate Action = "generate_content"
	ActionPublish  Action = "publish_social"
	ActionOutreach Action = "manage_outreach"
	ActionAdmin    Action = "admin"
)

// Role is a dashboard account level. Higher roles inherit everything a lower
// role may do.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{
	RoleViewer: 1,
	RoleEditor: 2,
	RoleAdmin:  3,
}

func (r Role) String() string {
	return string(r)
}

// AtLeast reports whether r ranks at or above floor. Unknown roles rank below
// everything.
func (r Role) AtLeast(floor Role) bool {
	have, ok := roleRank[r]
	if !ok {
		return false
	}
	return have >= roleRank[floor]
}

// Policy records the lowest role each action needs.
type Policy struct {
	minimum map[Action]Role
}

// DefaultPolicy lets every role generate drafts and keeps publishing and
// outreach to editors and admins.
func DefaultPolicy() Policy {
	return NewPolicy(map[Action]Role{
		ActionGenerate: RoleViewer,
		ActionPublish:  RoleEditor,
		ActionOutreach: RoleEditor,
		ActionAdmin:    RoleAdmin,
	})
}

func NewPolicy(minimum map[Action]Role) Policy {
	p := Policy{minimum: make(map[Action]Role, len(minimum))}
	for action, role := range minimum {
		p.minimum[action] = role
	}
	return p
}

// IsAllowed denies actions the policy does not name.
func (p Policy) IsAllowed(role Role, action Action) bool {
	floor, ok := p.minimum[action]
	if !ok {
		return false
	}
	return role.AtLeast(floor)
}

func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleRank[r]; !ok {
		return "", fmt.Errorf("unknown role: %q", raw)
	}
	return r, nil
}
