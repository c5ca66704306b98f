package converse

// Role represents the author of a conversation entry.
type Role string

const (
	RoleUser Role = "user"
	// RoleModel entries are spoken by the model or narrated on its behalf
	// by the orchestration layer.
	RoleModel Role = "model"
	// RoleToolNotice entries carry tool output and corrective instructions
	// addressed to the model.
	RoleToolNotice Role = "tool_notice"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModel, RoleToolNotice:
		return true
	}
	return false
}
