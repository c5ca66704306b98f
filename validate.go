package converse

import "fmt"

// ValidateEntry checks that an entry's role is known and that its parts are
// valid for that role. Only model entries may carry function calls.
func ValidateEntry(e Entry) error {
	if !e.Role.Valid() {
		return fmt.Errorf("unknown role %q: %w", e.Role, ErrValidation)
	}
	for i, p := range e.Parts {
		switch pt := p.(type) {
		case TextPart:
		case CallPart:
			if e.Role != RoleModel {
				return fmt.Errorf("part %d: function call not allowed in %s entry: %w", i, e.Role, ErrValidation)
			}
			if pt.Name == "" {
				return fmt.Errorf("part %d: function call without name: %w", i, ErrValidation)
			}
		default:
			return fmt.Errorf("part %d: unknown part type %T in %s entry: %w", i, p, e.Role, ErrValidation)
		}
	}
	return nil
}
