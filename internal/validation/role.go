package validation

import (
	"errors"
	"strings"
	"unicode"
)

// MaxRoleNameLength matches the roles.name column.
const MaxRoleNameLength = 64

// NormalizeRoleName trims surrounding whitespace from a role label.
func NormalizeRoleName(name string) string {
	return strings.TrimSpace(name)
}

// ValidateRoleName requires a non-empty printable label.
func ValidateRoleName(name string) error {
	name = NormalizeRoleName(name)
	if name == "" {
		return errors.New("role name is required")
	}
	if len(name) > MaxRoleNameLength {
		return errors.New("role name must not exceed 64 characters")
	}
	for _, r := range name {
		if !unicode.IsPrint(r) {
			return errors.New("role name contains invalid characters")
		}
	}
	return nil
}
