package types

import "regexp"

// Compiled once; join codes are validated on every JOIN_ROOM.
var joinCodeRegex = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// IsValidJoinCode checks the 6-character uppercase join code format.
func IsValidJoinCode(code string) bool {
	return joinCodeRegex.MatchString(code)
}

// IsValidRole checks that the role is one the engine trusts for
// authorization decisions.
func IsValidRole(role string) bool {
	return role == RoleTeacher || role == RoleStudent
}

// IsValidPromptType checks the prompt type against the supported set.
func IsValidPromptType(t string) bool {
	switch t {
	case PromptTypeText, PromptTypeMC, PromptTypeScale:
		return true
	default:
		return false
	}
}

// Validate ensures a prompt is broadcastable. Options are required and
// non-empty only for multiple choice; for other types they are dropped.
func (p *Prompt) Validate() error {
	if p.Content == "" {
		return ErrInvalidPrompt
	}
	if !IsValidPromptType(p.Type) {
		p.Type = PromptTypeText
	}
	if p.Type == PromptTypeMC {
		filled := 0
		for _, opt := range p.Options {
			if opt != "" {
				filled++
			}
		}
		if filled < 2 {
			return ErrInvalidPromptOptions
		}
	} else {
		p.Options = nil
	}
	return nil
}
