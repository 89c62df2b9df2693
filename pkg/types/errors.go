package types

import "errors"

// Engine error kinds. Every failure is scoped to the requesting connection
// and reported back as an ERROR event; room state is left unchanged.
var (
	ErrRoomNotFound            = errors.New("Invalid join code: room not found")
	ErrRoomEnded               = errors.New("this session has ended")
	ErrForbidden               = errors.New("only the teacher may perform this action")
	ErrStalePrompt             = errors.New("the prompt has changed since you started typing")
	ErrInsufficientSubmissions = errors.New("at least 2 submissions are required to swap")
	ErrNoEligibleSwap          = errors.New("no eligible swap partner in the current distribution")
	ErrSessionEnded            = errors.New("this session has ended")
	ErrInvalidState            = errors.New("operation not allowed in the current state")
	ErrNotParticipant          = errors.New("you are not a participant of this room")
	ErrInvalidJoinCode         = errors.New("join code must be 6 uppercase characters")
	ErrInvalidPrompt           = errors.New("prompt content is required")
	ErrInvalidPromptOptions    = errors.New("multiple choice prompts need at least 2 options")
)
