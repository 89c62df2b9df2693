package interfaces

import (
	"context"
	"errors"

	"thoughtswap/pkg/types"
)

// ErrPromptNotFound is returned when a bank entry does not exist or belongs
// to a different teacher.
var ErrPromptNotFound = errors.New("saved prompt not found")

// PromptStore persists a teacher's reusable prompt bank. It is consumed only
// for save/load of bank entries and has no transactional coupling to rooms;
// the engine never calls it while holding a room lock.
type PromptStore interface {
	// SavePrompt inserts a bank entry, minting an ID if none is set.
	SavePrompt(ctx context.Context, prompt *types.SavedPrompt) error

	// ListPrompts returns all bank entries for a teacher, newest first.
	ListPrompts(ctx context.Context, teacherEmail string) ([]*types.SavedPrompt, error)

	// DeletePrompt removes a bank entry owned by the teacher.
	DeletePrompt(ctx context.Context, teacherEmail, id string) error

	// HealthCheck verifies store connectivity.
	HealthCheck(ctx context.Context) error

	// Close flushes pending writes and closes the store.
	Close() error
}
