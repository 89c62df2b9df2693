// Package registry owns the join-code -> room index: minting codes,
// lookups, eviction, and the idle-room garbage collector.
package registry

import (
	"context"
	"log"
	"math/rand"
	"sync"
	"time"

	"thoughtswap/internal/room"
	"thoughtswap/pkg/types"
)

// Join codes avoid 0/O and 1/I to keep them easy to read off a projector.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// Registry maps join codes to live rooms. Room state is never touched under
// the registry lock; the lock only guards the index itself.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room.Room

	rng   *rand.Rand
	rngMu sync.Mutex
}

// New creates an empty registry seeded from the given source.
func New(seed int64) *Registry {
	return &Registry{
		rooms: make(map[string]*room.Room),
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Create mints a fresh join code and registers a new room under it.
func (reg *Registry) Create() *room.Room {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for {
		code = reg.mintCode()
		if _, taken := reg.rooms[code]; !taken {
			break
		}
	}
	r := room.New(code, reg.newRoomRng())
	reg.rooms[code] = r
	log.Printf("Room created: code=%s total=%d", code, len(reg.rooms))
	return r
}

// Find returns the room for a join code.
func (reg *Registry) Find(code string) (*room.Room, error) {
	if !types.IsValidJoinCode(code) {
		return nil, types.ErrInvalidJoinCode
	}
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	r, ok := reg.rooms[code]
	if !ok {
		return nil, types.ErrRoomNotFound
	}
	return r, nil
}

// Evict removes a room from the index. Idempotent; the room itself is left
// for its remaining references to drain.
func (reg *Registry) Evict(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if _, ok := reg.rooms[code]; ok {
		delete(reg.rooms, code)
		log.Printf("Room evicted: code=%s total=%d", code, len(reg.rooms))
	}
}

// Count returns the number of registered rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// RunGC evicts rooms that have had no connected participants for longer
// than idleTimeout, checking every interval until ctx is cancelled. Expired
// rooms are ended so any racing reconnect observes the terminal state.
func (reg *Registry) RunGC(ctx context.Context, interval, idleTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			reg.collect(now, idleTimeout)
		}
	}
}

func (reg *Registry) collect(now time.Time, idleTimeout time.Duration) {
	reg.mu.RLock()
	var expired []*room.Room
	for _, r := range reg.rooms {
		if since, idle := r.IdleSince(); idle && now.Sub(since) > idleTimeout {
			expired = append(expired, r)
		}
	}
	reg.mu.RUnlock()

	for _, r := range expired {
		// Expire rechecks liveness under the room lock; a reconnect since
		// the scan keeps the room.
		if _, ok := r.Expire(); !ok {
			continue
		}
		reg.Evict(r.JoinCode())
		log.Printf("Room expired: code=%s idle>%s", r.JoinCode(), idleTimeout)
	}
}

func (reg *Registry) mintCode() string {
	reg.rngMu.Lock()
	defer reg.rngMu.Unlock()

	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[reg.rng.Intn(len(codeAlphabet))]
	}
	return string(buf)
}

// newRoomRng derives an independent source per room so per-room locks never
// contend on a shared generator.
func (reg *Registry) newRoomRng() *rand.Rand {
	reg.rngMu.Lock()
	defer reg.rngMu.Unlock()
	return rand.New(rand.NewSource(reg.rng.Int63()))
}
