// Package conversation holds per-participant conversational state that is not
// part of the lead record itself: pause windows opened by a human operator
// taking over a chat, and the reply directives that steer the generator.
package conversation

import (
	"context"
	"sync"
	"time"
)

// DefaultPauseWindow is how long the bot stays silent for a participant after
// a human operator sends them a message from the business account.
const DefaultPauseWindow = 30 * time.Minute

// PauseStore tracks which participants the bot must not reply to right now.
// Implementations must be safe for concurrent use.
type PauseStore interface {
	// Pause opens (or extends) a pause window for the participant.
	Pause(ctx context.Context, participantID string, window time.Duration) error
	// IsPaused reports whether a pause window is currently open.
	IsPaused(ctx context.Context, participantID string) (bool, error)
	// Resume closes any open window for the participant.
	Resume(ctx context.Context, participantID string) error
}

// MemoryPauseRegistry is the in-process PauseStore. Expired windows are
// evaluated lazily on read, so no background sweeper is needed.
type MemoryPauseRegistry struct {
	mu      sync.RWMutex
	expiry  map[string]time.Time
	nowFunc func() time.Time
}

// NewMemoryPauseRegistry creates an empty in-process pause registry.
func NewMemoryPauseRegistry() *MemoryPauseRegistry {
	return &MemoryPauseRegistry{
		expiry:  make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

func (r *MemoryPauseRegistry) Pause(_ context.Context, participantID string, window time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expiry[participantID] = r.nowFunc().Add(window)
	return nil
}

func (r *MemoryPauseRegistry) IsPaused(_ context.Context, participantID string) (bool, error) {
	r.mu.RLock()
	until, ok := r.expiry[participantID]
	r.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if r.nowFunc().Before(until) {
		return true, nil
	}
	r.mu.Lock()
	// Re-check under the write lock in case the window was extended.
	if until, ok := r.expiry[participantID]; ok && !r.nowFunc().Before(until) {
		delete(r.expiry, participantID)
	}
	r.mu.Unlock()
	return false, nil
}

func (r *MemoryPauseRegistry) Resume(_ context.Context, participantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.expiry, participantID)
	return nil
}
