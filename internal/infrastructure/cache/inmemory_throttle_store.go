package cache

import (
	"context"
	"sync"
	"time"
)

// InMemoryThrottleStore keeps throttle cooldowns in process memory.
// Suitable for single-instance deployments and testing; cooldowns are not
// shared across instances.
type InMemoryThrottleStore struct {
	mu    sync.Mutex
	until map[string]time.Time
}

// NewInMemoryThrottleStore creates a new in-memory throttle store
func NewInMemoryThrottleStore() *InMemoryThrottleStore {
	return &InMemoryThrottleStore{until: make(map[string]time.Time)}
}

// Cooldown returns the remaining cooldown for a plan, if any.
func (s *InMemoryThrottleStore) Cooldown(ctx context.Context, planID string) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deadline, ok := s.until[planID]
	if !ok {
		return 0, false, nil
	}
	remaining := time.Until(deadline)
	if remaining <= 0 {
		delete(s.until, planID)
		return 0, false, nil
	}
	return remaining, true, nil
}

// SetCooldown records a plan's cooldown window.
func (s *InMemoryThrottleStore) SetCooldown(ctx context.Context, planID string, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	s.mu.Lock()
	s.until[planID] = time.Now().Add(d)
	s.mu.Unlock()
	return nil
}
