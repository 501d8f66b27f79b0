package marker

import (
	"context"
	"sync"
	"time"

	"cafeteria/internal/claims/models"
)

// InMemory is the single-process marker implementation. TTLs are checked
// lazily on read; entries for past days simply stop matching.
type InMemory struct {
	mu      sync.Mutex
	entries map[string]time.Time // key -> expiry
	clock   func() time.Time
}

// InMemoryOption configures an InMemory marker store.
type InMemoryOption func(*InMemory)

// WithClock sets the clock function for testability.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(m *InMemory) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewInMemory creates an empty in-memory marker store.
func NewInMemory(opts ...InMemoryOption) *InMemory {
	m := &InMemory{
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// AlreadyClaimed reports whether an unexpired marker exists.
func (m *InMemory) AlreadyClaimed(ctx context.Context, code string, service models.Service, day string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.entries[markerKey(code, service, day)]
	if !ok {
		return false, nil
	}
	if m.clock().After(expiry) {
		delete(m.entries, markerKey(code, service, day))
		return false, nil
	}
	return true, nil
}

// MarkClaimed records a marker with TTL. An existing marker is not extended.
func (m *InMemory) MarkClaimed(ctx context.Context, code string, service models.Service, day string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := markerKey(code, service, day)
	if _, exists := m.entries[key]; exists {
		return nil
	}
	m.entries[key] = m.clock().Add(ttl)
	return nil
}
