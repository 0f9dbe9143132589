package memory

import (
	"context"
	"fmt"
	"sync"
)

// Store is a fixed-capacity ring of recent entries shared by concurrent
// runs. Appends evict the oldest entry once the ring is full. When a
// Backend is attached every append is also written through to it.
type Store struct {
	mu       sync.Mutex
	buf      []Entry
	head     int // index of the oldest entry
	count    int
	capacity int
	backend  Backend
}

// Option configures a Store.
type Option func(*Store)

// WithBackend attaches a durable backend.
func WithBackend(b Backend) Option {
	return func(s *Store) {
		s.backend = b
	}
}

// NewStore creates an empty store. A non-positive capacity falls back to
// DefaultCapacity.
func NewStore(capacity int, opts ...Option) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{
		buf:      make([]Entry, capacity),
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory ring with the most recent entries from the
// backend. Without a backend it is a no-op.
func (s *Store) Load(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	entries, err := s.backend.Load(ctx, s.capacity)
	if err != nil {
		return fmt.Errorf("failed to load memory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.head, s.count = 0, 0
	for _, e := range entries {
		s.push(e)
	}
	return nil
}

// Append adds an entry, evicting the oldest when full. The in-memory
// append always happens; the returned error only reports a backend write
// failure.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.push(entry)
	if s.backend == nil {
		return nil
	}
	// Written under the lock so the backend sees the same order as the ring.
	if err := s.backend.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to persist memory entry: %w", err)
	}
	return nil
}

func (s *Store) push(entry Entry) {
	if s.count < s.capacity {
		s.buf[(s.head+s.count)%s.capacity] = entry
		s.count++
		return
	}
	s.buf[s.head] = entry
	s.head = (s.head + 1) % s.capacity
}

// Recent returns up to limit entries, most recent last. A non-positive
// limit returns everything held.
func (s *Store) Recent(limit int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > s.count {
		limit = s.count
	}
	out := make([]Entry, 0, limit)
	start := s.count - limit
	for i := start; i < s.count; i++ {
		out = append(out, s.buf[(s.head+i)%s.capacity])
	}
	return out
}

// Last returns the most recent entry, if any.
func (s *Store) Last() (Entry, bool) {
	recent := s.Recent(1)
	if len(recent) == 0 {
		return Entry{}, false
	}
	return recent[0], true
}

// Len returns the number of entries currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

// Cap returns the fixed capacity.
func (s *Store) Cap() int {
	return s.capacity
}

// Close releases the backend, if any.
func (s *Store) Close() error {
	if s.backend == nil {
		return nil
	}
	return s.backend.Close()
}
