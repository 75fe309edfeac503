package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store with per-entry TTL and a maximum entry
// bound. When the bound is exceeded the least recently used entry is evicted.
// Expired entries are dropped lazily on access.
type MemoryStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	now        func() time.Time
}

type memoryEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore with the given TTL and entry bound.
func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	return &MemoryStore{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Get returns the value for key, or false when absent or expired.
func (s *MemoryStore) Get(_ context.Context, key Key) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[key.String()]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*memoryEntry)
	if s.now().After(entry.expiresAt) {
		s.removeLocked(elem)
		return nil, false
	}

	s.order.MoveToFront(elem)
	return entry.value, true
}

// Set stores value under key with the configured TTL, replacing any prior
// value wholesale.
func (s *MemoryStore) Set(_ context.Context, key Key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rendered := key.String()
	expiresAt := s.now().Add(s.ttl)

	if elem, ok := s.entries[rendered]; ok {
		entry := elem.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		s.order.MoveToFront(elem)
		return nil
	}

	elem := s.order.PushFront(&memoryEntry{key: rendered, value: value, expiresAt: expiresAt})
	s.entries[rendered] = elem

	if s.maxEntries > 0 && s.order.Len() > s.maxEntries {
		s.removeLocked(s.order.Back())
	}
	return nil
}

// Size returns the number of live entries, dropping any that have expired.
func (s *MemoryStore) Size(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for elem := s.order.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*memoryEntry).expiresAt) {
			s.removeLocked(elem)
		}
		elem = prev
	}
	return len(s.entries), nil
}

func (s *MemoryStore) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	s.order.Remove(elem)
	delete(s.entries, elem.Value.(*memoryEntry).key)
}
