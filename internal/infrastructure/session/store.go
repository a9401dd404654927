package session

import (
	"context"
	"sort"
	"sync"
	"time"
)

// cleanupInterval is how often expired sessions are swept.
const cleanupInterval = 10 * time.Minute

// entry holds one session's dismissed-product set with expiration.
type entry struct {
	dismissed  map[string]struct{}
	expiration time.Time
}

// Store is a thread-safe in-memory dismissal store with per-session TTL.
// Reads and writes are last-writer-wins; there is no transactional
// guarantee, matching the session-storage semantics it replaces.
type Store struct {
	data  map[string]*entry
	ttl   time.Duration
	mutex sync.RWMutex
	done  chan struct{}
}

// NewStore creates a dismissal store whose sessions expire after ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	store := &Store{
		data: make(map[string]*entry),
		ttl:  ttl,
		done: make(chan struct{}),
	}

	go store.cleanupExpired()

	return store
}

// Dismiss records that the session dismissed the given upsell product.
// Each write refreshes the session's expiration.
func (s *Store) Dismiss(ctx context.Context, sessionID, productID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, exists := s.data[sessionID]
	if !exists || time.Now().After(e.expiration) {
		e = &entry{dismissed: make(map[string]struct{})}
		s.data[sessionID] = e
	}
	e.dismissed[productID] = struct{}{}
	e.expiration = time.Now().Add(s.ttl)
	return nil
}

// Dismissed returns the session's dismissed product ids, sorted.
func (s *Store) Dismissed(ctx context.Context, sessionID string) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	e, exists := s.data[sessionID]
	if !exists || time.Now().After(e.expiration) {
		return nil, nil
	}

	ids := make([]string, 0, len(e.dismissed))
	for id := range e.dismissed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// IsDismissed reports whether the session dismissed the given product.
func (s *Store) IsDismissed(ctx context.Context, sessionID, productID string) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	e, exists := s.data[sessionID]
	if !exists || time.Now().After(e.expiration) {
		return false, nil
	}
	_, dismissed := e.dismissed[productID]
	return dismissed, nil
}

// Clear drops the session's dismissed set (the shopper's explicit reset).
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.data, sessionID)
	return nil
}

// Len returns the number of live sessions (for debugging/monitoring).
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.data)
}

// Close stops the cleanup goroutine.
func (s *Store) Close() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// cleanupExpired removes expired sessions periodically.
func (s *Store) cleanupExpired() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mutex.Lock()
			now := time.Now()
			for id, e := range s.data {
				if now.After(e.expiration) {
					delete(s.data, id)
				}
			}
			s.mutex.Unlock()
		}
	}
}
