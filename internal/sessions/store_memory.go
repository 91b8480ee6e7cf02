package sessions

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory with an optional TTL.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]Session
	ttl   time.Duration
	now   func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: map[string]Session{},
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source.
func (s *MemoryStore) SetClock(now func() time.Time) { s.now = now }

// expired must be called with mu held.
func (s *MemoryStore) expired(sess Session) bool {
	return s.ttl > 0 && s.now().Sub(sess.UpdatedAt) > s.ttl
}

func (s *MemoryStore) GetOrCreate(_ context.Context, callID, tenantID string) (Session, error) {
	if err := validateCallID(callID); err != nil {
		return Session{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.items[callID]; ok && !s.expired(sess) {
		return copySession(sess), nil
	}
	sess := newSession(callID, tenantID, s.now())
	s.items[callID] = sess
	return copySession(sess), nil
}

func (s *MemoryStore) Get(_ context.Context, callID string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[callID]
	if !ok || s.expired(sess) {
		return Session{}, ErrNotFound
	}
	return copySession(sess), nil
}

func (s *MemoryStore) Update(_ context.Context, callID string, p Patch) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.items[callID]
	if !ok || s.expired(sess) {
		return Session{}, ErrNotFound
	}
	sess = sess.Apply(p, s.now())
	s.items[callID] = sess
	return copySession(sess), nil
}

func (s *MemoryStore) Delete(_ context.Context, callID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, callID)
	return nil
}

// Len returns the number of live sessions.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.items {
		if !s.expired(sess) {
			n++
		}
	}
	return n
}

func copySession(s Session) Session {
	s.Data.RecentTurns = append([]Turn(nil), s.Data.RecentTurns...)
	s.LastSay = append([]string(nil), s.LastSay...)
	return s
}
