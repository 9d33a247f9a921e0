// Package session holds the in-memory registry of live chat sessions.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autonomia2025/autonomia-suite-landing/internal/domain"
)

// entry pairs a session with the lock that serializes its turns.
type entry struct {
	sess *domain.Session
	turn sync.Mutex
}

// Store is the registry of live sessions keyed by id.
type Store struct {
	idleTTL time.Duration
	onEvict func(id string)
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry
}

// NewStore creates a store that evicts sessions idle for longer than idleTTL.
// onEvict, when set, is called for each evicted id.
func NewStore(idleTTL time.Duration, onEvict func(id string)) *Store {
	return &Store{
		idleTTL:  idleTTL,
		onEvict:  onEvict,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create registers a new session and returns it.
func (s *Store) Create() *domain.Session {
	now := s.now()
	sess := domain.NewSession(uuid.New().String(), now)
	sess.AppendTimeline(domain.TimelineEvent{
		Type:  domain.TimelineSession,
		Label: domain.LabelSessionStarted,
		Ts:    now,
	})

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{sess: sess}
	s.mu.Unlock()
	return sess
}

// Get returns the live session for id. The session itself is returned, not a
// copy.
func (s *Store) Get(id string) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return e.sess, true
}

// Acquire returns the session for id holding its turn lock. The caller must
// call release when the turn is over. A second Acquire for the same id blocks
// until then.
func (s *Store) Acquire(id string) (*domain.Session, func(), bool) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, false
	}
	e.turn.Lock()
	return e.sess, e.turn.Unlock, true
}

// Sweep removes every session idle since before now minus the idle TTL and
// returns the removed ids.
func (s *Store) Sweep(now time.Time) []string {
	cutoff := now.Add(-s.idleTTL)

	s.mu.Lock()
	var removed []string
	for id, e := range s.sessions {
		if e.sess.UpdatedAt().Before(cutoff) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()

	if s.onEvict != nil {
		for _, id := range removed {
			s.onEvict(id)
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
