package session

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

// entry holds one session. mu serializes writers for the whole transition;
// readers load snap without locking.
type entry struct {
	mu   sync.Mutex
	snap atomic.Pointer[Session]
}

// Store keeps sessions in memory, keyed by id. Writers to one session are
// serialized; different sessions proceed in parallel.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Insert adds a new session. committed, when non-nil, runs with the stored
// snapshot before any writer can reach the session.
func (s *Store) Insert(sess *Session, committed func(snap *Session)) error {
	e := &entry{}
	e.snap.Store(sess.Clone())
	e.mu.Lock()
	defer e.mu.Unlock()

	s.mu.Lock()
	if _, dup := s.entries[sess.ID]; dup {
		s.mu.Unlock()
		return fmt.Errorf("session %q already exists", sess.ID)
	}
	s.entries[sess.ID] = e
	s.mu.Unlock()

	if committed != nil {
		committed(e.snap.Load())
	}
	return nil
}

func (s *Store) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return e, nil
}

// Get returns the latest committed snapshot. The value is shared and must
// not be mutated.
func (s *Store) Get(id string) (*Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	return e.snap.Load(), nil
}

// Update runs fn on a private copy of the session while holding the
// session's write lock. The copy is published only when fn returns
// changed=true and no error; otherwise the stored session is untouched.
// committed, when non-nil, runs with the published copy before the lock is
// released, so hooks of one session run in commit order.
// It returns the snapshot current after the call.
func (s *Store) Update(id string, fn func(sess *Session) (changed bool, err error), committed func(snap *Session)) (*Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	work := e.snap.Load().Clone()
	changed, err := fn(work)
	if err != nil {
		return nil, err
	}
	if !changed {
		return e.snap.Load(), nil
	}
	work.Version++
	e.snap.Store(work)
	if committed != nil {
		committed(work)
	}
	return work, nil
}

// IDs returns every session id, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
