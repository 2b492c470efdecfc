package session

import "sync"

// Store maps user IDs to their single active conversation state.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewStore() *Store {
	return &Store{states: map[int64]State{}}
}

// Begin unconditionally overwrites any prior state for the user.
func (s *Store) Begin(user int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.Kind == KindNone {
		delete(s.states, user)
		return
	}
	s.states[user] = st
}

// Get returns the active state; Kind==KindNone means no flow is pending.
func (s *Store) Get(user int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[user]
}

// End clears the user's state once a flow completes or is cancelled.
func (s *Store) End(user int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, user)
}
