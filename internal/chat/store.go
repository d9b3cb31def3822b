package chat

import "sync"

// Store is the single shared state container. All mutation goes through
// Dispatch; the mutex serializes reducer invocations so each action is
// applied atomically (single-writer, queued-actions model — no finer
// locking needed).
type Store struct {
	mu    sync.RWMutex
	state State

	subMu   sync.Mutex
	subs    map[int]func(State)
	nextSub int
}

func NewStore() *Store {
	return &Store{
		state: NewState(),
		subs:  map[int]func(State){},
	}
}

// Dispatch applies one action and returns the resulting snapshot.
// Subscribers are notified after the state swap, in registration order.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	next := reduce(s.state, a)
	s.state = next
	s.mu.Unlock()

	s.subMu.Lock()
	fns := make([]func(State), 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(next)
	}
	return next
}

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe registers a listener invoked with every post-dispatch snapshot.
// Returns an id for Unsubscribe.
func (s *Store) Subscribe(fn func(State)) int {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return id
}

func (s *Store) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	delete(s.subs, id)
}
