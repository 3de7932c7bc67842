package conversation

import (
	"context"
	"sync"
)

// Store keeps one State per requester.
type Store interface {
	Get(ctx context.Context, requesterID int64) (State, bool, error)
	Put(ctx context.Context, requesterID int64, state State) error
	Clear(ctx context.Context, requesterID int64) error
}

// InMemoryStore keeps state in process; forms are lost on restart.
type InMemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[int64]State)}
}

func (s *InMemoryStore) Get(_ context.Context, requesterID int64) (State, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[requesterID]
	if !ok {
		return State{}, false, nil
	}
	return clone(st), true, nil
}

func (s *InMemoryStore) Put(_ context.Context, requesterID int64, state State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[requesterID] = clone(state)
	return nil
}

func (s *InMemoryStore) Clear(_ context.Context, requesterID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, requesterID)
	return nil
}

// clone copies payload pointers so callers never share state with the map.
func clone(st State) State {
	if st.Registration != nil {
		r := *st.Registration
		st.Registration = &r
	}
	if st.Entry != nil {
		e := *st.Entry
		st.Entry = &e
	}
	if st.Taxonomy != nil {
		t := *st.Taxonomy
		st.Taxonomy = &t
	}
	return st
}
