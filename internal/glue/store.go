// Package glue connects the session controllers to the front-ends: a typed
// state container that front-ends subscribe to, and a WebSocket hub that
// mirrors it to browsers.
package glue

import (
	"sync"
)

// Store holds one value of S. Dispatch applies a reducer and hands the new
// value to every subscriber, in dispatch order.
type Store[S any] struct {
	mu    sync.Mutex
	state S
	subs  map[int]func(S)
	next  int

	// deliver serializes notification so subscribers see values in order.
	deliver sync.Mutex
}

func NewStore[S any](initial S) *Store[S] {
	return &Store[S]{state: initial, subs: make(map[int]func(S))}
}

func (s *Store[S]) Get() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispatch replaces the value with reducer(current) and notifies subscribers.
// Subscribers run on the dispatching goroutine and must not call Dispatch
// synchronously.
func (s *Store[S]) Dispatch(reducer func(S) S) S {
	s.deliver.Lock()
	defer s.deliver.Unlock()

	s.mu.Lock()
	s.state = reducer(s.state)
	v := s.state
	subs := make([]func(S), 0, len(s.subs))
	for i := 0; i < s.next; i++ {
		if fn, ok := s.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(v)
	}
	return v
}

// Set is Dispatch with a constant reducer.
func (s *Store[S]) Set(v S) {
	s.Dispatch(func(S) S { return v })
}

// Subscribe registers fn and returns a func that removes it. Unsubscribing
// twice is harmless.
func (s *Store[S]) Subscribe(fn func(S)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
