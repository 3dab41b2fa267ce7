package watcher

import (
	"sync"

	"github.com/drblury/resourcewatch/internal/runtime/target"
)

// DefaultMaxActors bounds the object actors a session keeps when
// Dependencies.MaxActors is zero.
const DefaultMaxActors = 10000

// actorScope is the view of a target a session materializes values through.
// It records every actor the session adds to the target's pool so they can
// be released with the session. Past limit the oldest actors are released.
type actorScope struct {
	target.Target
	pool  target.ActorPool
	limit int

	mu       sync.Mutex
	ids      []string
	released bool
}

// scopeTarget wraps t when it hosts actors. Targets without a pool are
// returned as is and the scope is nil.
func scopeTarget(t target.Target, limit int) (target.Target, *actorScope) {
	pool, ok := t.(target.ActorPool)
	if !ok {
		return t, nil
	}
	if limit <= 0 {
		limit = DefaultMaxActors
	}
	s := &actorScope{Target: t, pool: pool, limit: limit}
	return s, s
}

func (s *actorScope) NextActorID(typeName string) string {
	return s.pool.NextActorID(typeName)
}

// AddActor registers a with the underlying pool. Once the scope is released
// actors are no longer pooled and only their id is returned.
func (s *actorScope) AddActor(a target.Actor) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return a.ActorID()
	}
	id := s.pool.AddActor(a)
	s.ids = append(s.ids, id)
	if over := len(s.ids) - s.limit; over > 0 {
		for _, old := range s.ids[:over] {
			s.pool.RemoveActor(old)
		}
		s.ids = append(s.ids[:0], s.ids[over:]...)
	}
	return id
}

func (s *actorScope) RemoveActor(id string) {
	s.pool.RemoveActor(id)
}

// Len reports the number of actors the scope currently holds.
func (s *actorScope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// release drops every actor registered through the scope and returns how
// many were held.
func (s *actorScope) release() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = true
	n := len(s.ids)
	for _, id := range s.ids {
		s.pool.RemoveActor(id)
	}
	s.ids = nil
	return n
}

var _ target.ActorPool = (*actorScope)(nil)
