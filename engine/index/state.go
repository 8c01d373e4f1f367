package index

import (
	"sync"
	"time"
)

// Phase is the lifecycle position of the index.
type Phase int

const (
	NotStarted Phase = iota
	Building
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case NotStarted:
		return "not_started"
	case Building:
		return "building"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// State tracks index readiness. Ready is terminal within a process: a
// failed build moves back to Failed so the next request can rebuild,
// but nothing ever downgrades Ready.
type State struct {
	mu      sync.RWMutex
	phase   Phase
	err     error
	builtAt time.Time
}

// NewState creates a State in the NotStarted phase.
func NewState() *State {
	return &State{}
}

// Phase returns the current phase.
func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Ready reports whether the index is fully built.
func (s *State) Ready() bool {
	return s.Phase() == Ready
}

// Err returns the error of the last failed build, nil otherwise.
func (s *State) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// BuiltAt returns when the index became ready, zero if it never did.
func (s *State) BuiltAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.builtAt
}

func (s *State) setBuilding() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Ready {
		return
	}
	s.phase = Building
	s.err = nil
}

func (s *State) setReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = Ready
	s.err = nil
	s.builtAt = time.Now()
}

func (s *State) setFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == Ready {
		return
	}
	s.phase = Failed
	s.err = err
}
