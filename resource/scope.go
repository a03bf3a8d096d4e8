package resource

import "sync"

// Scope collects handles borrowed during one unit of work and closes them
// together, most recently tracked first.
//
//	sc := resource.NewScope()
//	defer sc.Close()
//	heights := resource.Track(sc, heightPool.Get(n))
type Scope struct {
	mu      sync.Mutex
	closers []Closer
	closed  bool
}

func NewScope() *Scope {
	return &Scope{}
}

// Track registers r with the scope and returns it unchanged.
// Tracking on a closed scope closes r immediately.
func Track[R Closer](s *Scope, r R) R {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		r.Close()
		return r
	}
	s.closers = append(s.closers, r)
	s.mu.Unlock()
	return r
}

// Len returns the number of handles still tracked.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.closers)
}

// Close closes every tracked handle in reverse order. It is idempotent.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close()
	}
}
