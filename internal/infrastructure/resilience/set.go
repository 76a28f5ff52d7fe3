package resilience

import (
	"context"
	"sync"
	"time"
)

// Set lazily creates one breaker per name with shared settings
type Set struct {
	settings Settings

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewSet creates an empty breaker set
func NewSet(settings Settings) *Set {
	return &Set{
		settings: settings.withDefaults(),
		breakers: make(map[string]*Breaker),
	}
}

// Timeout is how long a tripped breaker stays open
func (s *Set) Timeout() time.Duration {
	return s.settings.Timeout
}

// Get returns the breaker for name, creating it on first use
func (s *Set) Get(name string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.breakers[name]
	if !ok {
		b = New(name, s.settings)
		s.breakers[name] = b
	}
	return b
}

// Execute runs fn through the breaker for name
func (s *Set) Execute(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	return s.Get(name).Execute(ctx, fn)
}

// Forget drops the breaker for name so a remounted target starts closed
func (s *Set) Forget(names ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range names {
		delete(s.breakers, name)
	}
}

// States reports the state of every breaker that is not closed
func (s *Set) States() map[string]string {
	s.mu.Lock()
	breakers := make([]*Breaker, 0, len(s.breakers))
	for _, b := range s.breakers {
		breakers = append(breakers, b)
	}
	s.mu.Unlock()

	out := make(map[string]string)
	for _, b := range breakers {
		if st := b.State(); st != StateClosed {
			out[b.Name()] = st.String()
		}
	}
	return out
}
