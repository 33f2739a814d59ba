package gas

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/katalvlaran/kernelbp/core"
)

// activeSet is the concurrent next-superstep set.
type activeSet struct {
	mu      sync.Mutex
	ids     map[core.VertexID]struct{}
	signals atomic.Int64
}

func newActiveSet() *activeSet {
	return &activeSet{ids: make(map[core.VertexID]struct{})}
}

func (s *activeSet) add(id core.VertexID) {
	s.signals.Add(1)
	s.mu.Lock()
	s.ids[id] = struct{}{}
	s.mu.Unlock()
}

func (s *activeSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ids)
}

// drain returns the ids sorted ascending and empties the set.
func (s *activeSet) drain() []core.VertexID {
	s.mu.Lock()
	out := make([]core.VertexID, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.ids = make(map[core.VertexID]struct{})
	s.mu.Unlock()
	slices.Sort(out)

	return out
}
