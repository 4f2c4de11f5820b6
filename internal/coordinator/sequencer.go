// internal/coordinator/sequencer.go
package coordinator

import (
	"context"
	"sync"
)

// sequencer serializes turns per profile in arrival order. Lanes are
// created on demand and dropped once idle.
type sequencer struct {
	mu    sync.Mutex
	lanes map[string]*lane
}

type lane struct {
	cond      *sync.Cond
	next      uint64
	serving   uint64
	refs      int
	abandoned map[uint64]bool
}

func newSequencer() *sequencer {
	return &sequencer{lanes: make(map[string]*lane)}
}

// acquire blocks until every earlier turn for key has released. A waiter
// whose ctx ends gives up its place and gets ctx.Err().
func (s *sequencer) acquire(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	l, ok := s.lanes[key]
	if !ok {
		l = &lane{cond: sync.NewCond(&s.mu), abandoned: make(map[uint64]bool)}
		s.lanes[key] = l
	}
	ticket := l.next
	l.next++
	l.refs++

	if l.serving != ticket {
		stop := context.AfterFunc(ctx, func() {
			s.mu.Lock()
			l.cond.Broadcast()
			s.mu.Unlock()
		})
		for l.serving != ticket {
			if err := ctx.Err(); err != nil {
				l.abandoned[ticket] = true
				s.drop(key, l)
				s.mu.Unlock()
				stop()
				return nil, err
			}
			l.cond.Wait()
		}
		s.mu.Unlock()
		stop()
	} else {
		s.mu.Unlock()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			l.serving++
			for l.abandoned[l.serving] {
				delete(l.abandoned, l.serving)
				l.serving++
			}
			s.drop(key, l)
			l.cond.Broadcast()
			s.mu.Unlock()
		})
	}, nil
}

// drop releases one reference. Callers hold s.mu.
func (s *sequencer) drop(key string, l *lane) {
	l.refs--
	if l.refs == 0 && s.lanes[key] == l {
		delete(s.lanes, key)
	}
}

func (s *sequencer) active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lanes)
}
